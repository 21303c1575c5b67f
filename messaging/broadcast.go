package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/agentbus/agentbus-go/contracts"
	"golang.org/x/sync/errgroup"
)

// Broadcast fan-out defaults. A broadcast resolving more than
// DefaultMaxBroadcastRecipients recipients is rejected unless the caller
// sets AllowLarge; deliveries run at most DefaultBroadcastBatchSize at a
// time. Batching bounds concurrency only, it makes no ordering promise.
const (
	DefaultMaxBroadcastRecipients = 100
	DefaultBroadcastBatchSize     = 10
)

// BroadcastScope selects how broadcast recipients are resolved.
type BroadcastScope int

const (
	// BroadcastAll targets every live agent except the sender.
	BroadcastAll BroadcastScope = iota
	// BroadcastByType targets agents whose Type equals AgentType.
	BroadcastByType
	// BroadcastByProperty targets agents for which Predicate returns true.
	BroadcastByProperty
	// BroadcastBySubscription targets agents subscribed to the message type.
	BroadcastBySubscription
)

func (s BroadcastScope) String() string {
	switch s {
	case BroadcastAll:
		return "all"
	case BroadcastByType:
		return "by-type"
	case BroadcastByProperty:
		return "by-property"
	case BroadcastBySubscription:
		return "by-subscription"
	default:
		return "unknown"
	}
}

// BroadcastOptions selects and filters the recipient set.
type BroadcastOptions struct {
	Scope BroadcastScope
	// AgentType filters recipients when Scope is BroadcastByType.
	AgentType string
	// Predicate filters recipients when Scope is BroadcastByProperty.
	Predicate func(AgentInfo) bool
	// AllowLarge overrides the recipient cap.
	AllowLarge bool
}

// BroadcastResult aggregates the independent per-recipient outcomes of one
// broadcast. A failed recipient never aborts its siblings.
type BroadcastResult struct {
	Scope      BroadcastScope
	Recipients int
	Succeeded  int
	Failed     int
	Results    []contracts.DeliveryResult
	Elapsed    time.Duration
}

// Broadcast fans msg out to the recipients resolved by opts. Resolving more
// than the configured cap without AllowLarge fails with
// ErrBroadcastTooLarge before any delivery starts.
func (r *MessageRouter) Broadcast(ctx context.Context, msg *contracts.Message, opts BroadcastOptions) (*BroadcastResult, error) {
	if msg == nil {
		return nil, fmt.Errorf("message cannot be nil")
	}

	started := time.Now()
	recipients, err := r.resolveBroadcast(msg, opts)
	if err != nil {
		return nil, err
	}

	if len(recipients) > r.maxBroadcast && !opts.AllowLarge {
		return nil, &contracts.BroadcastTooLargeError{Recipients: len(recipients), Limit: r.maxBroadcast}
	}

	if r.perfLogging {
		r.logger.Debug("resolved broadcast recipients",
			"scope", opts.Scope.String(),
			"type", msg.Type,
			"recipients", len(recipients),
			"decisionTime", time.Since(started))
	}

	r.stats.recordBroadcast(msg.Type, len(recipients))
	results := r.fanOut(ctx, msg, recipients, r.batchSize)

	out := &BroadcastResult{
		Scope:      opts.Scope,
		Recipients: len(recipients),
		Results:    results,
		Elapsed:    time.Since(started),
	}
	for _, res := range results {
		r.stats.recordResult(res)
		if res.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	return out, nil
}

func (r *MessageRouter) resolveBroadcast(msg *contracts.Message, opts BroadcastOptions) ([]string, error) {
	switch opts.Scope {
	case BroadcastAll:
		return r.filterAgents(msg.From, func(AgentInfo) bool { return true }), nil

	case BroadcastByType:
		if opts.AgentType == "" {
			return nil, fmt.Errorf("by-type broadcast requires an agent type")
		}
		return r.filterAgents(msg.From, func(a AgentInfo) bool { return a.Type == opts.AgentType }), nil

	case BroadcastByProperty:
		if opts.Predicate == nil {
			return nil, fmt.Errorf("by-property broadcast requires a predicate")
		}
		return r.filterAgents(msg.From, opts.Predicate), nil

	case BroadcastBySubscription:
		subscribers := r.registry.SubscribersFor(msg.Type)
		out := subscribers[:0:0]
		for _, id := range subscribers {
			if id != msg.From {
				out = append(out, id)
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown broadcast scope %d", opts.Scope)
	}
}

func (r *MessageRouter) filterAgents(sender string, keep func(AgentInfo) bool) []string {
	agents := r.directory.Agents()
	out := make([]string, 0, len(agents))
	for _, a := range agents {
		if a.ID != sender && keep(a) {
			out = append(out, a.ID)
		}
	}
	return out
}

// fanOut delivers msg to every recipient with at most batchSize deliveries
// in flight. Results are index-aligned with recipients; delivery errors are
// carried in the results, never returned, so siblings always run.
func (r *MessageRouter) fanOut(ctx context.Context, msg *contracts.Message, recipients []string, batchSize int) []contracts.DeliveryResult {
	if len(recipients) == 0 {
		return nil
	}
	if batchSize < 1 {
		batchSize = DefaultBroadcastBatchSize
	}

	results := make([]contracts.DeliveryResult, len(recipients))
	g := &errgroup.Group{}
	g.SetLimit(batchSize)

	for i, recipient := range recipients {
		i, recipient := i, recipient
		g.Go(func() error {
			results[i] = r.engine.Deliver(ctx, msg, recipient)
			return nil
		})
	}
	// Deliveries never return errors through the group.
	_ = g.Wait()
	return results
}
