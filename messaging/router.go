package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentbus/agentbus-go/contracts"
)

// MiddlewareFunc runs before a message is routed. Returning an error aborts
// routing; call next to continue the chain.
type MiddlewareFunc func(ctx context.Context, msg *contracts.Message, next MessageHandler) error

// MessageRouter is the single entry point for all message traffic: it
// resolves recipients, hands each (message, recipient) pair to the delivery
// engine, and threads request/response traffic through the correlation
// manager.
type MessageRouter struct {
	registry    *SubscriptionRegistry
	correlation *CorrelationManager
	engine      *DeliveryEngine
	directory   AgentDirectory
	stats       *RouterStats
	logger      *slog.Logger
	middleware  []MiddlewareFunc

	defaultTimeout time.Duration
	maxBroadcast   int
	batchSize      int
	perfLogging    bool
}

// RouterOption configures the MessageRouter.
type RouterOption func(*MessageRouter)

// WithRouterLogger sets the logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *MessageRouter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRouterMiddleware appends middleware to the routing chain.
func WithRouterMiddleware(mw ...MiddlewareFunc) RouterOption {
	return func(r *MessageRouter) {
		r.middleware = append(r.middleware, mw...)
	}
}

// WithDefaultRequestTimeout sets the timeout used when Request is called
// with a zero timeout. Clamped into the supported range.
func WithDefaultRequestTimeout(d time.Duration) RouterOption {
	return func(r *MessageRouter) {
		if d < MinRequestTimeout {
			d = MinRequestTimeout
		}
		if d > MaxRequestTimeout {
			d = MaxRequestTimeout
		}
		r.defaultTimeout = d
	}
}

// WithBroadcastLimits overrides the recipient cap and fan-out batch size.
func WithBroadcastLimits(maxRecipients, batchSize int) RouterOption {
	return func(r *MessageRouter) {
		if maxRecipients > 0 {
			r.maxBroadcast = maxRecipients
		}
		if batchSize > 0 {
			r.batchSize = batchSize
		}
	}
}

// WithPerformanceLogging enables Debug timing of routing decisions.
func WithPerformanceLogging(enabled bool) RouterOption {
	return func(r *MessageRouter) {
		r.perfLogging = enabled
	}
}

// NewMessageRouter wires a router over its collaborators.
func NewMessageRouter(registry *SubscriptionRegistry, correlation *CorrelationManager, engine *DeliveryEngine, directory AgentDirectory, opts ...RouterOption) *MessageRouter {
	r := &MessageRouter{
		registry:       registry,
		correlation:    correlation,
		engine:         engine,
		directory:      directory,
		stats:          NewRouterStats(),
		logger:         slog.Default(),
		defaultTimeout: DefaultRequestTimeout,
		maxBroadcast:   DefaultMaxBroadcastRecipients,
		batchSize:      DefaultBroadcastBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route dispatches msg by addressing mode: a correlated response resolves
// its pending request, a message with a recipient goes point-to-point, and
// everything else fans out to pattern subscribers.
func (r *MessageRouter) Route(ctx context.Context, msg *contracts.Message) ([]contracts.DeliveryResult, error) {
	if msg == nil {
		return nil, fmt.Errorf("message cannot be nil")
	}

	if err := r.runMiddleware(ctx, msg); err != nil {
		return nil, err
	}

	if msg.IsResponse() && r.correlation.Resolve(msg.CorrelationID, msg) {
		r.stats.recordRouted(msg.Type, 1)
		return nil, nil
	}
	if msg.IsResponse() {
		// Late or duplicate response: logged by the correlation manager,
		// never delivered as a stray message.
		return nil, nil
	}

	if msg.IsPointToPoint() {
		res := r.Send(ctx, msg)
		return []contracts.DeliveryResult{res}, nil
	}

	return r.Publish(ctx, msg), nil
}

// Send delivers msg to its single recipient.
func (r *MessageRouter) Send(ctx context.Context, msg *contracts.Message) contracts.DeliveryResult {
	r.stats.recordRouted(msg.Type, 1)
	res := r.engine.Deliver(ctx, msg, msg.To)
	r.stats.recordResult(res)
	return res
}

// Publish fans msg out to every subscriber whose pattern matches msg.Type,
// excluding the sender. Deliveries run concurrently; each recipient's
// outcome is independent.
func (r *MessageRouter) Publish(ctx context.Context, msg *contracts.Message) []contracts.DeliveryResult {
	started := time.Now()
	subscribers := r.registry.SubscribersFor(msg.Type)

	recipients := subscribers[:0:0]
	for _, id := range subscribers {
		if id != msg.From {
			recipients = append(recipients, id)
		}
	}

	if r.perfLogging {
		r.logger.Debug("resolved subscribers",
			"type", msg.Type,
			"recipients", len(recipients),
			"decisionTime", time.Since(started))
	}

	r.stats.recordRouted(msg.Type, len(recipients))
	results := r.fanOut(ctx, msg, recipients, r.batchSize)
	for _, res := range results {
		r.stats.recordResult(res)
	}
	return results
}

// Request registers a pending request, attaches its correlation ID to a
// copy of msg, and dispatches it point-to-point. The returned handle
// resolves with the matching response or rejects with REQUEST_TIMEOUT.
// Validation failures surface synchronously and cancel the pending entry.
func (r *MessageRouter) Request(ctx context.Context, msg *contracts.Message, timeout time.Duration) (*PendingRequest, error) {
	if msg == nil {
		return nil, fmt.Errorf("message cannot be nil")
	}
	if !msg.IsPointToPoint() {
		return nil, fmt.Errorf("request requires a single recipient")
	}
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	correlationID := NewCorrelationID()
	pending, err := r.correlation.Register(correlationID, msg.From, timeout)
	if err != nil {
		return nil, err
	}

	out := msg.WithCorrelation(correlationID)
	res := r.Send(ctx, out)
	if !res.Success && res.Kind != contracts.FailureTimeout {
		// The request can never be answered; fail the handle now rather
		// than letting the caller wait out the full timeout.
		pending.complete(nil, res.Err)
		r.correlation.remove(correlationID)
		return nil, res.Err
	}

	return pending, nil
}

// Respond builds and routes the response to an earlier request message. The
// response inherits the request's correlation ID and is addressed to the
// requester.
func (r *MessageRouter) Respond(ctx context.Context, request *contracts.Message, responder string, payload []byte) error {
	if request == nil {
		return fmt.Errorf("request cannot be nil")
	}
	if request.CorrelationID == "" {
		return fmt.Errorf("message %s carries no correlation ID", request.ID)
	}

	response := contracts.NewMessage(responder, request.From, request.Type+".response", payload).
		WithCorrelation(request.CorrelationID)
	_, err := r.Route(ctx, response)
	return err
}

// Stats returns a snapshot of routing statistics.
func (r *MessageRouter) Stats() RoutingStats {
	return r.stats.Snapshot()
}

func (r *MessageRouter) runMiddleware(ctx context.Context, msg *contracts.Message) error {
	if len(r.middleware) == 0 {
		return nil
	}

	final := MessageHandlerFunc(func(context.Context, *contracts.Message) error { return nil })
	chain := MessageHandler(final)
	for i := len(r.middleware) - 1; i >= 0; i-- {
		mw, next := r.middleware[i], chain
		chain = MessageHandlerFunc(func(ctx context.Context, m *contracts.Message) error {
			return mw(ctx, m, next)
		})
	}
	return chain.Handle(ctx, msg)
}
