package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agentbus/agentbus-go/contracts"
	"github.com/agentbus/agentbus-go/health"
	"github.com/agentbus/agentbus-go/internal/reliability"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrentDeliveries bounds parallel delivery attempts across
// the whole engine.
const DefaultMaxConcurrentDeliveries = 64

// DeliveryEngine performs the actual delivery of one message to one
// recipient: circuit breaker gate, payload validation, handler or inbox
// delivery, retry with exponential backoff, and outcome reporting to the
// health monitor.
type DeliveryEngine struct {
	directory AgentDirectory
	registry  *SubscriptionRegistry
	monitor   *health.Monitor
	policy    reliability.RetryPolicy

	inboxMu sync.RWMutex
	inboxes map[string]*Inbox

	sem            *semaphore.Weighted
	maxPayload     int
	inboxCapacity  int
	attemptTimeout time.Duration
	logger         *slog.Logger
	stats          engineCounters
}

// EngineOption configures the DeliveryEngine.
type EngineOption func(*DeliveryEngine)

// WithRetryPolicy overrides the delivery retry policy.
func WithRetryPolicy(policy reliability.RetryPolicy) EngineOption {
	return func(e *DeliveryEngine) {
		e.policy = policy
	}
}

// WithMaxConcurrentDeliveries bounds parallel delivery attempts.
func WithMaxConcurrentDeliveries(n int) EngineOption {
	return func(e *DeliveryEngine) {
		if n > 0 {
			e.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithMaxPayloadSize overrides the payload cap.
func WithMaxPayloadSize(n int) EngineOption {
	return func(e *DeliveryEngine) {
		if n > 0 {
			e.maxPayload = n
		}
	}
}

// WithInboxCapacity sets the per-recipient queue bound.
func WithInboxCapacity(n int) EngineOption {
	return func(e *DeliveryEngine) {
		if n > 0 {
			e.inboxCapacity = n
		}
	}
}

// WithAttemptTimeout bounds a single delivery attempt.
func WithAttemptTimeout(d time.Duration) EngineOption {
	return func(e *DeliveryEngine) {
		if d > 0 {
			e.attemptTimeout = d
		}
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *DeliveryEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewDeliveryEngine creates an engine delivering through handlers registered
// in registry, falling back to per-recipient inboxes.
func NewDeliveryEngine(directory AgentDirectory, registry *SubscriptionRegistry, monitor *health.Monitor, opts ...EngineOption) *DeliveryEngine {
	e := &DeliveryEngine{
		directory:      directory,
		registry:       registry,
		monitor:        monitor,
		policy:         reliability.NewRetryPolicy(),
		inboxes:        make(map[string]*Inbox),
		sem:            semaphore.NewWeighted(DefaultMaxConcurrentDeliveries),
		maxPayload:     contracts.MaxPayloadSize,
		inboxCapacity:  DefaultInboxCapacity,
		attemptTimeout: time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deliver attempts delivery of msg to recipient, retrying transient failures
// per the engine's policy. Validation failures and circuit-open rejections
// are terminal and never retried; every real attempt outcome is reported to
// the health monitor.
func (e *DeliveryEngine) Deliver(ctx context.Context, msg *contracts.Message, recipient string) contracts.DeliveryResult {
	start := time.Now()

	if msg.PayloadSize() > e.maxPayload {
		err := &contracts.PayloadTooLargeError{MessageID: msg.ID, Size: msg.PayloadSize(), Limit: e.maxPayload}
		e.logger.Error("rejecting oversized payload",
			"messageId", msg.ID, "recipient", recipient, "size", msg.PayloadSize())
		return e.record(contracts.Failed(msg.ID, recipient, contracts.FailurePayloadTooLarge, err, 0, time.Since(start)))
	}

	if !e.directory.HasAgent(recipient) {
		err := &contracts.AgentNotFoundError{AgentID: recipient}
		e.logger.Error("delivery to unknown agent", "messageId", msg.ID, "recipient", recipient)
		return e.record(contracts.Failed(msg.ID, recipient, contracts.FailureRecipientMissing, err, 0, time.Since(start)))
	}

	if err := e.monitor.Allow(recipient); err != nil {
		e.logger.Warn("circuit open, failing fast",
			"messageId", msg.ID, "recipient", recipient)
		return e.record(contracts.Failed(msg.ID, recipient, contracts.FailureCircuitOpen, contracts.ErrCircuitOpen, 0, time.Since(start)))
	}

	attempts, err := reliability.Retry(ctx, e.policy, func() error {
		return e.attempt(ctx, msg, recipient)
	})

	latency := time.Since(start)
	if err != nil {
		e.monitor.RecordFailure(recipient)
		kind := classifyFailure(err)
		e.logger.Error("delivery failed",
			"messageId", msg.ID,
			"recipient", recipient,
			"kind", string(kind),
			"attempts", attempts,
			"error", err)
		return e.record(contracts.Failed(msg.ID, recipient, kind, err, attempts, latency))
	}

	e.monitor.RecordSuccess(recipient)
	if attempts > 1 {
		e.logger.Warn("delivery succeeded after retry",
			"messageId", msg.ID, "recipient", recipient, "attempts", attempts)
	}
	return e.record(contracts.Delivered(msg.ID, recipient, attempts, latency))
}

// Inbox returns recipient's inbound queue, creating it on first use. Agents
// consume their queued messages from here.
func (e *DeliveryEngine) Inbox(recipient string) *Inbox {
	e.inboxMu.RLock()
	q, ok := e.inboxes[recipient]
	e.inboxMu.RUnlock()
	if ok {
		return q
	}

	e.inboxMu.Lock()
	defer e.inboxMu.Unlock()
	if q, ok := e.inboxes[recipient]; ok {
		return q
	}
	q = NewInbox(e.inboxCapacity)
	e.inboxes[recipient] = q
	return q
}

// DropInbox discards recipient's queue. Called on agent destruction.
func (e *DeliveryEngine) DropInbox(recipient string) {
	e.inboxMu.Lock()
	delete(e.inboxes, recipient)
	e.inboxMu.Unlock()
}

// Stats returns a snapshot of aggregate delivery statistics.
func (e *DeliveryEngine) Stats() EngineStats {
	return e.stats.snapshot()
}

// attempt performs one delivery try: a matching registered handler runs
// synchronously on this worker; otherwise the message is queued on the
// recipient's inbox.
func (e *DeliveryEngine) attempt(ctx context.Context, msg *contracts.Message, recipient string) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return reliability.Permanent(err)
	}
	defer e.sem.Release(1)

	attemptCtx := ctx
	if e.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.attemptTimeout)
		defer cancel()
	}

	if handler := e.registry.HandlerFor(recipient, msg.Type); handler != nil {
		return e.invoke(attemptCtx, handler, msg)
	}

	if err := e.Inbox(recipient).Push(msg); err != nil {
		// A full queue will not drain during a backoff window.
		return reliability.Permanent(err)
	}
	return nil
}

// invoke runs a handler, converting panics into delivery errors so one
// misbehaving agent cannot take down a delivery worker.
func (e *DeliveryEngine) invoke(ctx context.Context, handler MessageHandler, msg *contracts.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	done := ctx.Done()
	select {
	case <-done:
		return reliability.Permanent(ctx.Err())
	default:
	}

	return handler.Handle(ctx, msg)
}

func (e *DeliveryEngine) record(res contracts.DeliveryResult) contracts.DeliveryResult {
	e.stats.record(res)
	return res
}

func classifyFailure(err error) contracts.FailureKind {
	switch {
	case errors.Is(err, contracts.ErrQueueFull):
		return contracts.FailureQueueFull
	case errors.Is(err, contracts.ErrCircuitOpen), errors.Is(err, reliability.ErrBreakerOpen):
		return contracts.FailureCircuitOpen
	case errors.Is(err, contracts.ErrAgentNotFound):
		return contracts.FailureRecipientMissing
	case errors.Is(err, contracts.ErrMessageTooLarge):
		return contracts.FailurePayloadTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return contracts.FailureTimeout
	default:
		return contracts.FailureHandler
	}
}

// EngineStats aggregates delivery outcomes across all recipients.
type EngineStats struct {
	Delivered    uint64
	Failed       uint64
	Retried      uint64
	TotalLatency time.Duration
	MaxLatency   time.Duration
}

// AverageLatency returns the mean delivery latency, zero when nothing has
// been delivered.
func (s EngineStats) AverageLatency() time.Duration {
	total := s.Delivered + s.Failed
	if total == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(total)
}

type engineCounters struct {
	mu           sync.Mutex
	delivered    uint64
	failed       uint64
	retried      uint64
	totalLatency time.Duration
	maxLatency   time.Duration
}

func (c *engineCounters) record(res contracts.DeliveryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.Success {
		c.delivered++
	} else {
		c.failed++
	}
	if res.Attempts > 1 {
		c.retried += uint64(res.Attempts - 1)
	}
	c.totalLatency += res.Latency
	if res.Latency > c.maxLatency {
		c.maxLatency = res.Latency
	}
}

func (c *engineCounters) snapshot() EngineStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return EngineStats{
		Delivered:    c.delivered,
		Failed:       c.failed,
		Retried:      c.retried,
		TotalLatency: c.totalLatency,
		MaxLatency:   c.maxLatency,
	}
}
