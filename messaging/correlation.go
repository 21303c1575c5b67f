package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agentbus/agentbus-go/contracts"
	"github.com/google/uuid"
)

// Request timeout bounds. Configured defaults are clamped into this range;
// explicit per-call timeouts are honored below the floor so short-lived
// exchanges (and tests) can opt in, but never above the ceiling.
const (
	MinRequestTimeout     = time.Second
	MaxRequestTimeout     = 60 * time.Second
	DefaultRequestTimeout = 5 * time.Second
)

// PendingRequest is the caller's handle on an in-flight request. It resolves
// exactly once: with the matching response, with REQUEST_TIMEOUT, or with a
// cancellation when the sender is destroyed.
type PendingRequest struct {
	CorrelationID string
	SenderID      string
	CreatedAt     time.Time
	TimeoutAt     time.Time

	mu       sync.Mutex
	resolved bool
	response *contracts.Message
	err      error
	done     chan struct{}
	timer    *time.Timer
}

// Done is closed when the request has resolved either way.
func (p *PendingRequest) Done() <-chan struct{} {
	return p.done
}

// Result returns the resolution. Valid only after Done is closed.
func (p *PendingRequest) Result() (*contracts.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.response, p.err
}

// Wait blocks until the request resolves or ctx is cancelled.
func (p *PendingRequest) Wait(ctx context.Context) (*contracts.Message, error) {
	select {
	case <-p.done:
		return p.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// complete stores the resolution. Returns false if already resolved.
func (p *PendingRequest) complete(response *contracts.Message, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved {
		return false
	}
	p.resolved = true
	p.response = response
	p.err = err
	if p.timer != nil {
		p.timer.Stop()
	}
	close(p.done)
	return true
}

// CorrelationManager issues correlation IDs and tracks pending requests until
// a matching response arrives or the per-request timeout fires.
type CorrelationManager struct {
	mu      sync.RWMutex
	pending map[string]*PendingRequest
	logger  *slog.Logger
}

// CorrelationOption configures the CorrelationManager.
type CorrelationOption func(*CorrelationManager)

// WithCorrelationLogger sets the logger.
func WithCorrelationLogger(logger *slog.Logger) CorrelationOption {
	return func(m *CorrelationManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewCorrelationManager creates an empty manager.
func NewCorrelationManager(opts ...CorrelationOption) *CorrelationManager {
	m := &CorrelationManager{
		pending: make(map[string]*PendingRequest),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewCorrelationID returns a fresh correlation token.
func NewCorrelationID() string {
	return uuid.New().String()
}

// Register tracks a new pending request. A zero or negative timeout takes
// the default; timeouts above MaxRequestTimeout are capped. The timeout
// fires automatically, resolving the handle with ErrRequestTimeout exactly
// once and removing the entry.
func (m *CorrelationManager) Register(correlationID, senderID string, timeout time.Duration) (*PendingRequest, error) {
	if correlationID == "" {
		return nil, fmt.Errorf("correlation ID is required")
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if timeout > MaxRequestTimeout {
		timeout = MaxRequestTimeout
	}

	now := time.Now().UTC()
	req := &PendingRequest{
		CorrelationID: correlationID,
		SenderID:      senderID,
		CreatedAt:     now,
		TimeoutAt:     now.Add(timeout),
		done:          make(chan struct{}),
	}

	m.mu.Lock()
	if _, exists := m.pending[correlationID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("correlation ID %s already registered", correlationID)
	}
	m.pending[correlationID] = req
	m.mu.Unlock()

	req.mu.Lock()
	req.timer = time.AfterFunc(timeout, func() {
		m.timeout(correlationID, timeout)
	})
	req.mu.Unlock()

	return req, nil
}

// Resolve completes the pending request for correlationID with response.
// First resolution wins: a duplicate or unknown correlation ID returns false
// and is logged at Warn, never surfaced as an error to the responder.
func (m *CorrelationManager) Resolve(correlationID string, response *contracts.Message) bool {
	m.mu.Lock()
	req, ok := m.pending[correlationID]
	if ok {
		delete(m.pending, correlationID)
	}
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("discarding response with no pending request",
			"correlationId", correlationID)
		return false
	}

	if !req.complete(response, nil) {
		m.logger.Warn("duplicate resolution for correlation ID",
			"correlationId", correlationID)
		return false
	}
	return true
}

// CancelForSender fails every outstanding request registered by agentID.
// Called when the agent is destroyed.
func (m *CorrelationManager) CancelForSender(agentID string) int {
	m.mu.Lock()
	var cancelled []*PendingRequest
	for id, req := range m.pending {
		if req.SenderID == agentID {
			cancelled = append(cancelled, req)
			delete(m.pending, id)
		}
	}
	m.mu.Unlock()

	for _, req := range cancelled {
		req.complete(nil, fmt.Errorf("sender %s destroyed: %w", agentID, context.Canceled))
	}
	return len(cancelled)
}

// remove drops the entry without resolving the handle. Used when dispatch
// fails synchronously and the handle was completed by the caller.
func (m *CorrelationManager) remove(correlationID string) {
	m.mu.Lock()
	delete(m.pending, correlationID)
	m.mu.Unlock()
}

// PendingCount returns the number of outstanding requests.
func (m *CorrelationManager) PendingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending)
}

func (m *CorrelationManager) timeout(correlationID string, timeout time.Duration) {
	m.mu.Lock()
	req, ok := m.pending[correlationID]
	if ok {
		delete(m.pending, correlationID)
	}
	m.mu.Unlock()

	// Already resolved; the resolve path removed the entry first.
	if !ok {
		return
	}

	err := &contracts.RequestTimeoutError{CorrelationID: correlationID, Timeout: timeout}
	if req.complete(nil, err) {
		m.logger.Warn("request timed out",
			"correlationId", correlationID,
			"sender", req.SenderID,
			"timeout", timeout)
	}
}
