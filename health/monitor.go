package health

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agentbus/agentbus-go/internal/reliability"
)

// CircuitState mirrors the breaker state for report consumers.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

// ComponentHealth is the observed health of one delivery target.
type ComponentHealth struct {
	Target              string       `json:"target"`
	State               CircuitState `json:"state"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	LastProbe           time.Time    `json:"lastProbe,omitempty"`
	LastFailure         time.Time    `json:"lastFailure,omitempty"`
}

// Report is a point-in-time snapshot of every tracked target. Callers own
// the snapshot; mutating it has no effect on the monitor.
type Report struct {
	Timestamp time.Time         `json:"timestamp"`
	Targets   []ComponentHealth `json:"targets"`
}

// Healthy reports whether no tracked target has an open circuit.
func (r Report) Healthy() bool {
	for _, t := range r.Targets {
		if t.State == CircuitOpen {
			return false
		}
	}
	return true
}

// Prober checks whether a degraded target is reachable again. Probes run on
// the monitor's schedule, only for targets whose circuit is open.
type Prober interface {
	Probe(ctx context.Context, target string) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, target string) error

func (f ProberFunc) Probe(ctx context.Context, target string) error {
	return f(ctx, target)
}

// DefaultProbeInterval is how often open targets are probed.
const DefaultProbeInterval = 5 * time.Second

// Monitor tracks a circuit breaker per delivery target and probes open
// circuits for recovery.
//
// Breakers are created lazily on first use. The target map is guarded by one
// RWMutex but each breaker synchronizes independently, so recording outcomes
// for different targets never contends.
type Monitor struct {
	mu       sync.RWMutex
	breakers map[string]*reliability.Breaker

	threshold     int
	probeInterval time.Duration
	prober        Prober
	logger        *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stop      chan struct{}
	done      chan struct{}
}

// MonitorOption configures the Monitor.
type MonitorOption func(*Monitor)

// WithProber sets the recovery probe. Without one, open circuits stay open
// until probed manually via ProbeNow.
func WithProber(p Prober) MonitorOption {
	return func(m *Monitor) {
		m.prober = p
	}
}

// WithProbeInterval overrides the probe period.
func WithProbeInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.probeInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMonitor creates a monitor whose breakers open after threshold
// consecutive failures.
func NewMonitor(threshold int, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		breakers:      make(map[string]*reliability.Breaker),
		threshold:     threshold,
		probeInterval: DefaultProbeInterval,
		logger:        slog.Default(),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the probe loop. It returns immediately; the loop runs until
// Stop is called or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.started = true
		go m.probeLoop(ctx)
	})
}

// Stop terminates the probe loop and waits for it to exit. Safe to call
// whether or not Start ran.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	if m.started {
		<-m.done
	}
}

// Allow reports whether a delivery to target may proceed, per that target's
// circuit state.
func (m *Monitor) Allow(target string) error {
	return m.breaker(target).Allow()
}

// RecordSuccess notes a successful delivery to target.
func (m *Monitor) RecordSuccess(target string) {
	m.breaker(target).RecordSuccess()
}

// RecordFailure notes a failed delivery to target, opening the circuit once
// the failure threshold is reached.
func (m *Monitor) RecordFailure(target string) {
	state := m.breaker(target).RecordFailure()
	if state == reliability.StateOpen {
		m.logger.Warn("circuit opened for target",
			"target", target,
			"threshold", m.threshold)
	}
}

// Report returns a snapshot of all tracked targets, sorted by target id.
func (m *Monitor) Report() Report {
	m.mu.RLock()
	targets := make([]ComponentHealth, 0, len(m.breakers))
	for id, b := range m.breakers {
		state, failures, lastProbe, lastFailure := b.Snapshot()
		targets = append(targets, ComponentHealth{
			Target:              id,
			State:               circuitState(state),
			ConsecutiveFailures: failures,
			LastProbe:           lastProbe,
			LastFailure:         lastFailure,
		})
	}
	m.mu.RUnlock()

	sort.Slice(targets, func(i, j int) bool { return targets[i].Target < targets[j].Target })
	return Report{Timestamp: time.Now().UTC(), Targets: targets}
}

// Forget drops tracking state for target. Used when an agent is destroyed.
func (m *Monitor) Forget(target string) {
	m.mu.Lock()
	delete(m.breakers, target)
	m.mu.Unlock()
}

// ProbeNow probes every open target once, regardless of the schedule.
func (m *Monitor) ProbeNow(ctx context.Context) {
	if m.prober == nil {
		return
	}
	for id, b := range m.openTargets() {
		if err := m.prober.Probe(ctx, id); err != nil {
			b.MarkProbeFailure()
			m.logger.Warn("health probe failed", "target", id, "error", err)
			continue
		}
		b.MarkProbeSuccess()
		m.logger.Info("health probe succeeded, admitting trial delivery", "target", id)
	}
}

func (m *Monitor) probeLoop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.ProbeNow(ctx)
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) openTargets() map[string]*reliability.Breaker {
	m.mu.RLock()
	defer m.mu.RUnlock()

	open := make(map[string]*reliability.Breaker)
	for id, b := range m.breakers {
		if b.State() == reliability.StateOpen {
			open[id] = b
		}
	}
	return open
}

func (m *Monitor) breaker(target string) *reliability.Breaker {
	m.mu.RLock()
	b, ok := m.breakers[target]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[target]; ok {
		return b
	}
	b = reliability.NewBreaker(m.threshold)
	m.breakers[target] = b
	return b
}

func circuitState(s reliability.State) CircuitState {
	switch s {
	case reliability.StateOpen:
		return CircuitOpen
	case reliability.StateHalfOpen:
		return CircuitHalfOpen
	default:
		return CircuitClosed
	}
}
