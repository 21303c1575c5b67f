package reliability

import (
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned by Allow while the circuit is open or while the
// half-open trial slot is taken.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// Breaker is a probe-driven circuit breaker for one delivery target.
//
// Unlike a timeout-driven breaker, an open Breaker never lets traffic through
// on its own: it stays open until MarkProbeSuccess moves it to half-open, at
// which point Allow admits exactly one trial delivery. The trial's outcome
// closes or re-opens the circuit. The owning monitor runs the probes.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	failureThreshold int
	trialInFlight    bool
	lastFailure      time.Time
	lastProbe        time.Time
	lastTransition   time.Time
}

// NewBreaker creates a closed breaker that opens after threshold consecutive
// failures. Thresholds below 1 default to 5.
func NewBreaker(threshold int) *Breaker {
	if threshold < 1 {
		threshold = 5
	}
	return &Breaker{
		state:            StateClosed,
		failureThreshold: threshold,
		lastTransition:   time.Now(),
	}
}

// Allow reports whether a delivery attempt may proceed. In half-open state
// only the first caller gets the trial slot; everyone else sees
// ErrBreakerOpen until the trial resolves.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if b.trialInFlight {
			return ErrBreakerOpen
		}
		b.trialInFlight = true
		return nil
	default:
		return ErrBreakerOpen
	}
}

// RecordSuccess notes a successful delivery. It resets the consecutive
// failure count; a half-open trial success closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
	b.trialInFlight = false
}

// RecordFailure notes a failed delivery and returns the resulting state. A
// half-open trial failure re-opens the circuit immediately; in closed state
// the circuit opens once consecutive failures reach the threshold.
func (b *Breaker) RecordFailure() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.failureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
	b.trialInFlight = false
	return b.state
}

// MarkProbeSuccess is called by the health monitor when a probe of the
// target succeeds. An open circuit moves to half-open, admitting one trial.
func (b *Breaker) MarkProbeSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastProbe = time.Now()
	if b.state == StateOpen {
		b.transition(StateHalfOpen)
		b.trialInFlight = false
	}
}

// MarkProbeFailure records a failed probe without changing state.
func (b *Breaker) MarkProbeFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastProbe = time.Now()
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns the state, consecutive failures and probe/failure times.
func (b *Breaker) Snapshot() (state State, failures int, lastProbe, lastFailure time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.failures, b.lastProbe, b.lastFailure
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	b.state = to
	b.lastTransition = time.Now()
	if to == StateClosed {
		b.failures = 0
	}
}
