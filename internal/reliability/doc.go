// Package reliability provides the retry and circuit breaking primitives the
// delivery engine builds on.
//
//   - RetryPolicy / Retry: deterministic exponential backoff schedules, run
//     through cenkalti/backoff with context-aware waits and Permanent error
//     short-circuiting.
//   - Breaker: a per-target circuit breaker whose open state is left only by
//     an external health probe, never by a bare timeout. The monitor owns the
//     probe schedule; the breaker owns the state machine.
//
// All types are safe for concurrent use.
package reliability
