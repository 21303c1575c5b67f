package reliability

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy describes an exponential backoff schedule. The zero value is
// not usable; construct with NewRetryPolicy or fill every field.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries including the first one.
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
}

// NewRetryPolicy returns the delivery default: 3 attempts total starting at
// 10ms and doubling.
func NewRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 10 * time.Millisecond,
		Multiplier:      2.0,
		MaxInterval:     time.Second,
	}
}

// NextDelay returns the wait before the given retry attempt (attempt 1 is
// the first retry). Deterministic so schedules are unit-testable.
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.MaxInterval > 0 && d > float64(p.MaxInterval) {
		d = float64(p.MaxInterval)
	}
	return time.Duration(d)
}

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Retry surfaces it immediately without further
// attempts. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Retry runs fn until it succeeds, returns a permanent error, the policy is
// exhausted, or ctx is cancelled. The error returned is fn's last error,
// unwrapped from any Permanent marker. attempts reports how many times fn
// ran.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) (attempts int, err error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.Multiplier = policy.Multiplier
	b.MaxInterval = policy.MaxInterval
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0
	b.Reset()

	var schedule backoff.BackOff = backoff.WithContext(b, ctx)
	schedule = backoff.WithMaxRetries(schedule, uint64(policy.MaxAttempts-1))

	operation := func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err = backoff.Retry(operation, schedule)
	var pe *PermanentError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return attempts, err
}
