package reliability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker(t *testing.T) {
	t.Run("starts closed and allows traffic", func(t *testing.T) {
		b := NewBreaker(3)
		assert.Equal(t, StateClosed, b.State())
		assert.NoError(t, b.Allow())
	})

	t.Run("opens after threshold consecutive failures", func(t *testing.T) {
		b := NewBreaker(3)
		b.RecordFailure()
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State())

		b.RecordFailure()
		assert.Equal(t, StateOpen, b.State())
		assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		b := NewBreaker(3)
		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("stays open without a probe", func(t *testing.T) {
		b := NewBreaker(1)
		b.RecordFailure()
		assert.Equal(t, StateOpen, b.State())
		assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)
		assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)
	})

	t.Run("probe success half-opens and admits one trial", func(t *testing.T) {
		b := NewBreaker(1)
		b.RecordFailure()
		b.MarkProbeSuccess()
		assert.Equal(t, StateHalfOpen, b.State())

		require.NoError(t, b.Allow())
		// Second caller must wait for the trial to resolve.
		assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)
	})

	t.Run("trial success closes the circuit", func(t *testing.T) {
		b := NewBreaker(1)
		b.RecordFailure()
		b.MarkProbeSuccess()
		require.NoError(t, b.Allow())

		b.RecordSuccess()
		assert.Equal(t, StateClosed, b.State())
		assert.NoError(t, b.Allow())

		_, failures, _, _ := b.Snapshot()
		assert.Zero(t, failures)
	})

	t.Run("trial failure reopens the circuit", func(t *testing.T) {
		b := NewBreaker(1)
		b.RecordFailure()
		b.MarkProbeSuccess()
		require.NoError(t, b.Allow())

		b.RecordFailure()
		assert.Equal(t, StateOpen, b.State())
		assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)
	})

	t.Run("probe failure leaves the circuit open", func(t *testing.T) {
		b := NewBreaker(1)
		b.RecordFailure()
		b.MarkProbeFailure()
		assert.Equal(t, StateOpen, b.State())

		_, _, lastProbe, _ := b.Snapshot()
		assert.False(t, lastProbe.IsZero())
	})

	t.Run("snapshot reports failures", func(t *testing.T) {
		b := NewBreaker(5)
		b.RecordFailure()
		b.RecordFailure()

		state, failures, _, lastFailure := b.Snapshot()
		assert.Equal(t, StateClosed, state)
		assert.Equal(t, 2, failures)
		assert.False(t, lastFailure.IsZero())
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
