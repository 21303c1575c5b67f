package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy(t *testing.T) {
	t.Run("default policy", func(t *testing.T) {
		p := NewRetryPolicy()
		assert.Equal(t, 3, p.MaxAttempts)
		assert.Equal(t, 10*time.Millisecond, p.InitialInterval)
		assert.Equal(t, 2.0, p.Multiplier)
	})

	t.Run("delays grow exponentially", func(t *testing.T) {
		p := RetryPolicy{MaxAttempts: 5, InitialInterval: 10 * time.Millisecond, Multiplier: 2.0, MaxInterval: time.Second}
		assert.Equal(t, 10*time.Millisecond, p.NextDelay(1))
		assert.Equal(t, 20*time.Millisecond, p.NextDelay(2))
		assert.Equal(t, 40*time.Millisecond, p.NextDelay(3))
	})

	t.Run("delays cap at max interval", func(t *testing.T) {
		p := RetryPolicy{MaxAttempts: 10, InitialInterval: 10 * time.Millisecond, Multiplier: 2.0, MaxInterval: 50 * time.Millisecond}
		assert.Equal(t, 50*time.Millisecond, p.NextDelay(5))
	})
}

func TestRetry(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, Multiplier: 2.0, MaxInterval: 10 * time.Millisecond}

	t.Run("returns after first success", func(t *testing.T) {
		attempts, err := Retry(context.Background(), policy, func() error { return nil })
		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries transient errors up to max attempts", func(t *testing.T) {
		boom := errors.New("boom")
		attempts, err := Retry(context.Background(), policy, func() error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, attempts)
	})

	t.Run("succeeds on a later attempt", func(t *testing.T) {
		calls := 0
		attempts, err := Retry(context.Background(), policy, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("permanent errors stop immediately", func(t *testing.T) {
		boom := errors.New("fatal")
		attempts, err := Retry(context.Background(), policy, func() error {
			return Permanent(boom)
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, attempts)
	})

	t.Run("permanent marker is unwrapped from the result", func(t *testing.T) {
		boom := errors.New("fatal")
		_, err := Retry(context.Background(), policy, func() error {
			return Permanent(boom)
		})
		assert.Equal(t, boom, err)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		slow := RetryPolicy{MaxAttempts: 10, InitialInterval: 50 * time.Millisecond, Multiplier: 1.0, MaxInterval: 50 * time.Millisecond}
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err := Retry(ctx, slow, func() error {
			calls++
			return errors.New("transient")
		})
		require.Error(t, err)
		assert.Less(t, calls, 10)
	})
}

func TestPermanent(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Permanent(nil))
	})

	t.Run("wraps and unwraps", func(t *testing.T) {
		boom := errors.New("boom")
		err := Permanent(boom)
		assert.True(t, IsPermanent(err))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("plain errors are not permanent", func(t *testing.T) {
		assert.False(t, IsPermanent(errors.New("boom")))
	})
}
