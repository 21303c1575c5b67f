package contracts

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrapping(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&SubscriptionLimitError{AgentID: "a", Limit: 100}, ErrSubscriptionLimit},
		{&PatternError{Pattern: "a..b", Reason: "empty segment"}, ErrInvalidPattern},
		{&PayloadTooLargeError{MessageID: "m", Size: 2 << 20, Limit: 1 << 20}, ErrMessageTooLarge},
		{&AgentNotFoundError{AgentID: "ghost"}, ErrAgentNotFound},
		{&RequestTimeoutError{CorrelationID: "c", Timeout: time.Second}, ErrRequestTimeout},
		{&BroadcastTooLargeError{Recipients: 150, Limit: 100}, ErrBroadcastTooLarge},
	}

	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.sentinel, tc.err.Error())
		assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tc.err), tc.sentinel)
		assert.NotEmpty(t, tc.err.Error())
	}
}

func TestErrorMessages(t *testing.T) {
	t.Run("messages carry context", func(t *testing.T) {
		err := &SubscriptionLimitError{AgentID: "agent-a", Limit: 100}
		assert.Contains(t, err.Error(), "agent-a")
		assert.Contains(t, err.Error(), "100")

		perr := &PatternError{Pattern: "a..b", Reason: "empty segment"}
		assert.Contains(t, perr.Error(), "a..b")
	})

	t.Run("sentinels are distinct", func(t *testing.T) {
		assert.False(t, errors.Is(ErrQueueFull, ErrCircuitOpen))
		assert.False(t, errors.Is(ErrRequestTimeout, ErrAgentNotFound))
	})
}
