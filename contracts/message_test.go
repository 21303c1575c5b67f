package contracts

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	t.Run("generates unique ids", func(t *testing.T) {
		a := NewMessage("x", "y", "trade.executed", nil)
		b := NewMessage("x", "y", "trade.executed", nil)

		_, err := uuid.Parse(a.ID)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("stamps a utc timestamp", func(t *testing.T) {
		m := NewMessage("x", "y", "trade.executed", nil)
		assert.Equal(t, time.UTC, m.Timestamp.Location())
		assert.WithinDuration(t, time.Now().UTC(), m.Timestamp, time.Second)
	})

	t.Run("timestamps are non-decreasing", func(t *testing.T) {
		prev := NewMessage("x", "y", "t.a", nil)
		for i := 0; i < 100; i++ {
			next := NewMessage("x", "y", "t.a", nil)
			assert.False(t, next.Timestamp.Before(prev.Timestamp))
			prev = next
		}
	})

	t.Run("defaults to normal priority", func(t *testing.T) {
		m := NewMessage("x", "y", "trade.executed", nil)
		assert.Equal(t, PriorityNormal, m.Priority)
	})
}

func TestMessageCopies(t *testing.T) {
	t.Run("with helpers never mutate the original", func(t *testing.T) {
		m := NewMessage("x", "", "trade.executed", []byte("p"))

		c := m.WithCorrelation("corr-1")
		assert.Empty(t, m.CorrelationID)
		assert.Equal(t, "corr-1", c.CorrelationID)
		assert.Equal(t, m.ID, c.ID)

		p := m.WithPriority(PriorityHigh)
		assert.Equal(t, PriorityNormal, m.Priority)
		assert.Equal(t, PriorityHigh, p.Priority)

		r := m.WithRecipient("agent-z")
		assert.Empty(t, m.To)
		assert.Equal(t, "agent-z", r.To)
	})

	t.Run("addressing predicates", func(t *testing.T) {
		assert.True(t, NewMessage("x", "y", "t.a", nil).IsPointToPoint())
		assert.False(t, NewMessage("x", "", "t.a", nil).IsPointToPoint())
		assert.True(t, NewMessage("x", "y", "t.a", nil).WithCorrelation("c").IsResponse())
		assert.False(t, NewMessage("x", "y", "t.a", nil).IsResponse())
	})
}

func TestPriorityString(t *testing.T) {
	assert.Equal(t, "low", PriorityLow.String())
	assert.Equal(t, "normal", PriorityNormal.String())
	assert.Equal(t, "high", PriorityHigh.String())
	assert.Equal(t, "unknown", Priority(9).String())
}
