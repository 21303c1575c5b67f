package pattern

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher(t *testing.T) {
	t.Run("cached results agree with direct matching", func(t *testing.T) {
		m := NewMatcher(64)
		cases := []struct {
			pattern     string
			messageType string
		}{
			{"trade.*", "trade.executed"},
			{"trade.*", "trade.settlement.final"},
			{"*.executed", "trade.executed"},
			{"a.b.c", "a.b.c"},
			{"a.*.c", "a.x.c"},
		}

		for _, tc := range cases {
			direct := MustCompile(tc.pattern).Matches(tc.messageType)
			// First call populates the cache, second must agree.
			assert.Equal(t, direct, m.Matches(tc.pattern, tc.messageType))
			assert.Equal(t, direct, m.Matches(tc.pattern, tc.messageType))
		}
	})

	t.Run("invalid pattern never matches", func(t *testing.T) {
		m := NewMatcher(16)
		assert.False(t, m.Matches("a..b", "a.b"))
	})

	t.Run("compile reuses cached compilation", func(t *testing.T) {
		m := NewMatcher(16)
		first, err := m.Compile("trade.*")
		require.NoError(t, err)
		second, err := m.Compile("trade.*")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("cache stays within its bound", func(t *testing.T) {
		m := NewMatcher(8)
		for i := 0; i < 100; i++ {
			m.Matches("trade.*", fmt.Sprintf("trade.t%d", i))
		}
		assert.LessOrEqual(t, m.Len(), 8)
	})

	t.Run("eviction does not change results", func(t *testing.T) {
		m := NewMatcher(2)
		assert.True(t, m.Matches("trade.*", "trade.executed"))
		// Push the first entry out.
		m.Matches("order.*", "order.created")
		m.Matches("risk.*", "risk.flagged")
		assert.True(t, m.Matches("trade.*", "trade.executed"))
	})

	t.Run("safe under concurrent use", func(t *testing.T) {
		m := NewMatcher(32)
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					pat := fmt.Sprintf("topic%d.*", i%4)
					msgType := fmt.Sprintf("topic%d.event%d", i%4, g)
					assert.True(t, m.Matches(pat, msgType))
				}
			}(g)
		}
		wg.Wait()
	})

	t.Run("purge empties the caches", func(t *testing.T) {
		m := NewMatcher(16)
		m.Matches("trade.*", "trade.executed")
		require.NotZero(t, m.Len())
		m.Purge()
		assert.Zero(t, m.Len())
	})
}
