package pattern

import (
	"testing"

	"github.com/agentbus/agentbus-go/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	t.Run("compiles plain patterns", func(t *testing.T) {
		p, err := Compile("trade.executed")
		require.NoError(t, err)
		assert.Equal(t, "trade.executed", p.Source())
		assert.Equal(t, 2, p.Depth())
	})

	t.Run("compiles wildcard segments", func(t *testing.T) {
		p, err := Compile("trade.*.settled")
		require.NoError(t, err)
		assert.Equal(t, 3, p.Depth())
	})

	t.Run("rejects empty pattern", func(t *testing.T) {
		_, err := Compile("")
		assert.ErrorIs(t, err, contracts.ErrInvalidPattern)
	})

	t.Run("rejects empty segments", func(t *testing.T) {
		for _, pat := range []string{".", "trade.", ".trade", "a..b"} {
			_, err := Compile(pat)
			assert.ErrorIs(t, err, contracts.ErrInvalidPattern, pat)
		}
	})

	t.Run("rejects depth over five", func(t *testing.T) {
		_, err := Compile("a.b.c.d.e.f")
		assert.ErrorIs(t, err, contracts.ErrInvalidPattern)

		_, err = Compile("a.b.c.d.e")
		assert.NoError(t, err)
	})

	t.Run("rejects wildcard mixed into a segment", func(t *testing.T) {
		for _, pat := range []string{"trade.ex*", "*x.y", "a.b*c"} {
			_, err := Compile(pat)
			assert.ErrorIs(t, err, contracts.ErrInvalidPattern, pat)
		}
	})

	t.Run("equal sources compile equal", func(t *testing.T) {
		a, err := Compile("a.*.c")
		require.NoError(t, err)
		b, err := Compile("a.*.c")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestMatches(t *testing.T) {
	cases := []struct {
		pattern     string
		messageType string
		want        bool
	}{
		{"trade.executed", "trade.executed", true},
		{"trade.executed", "trade.cancelled", false},
		{"trade.*", "trade.executed", true},
		{"trade.*", "trade", false},
		{"trade.*", "trade.settlement.final", false},
		{"*", "trade", true},
		{"*", "trade.executed", false},
		{"*.executed", "trade.executed", true},
		{"*.executed", "order.executed", true},
		{"*.executed", "executed", false},
		{"a.*.c", "a.b.c", true},
		{"a.*.c", "a.c", false},
		{"a.*.c", "a.b.b.c", false},
		{"a.b.c.d.e", "a.b.c.d.e", true},
		{"trade.executed", "", false},
	}

	for _, tc := range cases {
		p := MustCompile(tc.pattern)
		assert.Equal(t, tc.want, p.Matches(tc.messageType),
			"pattern %q against %q", tc.pattern, tc.messageType)
	}
}

func TestMustCompile(t *testing.T) {
	t.Run("panics on invalid pattern", func(t *testing.T) {
		assert.Panics(t, func() { MustCompile("a..b") })
	})
}
