package pattern

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the match-result cache when no size is configured.
const DefaultCacheSize = 1024

// Matcher evaluates patterns against message types with two bounded LRU
// caches: one for compiled patterns and one for (pattern, type) match
// outcomes. Broadcast-time matching evaluates many patterns against the same
// type, so hits dominate once a workload warms up.
//
// Both caches are safe for concurrent use; reads on unrelated keys do not
// block each other beyond the cache's internal lock.
type Matcher struct {
	compiled *lru.Cache[string, *CompiledPattern]
	results  *lru.Cache[matchKey, bool]
}

type matchKey struct {
	pattern     string
	messageType string
}

// NewMatcher creates a matcher with the given result-cache capacity. Sizes
// below 1 fall back to DefaultCacheSize.
func NewMatcher(cacheSize int) *Matcher {
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}
	compiled, _ := lru.New[string, *CompiledPattern](cacheSize)
	results, _ := lru.New[matchKey, bool](cacheSize)
	return &Matcher{compiled: compiled, results: results}
}

// Compile returns the compiled form of pattern, reusing a cached compilation
// when available. Compilation errors are not cached; they are cheap and rare.
func (m *Matcher) Compile(pattern string) (*CompiledPattern, error) {
	if p, ok := m.compiled.Get(pattern); ok {
		return p, nil
	}
	p, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	m.compiled.Add(pattern, p)
	return p, nil
}

// Matches reports whether messageType satisfies pattern, consulting the
// match cache first. Invalid patterns never match.
func (m *Matcher) Matches(pattern, messageType string) bool {
	key := matchKey{pattern: pattern, messageType: messageType}
	if hit, ok := m.results.Get(key); ok {
		return hit
	}

	p, err := m.Compile(pattern)
	if err != nil {
		return false
	}

	matched := p.Matches(messageType)
	m.results.Add(key, matched)
	return matched
}

// Purge drops all cached compilations and match results.
func (m *Matcher) Purge() {
	m.compiled.Purge()
	m.results.Purge()
}

// Len returns the current number of cached match results.
func (m *Matcher) Len() int {
	return m.results.Len()
}
