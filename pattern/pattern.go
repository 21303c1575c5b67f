package pattern

import (
	"strings"

	"github.com/agentbus/agentbus-go/contracts"
)

// MaxDepth is the maximum number of dot-separated segments in a pattern or
// message type.
const MaxDepth = 5

// Wildcard matches exactly one segment, never zero and never several.
const Wildcard = "*"

// CompiledPattern is the parsed form of a subscription pattern. Compilation
// is pure: equal source strings always produce structurally equal patterns,
// so compiled patterns are safe to cache and share between goroutines.
type CompiledPattern struct {
	source   string
	segments []string
}

// Compile parses a dot-notation pattern. It rejects empty patterns, empty
// segments, segments mixing the wildcard with other characters, and patterns
// deeper than MaxDepth.
func Compile(pattern string) (*CompiledPattern, error) {
	if pattern == "" {
		return nil, &contracts.PatternError{Pattern: pattern, Reason: "pattern is empty"}
	}

	segments := strings.Split(pattern, ".")
	if len(segments) > MaxDepth {
		return nil, &contracts.PatternError{Pattern: pattern, Reason: "exceeds maximum depth of 5"}
	}

	for _, seg := range segments {
		if seg == "" {
			return nil, &contracts.PatternError{Pattern: pattern, Reason: "empty segment"}
		}
		if seg != Wildcard && strings.Contains(seg, Wildcard) {
			return nil, &contracts.PatternError{Pattern: pattern, Reason: "wildcard must be a whole segment"}
		}
	}

	return &CompiledPattern{source: pattern, segments: segments}, nil
}

// MustCompile is like Compile but panics on error. For tests and constants.
func MustCompile(pattern string) *CompiledPattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the original pattern string.
func (p *CompiledPattern) Source() string {
	return p.source
}

// Depth returns the number of segments.
func (p *CompiledPattern) Depth() int {
	return len(p.segments)
}

// Matches reports whether the message type satisfies the pattern. A wildcard
// segment consumes exactly one type segment, so "trade.*" matches
// "trade.executed" but not "trade" or "trade.settlement.final".
func (p *CompiledPattern) Matches(messageType string) bool {
	if messageType == "" {
		return false
	}

	rest := messageType
	for i, seg := range p.segments {
		var part string
		if idx := strings.IndexByte(rest, '.'); idx >= 0 {
			part, rest = rest[:idx], rest[idx+1:]
		} else {
			part, rest = rest, ""
		}

		if part == "" {
			return false
		}
		if seg != Wildcard && seg != part {
			return false
		}
		// Segment counts must agree exactly.
		if i == len(p.segments)-1 {
			return rest == ""
		}
		if rest == "" {
			return false
		}
	}
	return false
}
