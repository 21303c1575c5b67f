// Package pattern implements dot-notation wildcard matching for message
// types.
//
// Patterns are up to five dot-separated segments; a "*" segment matches
// exactly one type segment. "trade.*" matches "trade.executed" but not
// "trade" or "trade.settlement.final". Matcher wraps compilation and
// evaluation with bounded LRU caches so hot message types are matched
// without re-parsing their patterns.
package pattern
