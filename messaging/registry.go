package messaging

import (
	"sort"
	"sync"
	"time"

	"github.com/agentbus/agentbus-go/contracts"
	"github.com/agentbus/agentbus-go/pattern"
)

// DefaultSubscriptionLimit caps the number of active subscriptions per agent.
const DefaultSubscriptionLimit = 100

// SubscriptionInfo is one agent's subscription to a pattern. Owned by the
// registry; callers get copies.
type SubscriptionInfo struct {
	AgentID   string
	Pattern   string
	Handler   MessageHandler
	CreatedAt time.Time
}

// agentSubscriptions holds one agent's patterns behind its own lock so
// subscribe traffic for different agents never contends.
type agentSubscriptions struct {
	mu       sync.RWMutex
	patterns map[string]*SubscriptionInfo
}

// SubscriptionRegistry stores every agent's active subscriptions and resolves
// subscribers for a message type through the cached pattern matcher.
type SubscriptionRegistry struct {
	mu      sync.RWMutex
	agents  map[string]*agentSubscriptions
	matcher *pattern.Matcher
	limit   int
}

// RegistryOption configures the SubscriptionRegistry.
type RegistryOption func(*SubscriptionRegistry)

// WithSubscriptionLimit overrides the per-agent subscription cap.
func WithSubscriptionLimit(limit int) RegistryOption {
	return func(r *SubscriptionRegistry) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// NewSubscriptionRegistry creates a registry backed by the given matcher.
func NewSubscriptionRegistry(matcher *pattern.Matcher, opts ...RegistryOption) *SubscriptionRegistry {
	r := &SubscriptionRegistry{
		agents:  make(map[string]*agentSubscriptions),
		matcher: matcher,
		limit:   DefaultSubscriptionLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers agentID for messages matching pat. The pattern is
// validated before any state changes; hitting the per-agent limit rejects
// with ErrSubscriptionLimit and leaves the registry untouched. Subscribing
// twice to the same pattern replaces the handler.
func (r *SubscriptionRegistry) Subscribe(agentID, pat string, handler MessageHandler) error {
	if _, err := r.matcher.Compile(pat); err != nil {
		return err
	}

	subs := r.agent(agentID)
	subs.mu.Lock()
	defer subs.mu.Unlock()

	if _, exists := subs.patterns[pat]; !exists && len(subs.patterns) >= r.limit {
		return &contracts.SubscriptionLimitError{AgentID: agentID, Limit: r.limit}
	}

	subs.patterns[pat] = &SubscriptionInfo{
		AgentID:   agentID,
		Pattern:   pat,
		Handler:   handler,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// Unsubscribe removes one subscription. Removing a pattern the agent never
// subscribed to is a no-op.
func (r *SubscriptionRegistry) Unsubscribe(agentID, pat string) {
	r.mu.RLock()
	subs, ok := r.agents[agentID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	subs.mu.Lock()
	delete(subs.patterns, pat)
	subs.mu.Unlock()
}

// RemoveAll drops every subscription held by agentID. Called on agent
// destruction; idempotent and O(1) with respect to the agent's pattern count.
func (r *SubscriptionRegistry) RemoveAll(agentID string) {
	r.mu.Lock()
	delete(r.agents, agentID)
	r.mu.Unlock()
}

// SubscribersFor returns the IDs of all agents with at least one pattern
// matching messageType, sorted for deterministic fan-out.
func (r *SubscriptionRegistry) SubscribersFor(messageType string) []string {
	r.mu.RLock()
	agents := make(map[string]*agentSubscriptions, len(r.agents))
	for id, subs := range r.agents {
		agents[id] = subs
	}
	r.mu.RUnlock()

	var out []string
	for id, subs := range agents {
		subs.mu.RLock()
		for pat := range subs.patterns {
			if r.matcher.Matches(pat, messageType) {
				out = append(out, id)
				break
			}
		}
		subs.mu.RUnlock()
	}

	sort.Strings(out)
	return out
}

// HandlerFor returns the handler of the first subscription of agentID that
// matches messageType, or nil if the agent has no matching handler.
func (r *SubscriptionRegistry) HandlerFor(agentID, messageType string) MessageHandler {
	r.mu.RLock()
	subs, ok := r.agents[agentID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	subs.mu.RLock()
	defer subs.mu.RUnlock()

	// Iterate in pattern order so the choice is stable when several match.
	pats := make([]string, 0, len(subs.patterns))
	for pat := range subs.patterns {
		pats = append(pats, pat)
	}
	sort.Strings(pats)

	for _, pat := range pats {
		info := subs.patterns[pat]
		if info.Handler != nil && r.matcher.Matches(pat, messageType) {
			return info.Handler
		}
	}
	return nil
}

// Subscriptions returns copies of agentID's subscriptions sorted by pattern.
func (r *SubscriptionRegistry) Subscriptions(agentID string) []SubscriptionInfo {
	r.mu.RLock()
	subs, ok := r.agents[agentID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	subs.mu.RLock()
	out := make([]SubscriptionInfo, 0, len(subs.patterns))
	for _, info := range subs.patterns {
		out = append(out, *info)
	}
	subs.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out
}

// Count returns the number of active subscriptions for agentID.
func (r *SubscriptionRegistry) Count(agentID string) int {
	r.mu.RLock()
	subs, ok := r.agents[agentID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	subs.mu.RLock()
	defer subs.mu.RUnlock()
	return len(subs.patterns)
}

func (r *SubscriptionRegistry) agent(agentID string) *agentSubscriptions {
	r.mu.RLock()
	subs, ok := r.agents[agentID]
	r.mu.RUnlock()
	if ok {
		return subs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if subs, ok := r.agents[agentID]; ok {
		return subs
	}
	subs = &agentSubscriptions{patterns: make(map[string]*SubscriptionInfo)}
	r.agents[agentID] = subs
	return subs
}
