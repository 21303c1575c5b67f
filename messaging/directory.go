package messaging

import (
	"sort"
	"sync"
)

// StaticDirectory is a thread-safe in-memory AgentDirectory. It is the
// default directory for embedders that do not bring their own lifecycle
// manager, and the one the test suites use.
type StaticDirectory struct {
	mu     sync.RWMutex
	agents map[string]AgentInfo
}

// NewStaticDirectory creates an empty directory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{agents: make(map[string]AgentInfo)}
}

// Add registers or replaces an agent descriptor.
func (d *StaticDirectory) Add(info AgentInfo) {
	d.mu.Lock()
	d.agents[info.ID] = info
	d.mu.Unlock()
}

// Remove deletes an agent. Idempotent.
func (d *StaticDirectory) Remove(id string) {
	d.mu.Lock()
	delete(d.agents, id)
	d.mu.Unlock()
}

// HasAgent implements AgentDirectory.
func (d *StaticDirectory) HasAgent(id string) bool {
	d.mu.RLock()
	_, ok := d.agents[id]
	d.mu.RUnlock()
	return ok
}

// Agent implements AgentDirectory.
func (d *StaticDirectory) Agent(id string) (AgentInfo, bool) {
	d.mu.RLock()
	info, ok := d.agents[id]
	d.mu.RUnlock()
	return info, ok
}

// Agents implements AgentDirectory. The result is sorted by agent ID so
// broadcast recipient resolution is deterministic.
func (d *StaticDirectory) Agents() []AgentInfo {
	d.mu.RLock()
	out := make([]AgentInfo, 0, len(d.agents))
	for _, info := range d.agents {
		out = append(out, info)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
