package messaging

import (
	"sync"
	"time"

	"github.com/agentbus/agentbus-go/contracts"
)

// RoutingStats is a snapshot of router activity.
type RoutingStats struct {
	MessagesRouted uint64
	Broadcasts     uint64
	Delivered      uint64
	Failed         uint64
	ByType         map[string]uint64
	TotalLatency   time.Duration
	MaxLatency     time.Duration
	Timestamp      time.Time
}

// AverageLatency returns the mean per-recipient delivery latency.
func (s RoutingStats) AverageLatency() time.Duration {
	total := s.Delivered + s.Failed
	if total == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(total)
}

// RouterStats collects in-memory routing counters. It deliberately stays
// exporter-agnostic; the host application can feed snapshots into whatever
// metrics pipeline it runs.
type RouterStats struct {
	mu           sync.Mutex
	routed       uint64
	broadcasts   uint64
	delivered    uint64
	failed       uint64
	byType       map[string]uint64
	totalLatency time.Duration
	maxLatency   time.Duration
}

// NewRouterStats creates an empty collector.
func NewRouterStats() *RouterStats {
	return &RouterStats{byType: make(map[string]uint64)}
}

func (s *RouterStats) recordRouted(messageType string, recipients int) {
	s.mu.Lock()
	s.routed++
	s.byType[messageType] += uint64(recipients)
	s.mu.Unlock()
}

func (s *RouterStats) recordBroadcast(messageType string, recipients int) {
	s.mu.Lock()
	s.routed++
	s.broadcasts++
	s.byType[messageType] += uint64(recipients)
	s.mu.Unlock()
}

func (s *RouterStats) recordResult(res contracts.DeliveryResult) {
	s.mu.Lock()
	if res.Success {
		s.delivered++
	} else {
		s.failed++
	}
	s.totalLatency += res.Latency
	if res.Latency > s.maxLatency {
		s.maxLatency = res.Latency
	}
	s.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (s *RouterStats) Snapshot() RoutingStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := make(map[string]uint64, len(s.byType))
	for k, v := range s.byType {
		byType[k] = v
	}
	return RoutingStats{
		MessagesRouted: s.routed,
		Broadcasts:     s.broadcasts,
		Delivered:      s.delivered,
		Failed:         s.failed,
		ByType:         byType,
		TotalLatency:   s.totalLatency,
		MaxLatency:     s.maxLatency,
		Timestamp:      time.Now().UTC(),
	}
}
