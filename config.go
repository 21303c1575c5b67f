package agentbus

import (
	"fmt"
	"time"

	"github.com/agentbus/agentbus-go/contracts"
	"github.com/agentbus/agentbus-go/messaging"
	"github.com/agentbus/agentbus-go/pattern"
)

// MessagingConfig is the one configuration object for a messaging system.
// It is read once at container construction and never mutated afterwards;
// there is no environment or file loading here, the host application injects
// whatever it assembled.
type MessagingConfig struct {
	// MaxConcurrentDeliveries bounds delivery attempts in flight across the
	// whole engine.
	MaxConcurrentDeliveries int
	// DefaultRequestTimeout applies to Request calls with a zero timeout.
	// Must lie within [1s, 60s].
	DefaultRequestTimeout time.Duration
	// CircuitBreakerThreshold is the consecutive-failure count that opens a
	// recipient's circuit.
	CircuitBreakerThreshold int
	// PatternCacheSize bounds the pattern match LRU cache.
	PatternCacheSize int
	// SubscriptionLimit caps active subscriptions per agent.
	SubscriptionLimit int
	// MaxPayloadSize caps message payloads in bytes.
	MaxPayloadSize int
	// InboxCapacity bounds each recipient's inbound queue.
	InboxCapacity int
	// MaxBroadcastRecipients is the recipient count above which a broadcast
	// needs the AllowLarge override.
	MaxBroadcastRecipients int
	// BroadcastBatchSize bounds concurrent deliveries per fan-out.
	BroadcastBatchSize int
	// ProbeInterval is the health probe period for open circuits.
	ProbeInterval time.Duration
	// EnablePerformanceLogging turns on Debug timing of routing decisions.
	EnablePerformanceLogging bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() MessagingConfig {
	return MessagingConfig{
		MaxConcurrentDeliveries:  messaging.DefaultMaxConcurrentDeliveries,
		DefaultRequestTimeout:    messaging.DefaultRequestTimeout,
		CircuitBreakerThreshold:  5,
		PatternCacheSize:         pattern.DefaultCacheSize,
		SubscriptionLimit:        messaging.DefaultSubscriptionLimit,
		MaxPayloadSize:           contracts.MaxPayloadSize,
		InboxCapacity:            messaging.DefaultInboxCapacity,
		MaxBroadcastRecipients:   messaging.DefaultMaxBroadcastRecipients,
		BroadcastBatchSize:       messaging.DefaultBroadcastBatchSize,
		ProbeInterval:            5 * time.Second,
		EnablePerformanceLogging: false,
	}
}

// normalized fills zero fields with defaults.
func (c MessagingConfig) normalized() MessagingConfig {
	def := DefaultConfig()
	if c.MaxConcurrentDeliveries == 0 {
		c.MaxConcurrentDeliveries = def.MaxConcurrentDeliveries
	}
	if c.DefaultRequestTimeout == 0 {
		c.DefaultRequestTimeout = def.DefaultRequestTimeout
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = def.CircuitBreakerThreshold
	}
	if c.PatternCacheSize == 0 {
		c.PatternCacheSize = def.PatternCacheSize
	}
	if c.SubscriptionLimit == 0 {
		c.SubscriptionLimit = def.SubscriptionLimit
	}
	if c.MaxPayloadSize == 0 {
		c.MaxPayloadSize = def.MaxPayloadSize
	}
	if c.InboxCapacity == 0 {
		c.InboxCapacity = def.InboxCapacity
	}
	if c.MaxBroadcastRecipients == 0 {
		c.MaxBroadcastRecipients = def.MaxBroadcastRecipients
	}
	if c.BroadcastBatchSize == 0 {
		c.BroadcastBatchSize = def.BroadcastBatchSize
	}
	if c.ProbeInterval == 0 {
		c.ProbeInterval = def.ProbeInterval
	}
	return c
}

// Validate rejects configurations the components cannot honor.
func (c MessagingConfig) Validate() error {
	if c.MaxConcurrentDeliveries < 1 {
		return fmt.Errorf("maxConcurrentDeliveries must be positive, got %d", c.MaxConcurrentDeliveries)
	}
	if c.DefaultRequestTimeout < messaging.MinRequestTimeout || c.DefaultRequestTimeout > messaging.MaxRequestTimeout {
		return fmt.Errorf("defaultRequestTimeout %v outside [%v, %v]",
			c.DefaultRequestTimeout, messaging.MinRequestTimeout, messaging.MaxRequestTimeout)
	}
	if c.CircuitBreakerThreshold < 1 {
		return fmt.Errorf("circuitBreakerThreshold must be positive, got %d", c.CircuitBreakerThreshold)
	}
	if c.PatternCacheSize < 1 {
		return fmt.Errorf("patternCacheSize must be positive, got %d", c.PatternCacheSize)
	}
	if c.SubscriptionLimit < 1 {
		return fmt.Errorf("subscriptionLimit must be positive, got %d", c.SubscriptionLimit)
	}
	if c.MaxPayloadSize < 1 || c.MaxPayloadSize > contracts.MaxPayloadSize {
		return fmt.Errorf("maxPayloadSize %d outside (0, %d]", c.MaxPayloadSize, contracts.MaxPayloadSize)
	}
	if c.InboxCapacity < 1 {
		return fmt.Errorf("inboxCapacity must be positive, got %d", c.InboxCapacity)
	}
	if c.BroadcastBatchSize < 1 {
		return fmt.Errorf("broadcastBatchSize must be positive, got %d", c.BroadcastBatchSize)
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("probeInterval must be positive, got %v", c.ProbeInterval)
	}
	return nil
}
