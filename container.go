// Package agentbus is an intra-process messaging substrate for multi-agent
// applications: pattern-based publish/subscribe, correlation-tracked
// request/response, filtered broadcast fan-out, and retry- plus circuit
// breaker-protected delivery with continuous health monitoring.
//
// Container is the composition root. The host application constructs exactly
// one per process, passes it by reference to its agents, and every component
// reference flows through it; there are no package-level singletons.
package agentbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agentbus/agentbus-go/contracts"
	"github.com/agentbus/agentbus-go/health"
	"github.com/agentbus/agentbus-go/messaging"
	"github.com/agentbus/agentbus-go/pattern"
)

// Container wires the messaging components from one MessagingConfig and
// exposes them to collaborating agents.
type Container struct {
	config      MessagingConfig
	directory   messaging.AgentDirectory
	matcher     *pattern.Matcher
	registry    *messaging.SubscriptionRegistry
	correlation *messaging.CorrelationManager
	monitor     *health.Monitor
	engine      *messaging.DeliveryEngine
	router      *messaging.MessageRouter
	logger      *slog.Logger

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// ContainerOption configures cross-cutting collaborators.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	logger     *slog.Logger
	prober     health.Prober
	middleware []messaging.MiddlewareFunc
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *containerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProber overrides the health probe used to test degraded delivery
// targets. The default probe succeeds when the directory still knows the
// target.
func WithProber(p health.Prober) ContainerOption {
	return func(c *containerConfig) {
		c.prober = p
	}
}

// WithMiddleware appends routing middleware.
func WithMiddleware(mw ...messaging.MiddlewareFunc) ContainerOption {
	return func(c *containerConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// NewContainer validates cfg, wires all components and starts the health
// probe loop. Close releases everything.
func NewContainer(cfg MessagingConfig, directory messaging.AgentDirectory, opts ...ContainerOption) (*Container, error) {
	if directory == nil {
		return nil, fmt.Errorf("agent directory is required")
	}

	cfg = cfg.normalized()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid messaging config: %w", err)
	}

	cc := &containerConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cc)
	}
	if cc.prober == nil {
		cc.prober = health.ProberFunc(func(_ context.Context, target string) error {
			if !directory.HasAgent(target) {
				return &contracts.AgentNotFoundError{AgentID: target}
			}
			return nil
		})
	}

	matcher := pattern.NewMatcher(cfg.PatternCacheSize)

	registry := messaging.NewSubscriptionRegistry(matcher,
		messaging.WithSubscriptionLimit(cfg.SubscriptionLimit),
	)

	correlation := messaging.NewCorrelationManager(
		messaging.WithCorrelationLogger(cc.logger),
	)

	monitor := health.NewMonitor(cfg.CircuitBreakerThreshold,
		health.WithProber(cc.prober),
		health.WithProbeInterval(cfg.ProbeInterval),
		health.WithLogger(cc.logger),
	)

	engine := messaging.NewDeliveryEngine(directory, registry, monitor,
		messaging.WithMaxConcurrentDeliveries(cfg.MaxConcurrentDeliveries),
		messaging.WithMaxPayloadSize(cfg.MaxPayloadSize),
		messaging.WithInboxCapacity(cfg.InboxCapacity),
		messaging.WithEngineLogger(cc.logger),
	)

	router := messaging.NewMessageRouter(registry, correlation, engine, directory,
		messaging.WithRouterLogger(cc.logger),
		messaging.WithDefaultRequestTimeout(cfg.DefaultRequestTimeout),
		messaging.WithBroadcastLimits(cfg.MaxBroadcastRecipients, cfg.BroadcastBatchSize),
		messaging.WithPerformanceLogging(cfg.EnablePerformanceLogging),
		messaging.WithRouterMiddleware(cc.middleware...),
	)

	ctx, cancel := context.WithCancel(context.Background())
	monitor.Start(ctx)

	return &Container{
		config:      cfg,
		directory:   directory,
		matcher:     matcher,
		registry:    registry,
		correlation: correlation,
		monitor:     monitor,
		engine:      engine,
		router:      router,
		logger:      cc.logger,
		cancel:      cancel,
	}, nil
}

// Close stops the health probe loop. Safe to call more than once.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.monitor.Stop()
	})
}

// Config returns a copy of the effective configuration.
func (c *Container) Config() MessagingConfig {
	return c.config
}

// Router returns the message router.
func (c *Container) Router() *messaging.MessageRouter {
	return c.router
}

// Registry returns the subscription registry.
func (c *Container) Registry() *messaging.SubscriptionRegistry {
	return c.registry
}

// Correlation returns the correlation manager.
func (c *Container) Correlation() *messaging.CorrelationManager {
	return c.correlation
}

// Engine returns the delivery engine.
func (c *Container) Engine() *messaging.DeliveryEngine {
	return c.engine
}

// Monitor returns the health monitor.
func (c *Container) Monitor() *health.Monitor {
	return c.monitor
}

// Publish fans msg out to pattern subscribers.
func (c *Container) Publish(ctx context.Context, msg *contracts.Message) []contracts.DeliveryResult {
	return c.router.Publish(ctx, msg)
}

// Send delivers msg to its single recipient.
func (c *Container) Send(ctx context.Context, msg *contracts.Message) contracts.DeliveryResult {
	return c.router.Send(ctx, msg)
}

// Subscribe registers agentID for messages matching pat, optionally with a
// handler invoked on delivery.
func (c *Container) Subscribe(agentID, pat string, handler messaging.MessageHandler) error {
	return c.registry.Subscribe(agentID, pat, handler)
}

// Unsubscribe removes one subscription.
func (c *Container) Unsubscribe(agentID, pat string) {
	c.registry.Unsubscribe(agentID, pat)
}

// Request sends msg to its recipient and returns a handle that resolves
// with the response or rejects with REQUEST_TIMEOUT.
func (c *Container) Request(ctx context.Context, msg *contracts.Message, timeout time.Duration) (*messaging.PendingRequest, error) {
	return c.router.Request(ctx, msg, timeout)
}

// Broadcast fans msg out per opts.
func (c *Container) Broadcast(ctx context.Context, msg *contracts.Message, opts messaging.BroadcastOptions) (*messaging.BroadcastResult, error) {
	return c.router.Broadcast(ctx, msg, opts)
}

// Inbox returns agentID's inbound queue for messages delivered without a
// handler.
func (c *Container) Inbox(agentID string) *messaging.Inbox {
	return c.engine.Inbox(agentID)
}

// AgentDestroyed releases every messaging resource held for agentID:
// subscriptions, outstanding requests, circuit state and the inbox. The
// lifecycle manager must call this when it destroys an agent.
func (c *Container) AgentDestroyed(agentID string) {
	c.registry.RemoveAll(agentID)
	cancelled := c.correlation.CancelForSender(agentID)
	c.monitor.Forget(agentID)
	c.engine.DropInbox(agentID)
	if cancelled > 0 {
		c.logger.Info("cancelled outstanding requests for destroyed agent",
			"agent", agentID, "requests", cancelled)
	}
}

// HealthReport returns a snapshot of every delivery target's circuit state.
func (c *Container) HealthReport() health.Report {
	return c.monitor.Report()
}

// RoutingStats returns a snapshot of router counters.
func (c *Container) RoutingStats() messaging.RoutingStats {
	return c.router.Stats()
}

// DeliveryStats returns aggregate delivery engine statistics.
func (c *Container) DeliveryStats() messaging.EngineStats {
	return c.engine.Stats()
}
