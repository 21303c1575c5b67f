// Package messaging implements the routing core of agentbus.
//
// The pieces, leaves first:
//   - SubscriptionRegistry: per-agent pattern subscriptions with a hard
//     per-agent cap, resolved through the cached pattern matcher
//   - CorrelationManager: correlation IDs and pending request handles for
//     request/response exchanges, with first-resolution-wins semantics
//   - Inbox: each recipient's bounded priority queue
//   - DeliveryEngine: circuit-gated, retry-protected delivery of one message
//     to one recipient
//   - MessageRouter: the single entry point resolving point-to-point,
//     pub/sub, request and broadcast traffic onto the engine
//
// Deliveries to different recipients are independent: they run concurrently
// under a global concurrency bound, failures never cross recipient
// boundaries, and ordering is only guaranteed within one recipient's inbox
// (priority first, then arrival order).
package messaging
