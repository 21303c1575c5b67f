// Package contracts defines the message record and error vocabulary shared by
// every agentbus component.
//
// Messages are immutable values: mutating helpers such as WithCorrelation and
// WithPriority return copies so a message already handed to the router is
// never changed underneath an in-flight delivery. Payloads are opaque byte
// slices capped at MaxPayloadSize; the Type tag is the only field the routing
// layer interprets.
//
// Error kinds come in two layers: sentinel errors (ErrQueueFull,
// ErrRequestTimeout, ...) for errors.Is checks, and typed wrappers carrying
// the offending agent, pattern or size for log and test output.
package contracts
