package contracts

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Validation errors, rejected synchronously and never retried.
	ErrSubscriptionLimit = errors.New("subscription limit exceeded")
	ErrInvalidPattern    = errors.New("invalid subscription pattern")
	ErrMessageTooLarge   = errors.New("message payload too large")
	ErrBroadcastTooLarge = errors.New("broadcast recipient set too large")

	// Delivery errors.
	ErrAgentNotFound  = errors.New("agent not found")
	ErrQueueFull      = errors.New("recipient queue full")
	ErrCircuitOpen    = errors.New("circuit open for recipient")
	ErrRequestTimeout = errors.New("request timed out")
)

// SubscriptionLimitError reports a rejected subscribe call. The registry is
// left unchanged when this is returned.
type SubscriptionLimitError struct {
	AgentID string
	Limit   int
}

func (e *SubscriptionLimitError) Error() string {
	return fmt.Sprintf("agent %s has reached the subscription limit of %d", e.AgentID, e.Limit)
}

func (e *SubscriptionLimitError) Unwrap() error { return ErrSubscriptionLimit }

// PatternError reports a pattern that failed to compile.
type PatternError struct {
	Pattern string
	Reason  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %s", e.Pattern, e.Reason)
}

func (e *PatternError) Unwrap() error { return ErrInvalidPattern }

// PayloadTooLargeError reports a payload over the configured cap.
type PayloadTooLargeError struct {
	MessageID string
	Size      int
	Limit     int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("message %s payload is %d bytes, limit %d", e.MessageID, e.Size, e.Limit)
}

func (e *PayloadTooLargeError) Unwrap() error { return ErrMessageTooLarge }

// AgentNotFoundError reports delivery to an unknown agent.
type AgentNotFoundError struct {
	AgentID string
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent %s not found", e.AgentID)
}

func (e *AgentNotFoundError) Unwrap() error { return ErrAgentNotFound }

// RequestTimeoutError reports a request that saw no matching response within
// its timeout.
type RequestTimeoutError struct {
	CorrelationID string
	Timeout       time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request %s timed out after %v", e.CorrelationID, e.Timeout)
}

func (e *RequestTimeoutError) Unwrap() error { return ErrRequestTimeout }

// BroadcastTooLargeError reports a broadcast that resolved more recipients
// than allowed without the override flag.
type BroadcastTooLargeError struct {
	Recipients int
	Limit      int
}

func (e *BroadcastTooLargeError) Error() string {
	return fmt.Sprintf("broadcast resolved %d recipients, limit %d (set AllowLarge to override)", e.Recipients, e.Limit)
}

func (e *BroadcastTooLargeError) Unwrap() error { return ErrBroadcastTooLarge }
