package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders messages within a recipient's inbox. Higher priorities are
// dequeued first; messages of equal priority keep arrival order.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MaxPayloadSize is the hard cap on message payload size.
const MaxPayloadSize = 1 << 20 // 1 MiB

// Message is an immutable message record passed between agents. The router
// never inspects Payload; Type is the only routing key for pub/sub and the
// application interprets the payload by that tag.
type Message struct {
	ID            string    `json:"id"`
	From          string    `json:"from"`
	To            string    `json:"to,omitempty"`
	Type          string    `json:"type"`
	Payload       []byte    `json:"payload,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Priority      Priority  `json:"priority"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// NewMessage creates a message with a generated ID and current UTC timestamp.
// An empty to means the message is routed by pattern subscription rather than
// to a single recipient.
func NewMessage(from, to, messageType string, payload []byte) *Message {
	return &Message{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Type:      messageType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		Priority:  PriorityNormal,
	}
}

// WithCorrelation returns a copy of the message carrying the correlation ID.
func (m *Message) WithCorrelation(correlationID string) *Message {
	c := *m
	c.CorrelationID = correlationID
	return &c
}

// WithPriority returns a copy of the message with the given priority.
func (m *Message) WithPriority(p Priority) *Message {
	c := *m
	c.Priority = p
	return &c
}

// WithRecipient returns a copy of the message addressed to a single agent.
func (m *Message) WithRecipient(agentID string) *Message {
	c := *m
	c.To = agentID
	return &c
}

// IsPointToPoint reports whether the message is addressed to one agent.
func (m *Message) IsPointToPoint() bool {
	return m.To != ""
}

// IsResponse reports whether the message correlates to an earlier request.
func (m *Message) IsResponse() bool {
	return m.CorrelationID != ""
}

// PayloadSize returns the payload length in bytes.
func (m *Message) PayloadSize() int {
	return len(m.Payload)
}
