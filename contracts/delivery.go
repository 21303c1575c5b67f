package contracts

import "time"

// FailureKind classifies a terminal delivery failure.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailureTimeout          FailureKind = "TIMEOUT"
	FailureCircuitOpen      FailureKind = "CIRCUIT_OPEN"
	FailureQueueFull        FailureKind = "QUEUE_FULL"
	FailureRecipientMissing FailureKind = "RECIPIENT_NOT_FOUND"
	FailurePayloadTooLarge  FailureKind = "PAYLOAD_TOO_LARGE"
	FailureHandler          FailureKind = "HANDLER_ERROR"
)

// DeliveryResult is the outcome of delivering one message to one recipient.
// Attempts counts every try including retries; Latency covers the whole
// delivery including backoff waits.
type DeliveryResult struct {
	MessageID string
	Recipient string
	Success   bool
	Kind      FailureKind
	Err       error
	Attempts  int
	Latency   time.Duration
}

// Failed returns a failure result for the given kind.
func Failed(messageID, recipient string, kind FailureKind, err error, attempts int, latency time.Duration) DeliveryResult {
	return DeliveryResult{
		MessageID: messageID,
		Recipient: recipient,
		Kind:      kind,
		Err:       err,
		Attempts:  attempts,
		Latency:   latency,
	}
}

// Delivered returns a success result.
func Delivered(messageID, recipient string, attempts int, latency time.Duration) DeliveryResult {
	return DeliveryResult{
		MessageID: messageID,
		Recipient: recipient,
		Success:   true,
		Attempts:  attempts,
		Latency:   latency,
	}
}
