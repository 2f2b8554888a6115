// Package metrics defines the recording contract used by the builders,
// verifiers and the confirmation pipeline.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Event names recorded across the engine.
const (
	EventPaymentBuilt      = "payment_built"
	EventPaymentSettled    = "payment_settled"
	EventVerificationError = "verification_error"
	EventWebhookDelivered  = "webhook_delivered"
	EventWebhookFailed     = "webhook_failed"
)
