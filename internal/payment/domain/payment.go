package domain

import "time"

// Payment is a row in the payments table, keyed by the provider's payment id.
// Amount is in rupees (converted from paise at the webhook boundary).
// DeviceKey is empty when the payment could not be matched to a known device.
type Payment struct {
	ID        string
	DeviceKey string
	Amount    int64
	Currency  string
	Status    string
	Method    string
	CreatedAt time.Time
}

// WebhookEvent is an audit record of a webhook delivery, written regardless of
// outcome. Outcome is one of "applied", "duplicate", "ignored", or "failed".
type WebhookEvent struct {
	ID             string
	Provider       string
	EventType      string
	PaymentID      string
	SignatureValid bool
	Outcome        string
	CreatedAt      time.Time
}
