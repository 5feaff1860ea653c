// Package events defines the domain events the server publishes for downstream
// consumers (analytics, alerting). Publishing is optional and always
// fire-and-forget; no request ever waits on Kafka.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the server.
const (
	TypeTrialGranted    = "trial.granted"
	TypeUserRegistered  = "user.registered"
	TypeUserLogin       = "user.login"
	TypePasswordReset   = "password.reset"
	TypePaymentCaptured = "payment.captured"
)

// Event is a single domain event. DeviceKey is the hashed device id; raw
// device identifiers and emails never leave the server through this stream.
type Event struct {
	ID        string    `json:"id"`
	EventType string    `json:"eventType"`
	Source    string    `json:"source"`
	DeviceKey string    `json:"deviceKey,omitempty"`
	PaymentID string    `json:"paymentId,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// New returns an Event of the given type with a fresh id and timestamp.
func New(eventType string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		EventType: eventType,
		Source:    "coolmath-backend",
		CreatedAt: time.Now().UTC(),
	}
}
