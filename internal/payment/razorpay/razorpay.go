// Package razorpay provides webhook signature verification and payload types
// for Razorpay's webhook POSTs. Amounts on the wire are in paise; callers
// convert to rupees at this boundary.
package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// EventPaymentCaptured is the only event type the reconciler acts on.
const EventPaymentCaptured = "payment.captured"

// Event is the envelope of a webhook delivery.
type Event struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// PaymentEntity is the payment body inside a webhook event. Amount is in paise.
type PaymentEntity struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
	OrderID  string `json:"order_id"`
	Notes    Notes  `json:"notes"`
}

// Notes is the free-form metadata Razorpay attaches to a payment. The API
// serializes empty notes as [] instead of {}, and merchants can put arbitrary
// JSON values in there, so decoding keeps the string entries and drops the
// rest. A signed delivery must never fail over someone else's note value.
type Notes map[string]string

// UnmarshalJSON accepts an object, an empty array, or null. Non-string values
// inside the object are skipped.
func (n *Notes) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		*n = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		m[k] = s
	}
	*n = m
	return nil
}

// DeviceID returns the device identifier from notes, or "" if absent.
func (n Notes) DeviceID() string {
	return n["device_id"]
}

// VerifyWebhookSignature recomputes the HMAC-SHA256 of the raw body with the
// shared webhook secret and compares it to the provided hex signature in
// constant time. Must run on the exact bytes received, before any parsing.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignWebhookBody produces the hex signature Razorpay would send for body.
// Exists for tests and local tooling; the server only ever verifies.
func SignWebhookBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
