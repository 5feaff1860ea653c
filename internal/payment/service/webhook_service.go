// Package service implements the payment webhook reconciler.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"coolmath-pro/backend/internal/device"
	"coolmath-pro/backend/internal/events"
	"coolmath-pro/backend/internal/payment/domain"
	"coolmath-pro/backend/internal/payment/razorpay"
	"coolmath-pro/backend/internal/telemetry"
)

// ErrInvalidSignature is returned when the webhook signature does not match.
// The handler surfaces it as a generic failure without detail.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Ack is the acknowledgment body returned to the payment provider.
type Ack struct {
	Status string `json:"status"`
}

// Ack statuses.
const (
	AckSuccess = "success"
	AckIgnored = "ignored"
	AckFailed  = "failed"
)

// Audit outcomes recorded per delivery.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

// PaymentRepo is the persistence surface the reconciler needs.
type PaymentRepo interface {
	ApplyCaptured(ctx context.Context, p *domain.Payment) (bool, error)
	RecordWebhookEvent(ctx context.Context, e *domain.WebhookEvent) error
}

// WebhookService verifies, filters and applies payment webhook deliveries.
type WebhookService struct {
	repo    PaymentRepo
	secret  string
	emitter events.Emitter
	metrics *telemetry.Metrics
	logger  *slog.Logger
	nowF    func() time.Time
}

// NewWebhookService returns a WebhookService. secret is the shared webhook
// signing secret; emitter and metrics may be nil.
func NewWebhookService(repo PaymentRepo, secret string, emitter events.Emitter, metrics *telemetry.Metrics, logger *slog.Logger) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{
		repo:    repo,
		secret:  secret,
		emitter: emitter,
		metrics: metrics,
		logger:  logger,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// HandleRazorpay processes one webhook delivery. body must be the exact bytes
// received; the signature is verified over them before anything is parsed.
// Deliveries that verify but are not actionable (unhandled event type, missing
// device id in notes) are acknowledged as ignored. Replays of an already
// applied payment id acknowledge success without touching anything. Only a
// signature mismatch or a storage error produces a non-success result.
func (s *WebhookService) HandleRazorpay(ctx context.Context, body []byte, signature string) (*Ack, error) {
	if !razorpay.VerifyWebhookSignature(body, signature, s.secret) {
		s.audit(ctx, &domain.WebhookEvent{
			EventType:      "unknown",
			SignatureValid: false,
			Outcome:        OutcomeFailed,
		})
		return nil, ErrInvalidSignature
	}

	ev, err := razorpay.ParseEvent(body)
	if err != nil {
		s.audit(ctx, &domain.WebhookEvent{
			EventType:      "unknown",
			SignatureValid: true,
			Outcome:        OutcomeFailed,
		})
		return nil, fmt.Errorf("parse webhook body: %w", err)
	}

	if ev.Event != razorpay.EventPaymentCaptured {
		s.audit(ctx, &domain.WebhookEvent{
			EventType:      ev.Event,
			SignatureValid: true,
			Outcome:        OutcomeIgnored,
		})
		return &Ack{Status: AckIgnored}, nil
	}

	entity := ev.Payload.Payment.Entity
	rawID := entity.Notes.DeviceID()
	if rawID == "" {
		s.logger.Warn("payment captured without device id in notes", "payment_id", entity.ID)
		s.audit(ctx, &domain.WebhookEvent{
			EventType:      ev.Event,
			PaymentID:      entity.ID,
			SignatureValid: true,
			Outcome:        OutcomeIgnored,
		})
		return &Ack{Status: AckIgnored}, nil
	}

	key := device.Key(rawID)
	p := &domain.Payment{
		ID:        entity.ID,
		DeviceKey: key,
		Amount:    entity.Amount / 100,
		Currency:  entity.Currency,
		Status:    "captured",
		Method:    entity.Method,
		CreatedAt: s.nowF(),
	}

	applied, err := s.repo.ApplyCaptured(ctx, p)
	if err != nil {
		s.audit(ctx, &domain.WebhookEvent{
			EventType:      ev.Event,
			PaymentID:      entity.ID,
			SignatureValid: true,
			Outcome:        OutcomeFailed,
		})
		return nil, fmt.Errorf("apply captured payment: %w", err)
	}

	outcome := OutcomeApplied
	if !applied {
		outcome = OutcomeDuplicate
	}
	s.audit(ctx, &domain.WebhookEvent{
		EventType:      ev.Event,
		PaymentID:      entity.ID,
		SignatureValid: true,
		Outcome:        outcome,
	})

	if applied {
		e := events.New(events.TypePaymentCaptured)
		e.DeviceKey = key
		e.PaymentID = entity.ID
		e.Amount = p.Amount
		events.EmitAsync(s.emitter, e)
	}

	return &Ack{Status: AckSuccess}, nil
}

// audit records the delivery outcome, in storage and in the delivery counter.
// Best effort: a failed audit write is logged but never changes the
// acknowledgment.
func (s *WebhookService) audit(ctx context.Context, e *domain.WebhookEvent) {
	e.ID = uuid.New().String()
	e.Provider = "razorpay"
	e.CreatedAt = s.nowF()
	s.metrics.RecordWebhookDelivery(ctx, e.Outcome)
	if err := s.repo.RecordWebhookEvent(ctx, e); err != nil {
		s.logger.Error("record webhook event", "error", err, "outcome", e.Outcome)
	}
}
