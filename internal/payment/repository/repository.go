package repository

import (
	"context"

	"coolmath-pro/backend/internal/payment/domain"
)

// Repository defines persistence for payments and webhook delivery audits.
type Repository interface {
	// ApplyCaptured inserts the payment and promotes its device to lifetime
	// entitlement in a single transaction. Replaying a payment id is a no-op:
	// the method returns false and touches nothing.
	ApplyCaptured(ctx context.Context, p *domain.Payment) (bool, error)
	RecordWebhookEvent(ctx context.Context, e *domain.WebhookEvent) error
	TotalRevenue(ctx context.Context) (int64, error)
}
