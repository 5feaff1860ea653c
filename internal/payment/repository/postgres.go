package repository

import (
	"context"
	"database/sql"

	"coolmath-pro/backend/internal/payment/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a payment repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ApplyCaptured runs the idempotent apply: the payments primary key is the
// idempotency guard, and the lifetime promotion only happens when the insert
// landed, inside the same transaction. A payment whose device key matches no
// row is stored with a NULL device_id instead of failing the webhook.
func (r *PostgresRepository) ApplyCaptured(ctx context.Context, p *domain.Payment) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var deviceExists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM devices WHERE id = $1)`, p.DeviceKey,
	).Scan(&deviceExists)
	if err != nil {
		return false, err
	}

	deviceID := sql.NullString{String: p.DeviceKey, Valid: deviceExists}
	method := sql.NullString{String: p.Method, Valid: p.Method != ""}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, device_id, amount, currency, status, method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO NOTHING`,
		p.ID, deviceID, p.Amount, p.Currency, p.Status, method,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Replayed delivery; nothing to promote, nothing to roll back.
		return false, tx.Commit()
	}

	if deviceExists {
		_, err = tx.ExecContext(ctx, `
			UPDATE devices SET status = 'active', is_lifetime = TRUE, updated_at = now()
			WHERE id = $1`,
			p.DeviceKey,
		)
		if err != nil {
			return false, err
		}
	}

	return true, tx.Commit()
}

// RecordWebhookEvent appends a delivery audit row. Best effort at call sites;
// failures here must not fail the webhook.
func (r *PostgresRepository) RecordWebhookEvent(ctx context.Context, e *domain.WebhookEvent) error {
	paymentID := sql.NullString{String: e.PaymentID, Valid: e.PaymentID != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_events (id, provider, event_type, payment_id, signature_valid, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		e.ID, e.Provider, e.EventType, paymentID, e.SignatureValid, e.Outcome,
	)
	return err
}

// TotalRevenue sums all recorded payment amounts (rupees).
func (r *PostgresRepository) TotalRevenue(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments`).Scan(&total)
	return total, err
}
