package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"coolmath-pro/backend/internal/device/domain"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a device repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const deviceColumns = `id, email, password_hash, status, is_lifetime, trial_end, created_at, updated_at`

// GetByKey returns the device for key, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, key)
	return scanDevice(row)
}

// GetByEmail returns the device owning email, or nil if no device has it.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE email = $1`, email)
	return scanDevice(row)
}

// Create persists the device to the database. The device must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, d *domain.Device) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (id, email, password_hash, status, is_lifetime, trial_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.Email, d.PasswordHash, d.Status, d.IsLifetime, d.TrialEnd, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// SetCredentials sets email and password hash for the device iff no email is
// bound yet. The `email IS NULL` predicate enforces write-once at the storage
// layer so concurrent register attempts cannot both win; the unique index on
// email rejects cross-device reuse.
func (r *PostgresRepository) SetCredentials(ctx context.Context, key, email, passwordHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET email = $2, password_hash = $3, updated_at = now()
		WHERE id = $1 AND email IS NULL`,
		key, email, passwordHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, domain.ErrEmailTaken
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdatePasswordHash overwrites the device's password hash (password reset).
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, key, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET password_hash = $2, updated_at = now() WHERE id = $1`,
		key, passwordHash,
	)
	return err
}

// CountAll returns the total number of device rows.
func (r *PostgresRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&n)
	return n, err
}

// CountActiveTrials returns devices whose trial window is still open at now.
func (r *PostgresRepository) CountActiveTrials(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM devices WHERE trial_end IS NOT NULL AND trial_end > $1`, now,
	).Scan(&n)
	return n, err
}

// CountLifetime returns devices holding a lifetime entitlement.
func (r *PostgresRepository) CountLifetime(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices WHERE is_lifetime`).Scan(&n)
	return n, err
}

func scanDevice(row *sql.Row) (*domain.Device, error) {
	var d domain.Device
	var email, passwordHash sql.NullString
	var trialEnd sql.NullTime
	err := row.Scan(&d.ID, &email, &passwordHash, &d.Status, &d.IsLifetime, &trialEnd, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if email.Valid {
		d.Email = &email.String
	}
	if passwordHash.Valid {
		d.PasswordHash = &passwordHash.String
	}
	if trialEnd.Valid {
		d.TrialEnd = &trialEnd.Time
	}
	return &d, nil
}
