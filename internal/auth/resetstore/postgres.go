package resetstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"coolmath-pro/backend/internal/auth"
)

// PostgresStore is the shared durable Store. Unlike the in-memory variant it
// survives restarts and holds the first-caller-wins guarantee across multiple
// server instances: Consume runs a transactional compare-and-delete with a row
// lock, so a replayed verify sees no row and fails with ErrNoRequest.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a reset store backed by the password_resets table.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Put upserts the pending request for email, replacing any prior code and expiry.
func (s *PostgresStore) Put(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (email, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (email) DO UPDATE SET code_hash = $2, expires_at = $3, created_at = now()`,
		email, codeHash, expiresAt,
	)
	return err
}

// Consume locks the row, checks expiry and code, and deletes the entry on
// success or expiry, all inside one transaction. A mismatched code keeps the
// entry so the user can retry with the right one.
func (s *PostgresStore) Consume(ctx context.Context, email, code string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var codeHash string
	var expiresAt time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT code_hash, expires_at FROM password_resets WHERE email = $1 FOR UPDATE`,
		email,
	).Scan(&codeHash, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoRequest
		}
		return err
	}

	if !now.Before(expiresAt) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM password_resets WHERE email = $1`, email); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		return ErrExpired
	}

	if !auth.OTPEqual(code, codeHash) {
		return ErrInvalidCode
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM password_resets WHERE email = $1`, email); err != nil {
		return err
	}
	return tx.Commit()
}
