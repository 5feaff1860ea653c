package repository

import (
	"context"
	"time"

	"coolmath-pro/backend/internal/device/domain"
)

// Repository defines persistence for devices.
type Repository interface {
	GetByKey(ctx context.Context, key string) (*domain.Device, error)
	GetByEmail(ctx context.Context, email string) (*domain.Device, error)
	Create(ctx context.Context, d *domain.Device) error
	// SetCredentials binds email and password hash to the device, but only if no
	// email is set yet. Returns false when the row already has an email (the
	// binding is write-once) or does not exist.
	SetCredentials(ctx context.Context, key, email, passwordHash string) (bool, error)
	UpdatePasswordHash(ctx context.Context, key, passwordHash string) error
	CountAll(ctx context.Context) (int64, error)
	CountActiveTrials(ctx context.Context, now time.Time) (int64, error)
	CountLifetime(ctx context.Context) (int64, error)
}
