package domain

import (
	"errors"
	"math"
	"time"
)

// ErrEmailTaken is returned when an email is already bound to another device.
// The association is unique across all devices.
var ErrEmailTaken = errors.New("email already registered to another device")

// Status is a device's entitlement state, derived from the stored row and the
// current time. Every (row, now) pair maps to exactly one Status.
type Status string

const (
	// StatusUnregistered means no row exists or the device never had a trial.
	StatusUnregistered Status = "unregistered"
	// StatusTrial means the trial window is still open.
	StatusTrial Status = "trial"
	// StatusActive means a lifetime entitlement was purchased.
	StatusActive Status = "active"
	// StatusExpired means the trial window has closed without a purchase.
	StatusExpired Status = "expired"
)

// Device is a row in the devices table. ID is the SHA-256 device key. Email and
// PasswordHash are nil until the device registers; Email is write-once.
type Device struct {
	ID           string
	Email        *string
	PasswordHash *string
	Status       string
	IsLifetime   bool
	TrialEnd     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Resolution is the outcome of resolving a device's entitlement.
// DaysLeft is set only for StatusTrial; NeedsActivation signals that the caller
// should include an activation URL in the response.
type Resolution struct {
	Status          Status
	DaysLeft        int
	NeedsActivation bool
}

// Resolve derives the entitlement status for d at now. d may be nil (no row).
// The lifetime flag overrides trial timing permanently; a trial ending exactly
// at now is expired (strict now < trial_end). DaysLeft rounds up so a partial
// final day still counts as one.
func Resolve(d *Device, now time.Time) Resolution {
	if d == nil {
		return Resolution{Status: StatusUnregistered, NeedsActivation: true}
	}
	if d.IsLifetime {
		return Resolution{Status: StatusActive}
	}
	if d.TrialEnd != nil {
		if now.Before(*d.TrialEnd) {
			days := int(math.Ceil(d.TrialEnd.Sub(now).Hours() / 24))
			return Resolution{Status: StatusTrial, DaysLeft: days}
		}
		return Resolution{Status: StatusExpired, NeedsActivation: true}
	}
	return Resolution{Status: StatusUnregistered, NeedsActivation: true}
}
