// Package service implements device activation status checks and trial grants.
package service

import (
	"context"
	"net/url"
	"time"

	"coolmath-pro/backend/internal/device"
	"coolmath-pro/backend/internal/device/domain"
	"coolmath-pro/backend/internal/events"
)

// DeviceRepo is the minimal device repository needed by the activation service.
type DeviceRepo interface {
	GetByKey(ctx context.Context, key string) (*domain.Device, error)
	Create(ctx context.Context, d *domain.Device) error
}

// ActivationStatus is the client-facing activation payload. ActivationURL is
// set only for unregistered and expired devices, and carries the raw device id
// so the purchase page can route the payment back to the same device.
type ActivationStatus struct {
	Status        domain.Status `json:"status"`
	DaysLeft      int           `json:"days_left,omitempty"`
	ActivationURL string        `json:"activation_url,omitempty"`
}

// ActivationService resolves entitlement status and grants trial windows.
type ActivationService struct {
	repo    DeviceRepo
	urlBase string
	emitter events.Emitter
	nowF    func() time.Time
}

// NewActivationService returns an ActivationService. urlBase is the activation
// page without trailing slash (e.g. https://coolmath.in/activate). emitter may
// be nil when no event stream is configured.
func NewActivationService(repo DeviceRepo, urlBase string, emitter events.Emitter) *ActivationService {
	return &ActivationService{
		repo:    repo,
		urlBase: urlBase,
		emitter: emitter,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// CheckActivation looks up the device row for the raw identifier and resolves
// its entitlement at the current time. Never fails for a missing row; that is
// the unregistered state.
func (s *ActivationService) CheckActivation(ctx context.Context, rawID string) (*ActivationStatus, error) {
	key := device.Key(rawID)
	d, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	r := domain.Resolve(d, s.nowF())
	out := &ActivationStatus{Status: r.Status, DaysLeft: r.DaysLeft}
	if r.NeedsActivation {
		out.ActivationURL = s.activationURL(rawID)
	}
	return out, nil
}

// GrantTrial creates a device row with a trial window of the given number of
// days. Idempotent: if the row already exists it is returned unchanged, so
// re-running the activation collaborator never shortens or extends a trial.
func (s *ActivationService) GrantTrial(ctx context.Context, rawID string, days int) (*domain.Device, error) {
	key := device.Key(rawID)
	existing, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	now := s.nowF()
	trialEnd := now.Add(time.Duration(days) * 24 * time.Hour)
	d := &domain.Device{
		ID:        key,
		Status:    string(domain.StatusTrial),
		TrialEnd:  &trialEnd,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	e := events.New(events.TypeTrialGranted)
	e.DeviceKey = key
	events.EmitAsync(s.emitter, e)
	return d, nil
}

func (s *ActivationService) activationURL(rawID string) string {
	return s.urlBase + "?device=" + url.QueryEscape(rawID)
}
