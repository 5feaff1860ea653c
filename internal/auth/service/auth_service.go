// Package service implements the device-bound auth flows: register-or-login,
// OTP password reset, and token authentication.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"coolmath-pro/backend/internal/auth"
	"coolmath-pro/backend/internal/auth/resetstore"
	"coolmath-pro/backend/internal/device"
	devicedomain "coolmath-pro/backend/internal/device/domain"
	"coolmath-pro/backend/internal/events"
	"coolmath-pro/backend/internal/notify"
	"coolmath-pro/backend/internal/security"
)

// Sentinel errors for the auth service; the handler maps them to HTTP statuses.
var (
	ErrDeviceNotActivated = errors.New("device not activated; complete purchase or trial first")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotFound      = errors.New("email not found")
	ErrNotAuthorized      = errors.New("device not authorized")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
)

// TokenResult holds the outcome of RegisterOrLogin: a bearer session token and
// whether the call registered a new account on the device.
type TokenResult struct {
	AccessToken string
	ExpiresAt   time.Time
	IsNewUser   bool
}

// Identity is the (email, device key) pair a verified token resolves to.
type Identity struct {
	Email     string
	DeviceKey string
}

// DeviceRepo is the minimal device repository needed by the auth service.
type DeviceRepo interface {
	GetByKey(ctx context.Context, key string) (*devicedomain.Device, error)
	GetByEmail(ctx context.Context, email string) (*devicedomain.Device, error)
	SetCredentials(ctx context.Context, key, email, passwordHash string) (bool, error)
	UpdatePasswordHash(ctx context.Context, key, passwordHash string) error
}

// AuthService binds one email+password credential to a device and issues
// session tokens for it.
type AuthService struct {
	devices  DeviceRepo
	resets   resetstore.Store
	notifier notify.Notifier
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	emitter  events.Emitter
	otpTTL   time.Duration
	nowF     func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// notifier may be nil; reset codes are then only observable in dev OTP mode.
// emitter may be nil when no event stream is configured.
func NewAuthService(
	devices DeviceRepo,
	resets resetstore.Store,
	notifier notify.Notifier,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	otpTTL time.Duration,
	emitter events.Emitter,
) *AuthService {
	return &AuthService{
		devices:  devices,
		resets:   resets,
		notifier: notifier,
		hasher:   hasher,
		tokens:   tokens,
		emitter:  emitter,
		otpTTL:   otpTTL,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterOrLogin authenticates the device identified by rawDeviceID. A device
// with no stored email registers: the email+password binding is written once
// and never overwritten. A device with a stored email logs in: the supplied
// email must equal the stored one and the password must verify.
// Fails with ErrDeviceNotActivated when no row exists; the activation
// collaborator creates rows, this service never does.
func (s *AuthService) RegisterOrLogin(ctx context.Context, rawDeviceID, email, password string) (*TokenResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	key := device.Key(rawDeviceID)
	d, err := s.devices.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDeviceNotActivated
	}

	if d.Email == nil {
		hashed, err := s.hasher.Hash([]byte(password))
		if err != nil {
			return nil, err
		}
		bound, err := s.devices.SetCredentials(ctx, key, email, hashed)
		if err != nil {
			return nil, err
		}
		if bound {
			token, expiresAt, err := s.tokens.Issue(email, key)
			if err != nil {
				return nil, err
			}
			s.emit(events.TypeUserRegistered, key)
			return &TokenResult{AccessToken: token, ExpiresAt: expiresAt, IsNewUser: true}, nil
		}
		// Lost a concurrent registration race; re-read and fall through to login.
		d, err = s.devices.GetByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if d == nil || d.Email == nil {
			return nil, ErrInvalidCredentials
		}
	}

	if *d.Email != email {
		return nil, ErrInvalidCredentials
	}
	if d.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(*d.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(email, key)
	if err != nil {
		return nil, err
	}
	s.emit(events.TypeUserLogin, key)
	return &TokenResult{AccessToken: token, ExpiresAt: expiresAt, IsNewUser: false}, nil
}

// RequestReset generates a 6-digit code for the device owning email, stores its
// hash with a TTL (replacing any pending request), and dispatches delivery
// without blocking. Returns the plain code so the handler can expose it in dev
// OTP mode; production handlers must drop it.
func (s *AuthService) RequestReset(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	d, err := s.devices.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if d == nil {
		return "", ErrEmailNotFound
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return "", err
	}
	if err := s.resets.Put(ctx, email, auth.HashOTP(code), s.nowF().Add(s.otpTTL)); err != nil {
		return "", err
	}

	notify.SendAsync(s.notifier, email, code)
	return code, nil
}

// ResetPassword consumes the pending reset request for email and overwrites
// the password on the device owning it. Consume is single-use and atomic, so
// concurrent verifies cannot both succeed. Store errors (resetstore.ErrNoRequest,
// ErrExpired, ErrInvalidCode) pass through for the handler to map.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if len(newPassword) < 8 {
		return ErrPasswordTooShort
	}

	if err := s.resets.Consume(ctx, email, code, s.nowF()); err != nil {
		return err
	}

	d, err := s.devices.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if d == nil {
		return ErrEmailNotFound
	}
	hashed, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	if err := s.devices.UpdatePasswordHash(ctx, d.ID, hashed); err != nil {
		return err
	}
	s.emit(events.TypePasswordReset, d.ID)
	return nil
}

// Authenticate verifies a session token and re-checks the device-email binding
// it was issued under. A token stays valid only while the device row exists
// and its stored email equals the token subject, which revokes all outstanding
// tokens when the binding changes, without a blocklist.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	email, key, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrNotAuthorized
	}
	d, err := s.devices.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if d == nil || d.Email == nil || *d.Email != email {
		return nil, ErrNotAuthorized
	}
	return &Identity{Email: email, DeviceKey: key}, nil
}

func (s *AuthService) emit(eventType, deviceKey string) {
	e := events.New(eventType)
	e.DeviceKey = deviceKey
	events.EmitAsync(s.emitter, e)
}

func validateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return ErrInvalidEmail
	}
	return nil
}
