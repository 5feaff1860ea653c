// Package resetstore persists pending password-reset requests, keyed by email.
// One outstanding request per email; a new request replaces the old one.
package resetstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"coolmath-pro/backend/internal/auth"
)

// Consume outcomes. The handler maps these to BadRequest responses.
var (
	// ErrNoRequest means no pending reset exists for the email (never requested,
	// already consumed, or deleted after expiry).
	ErrNoRequest = errors.New("no reset request")
	// ErrExpired means the pending reset was past its expiry; the entry is deleted.
	ErrExpired = errors.New("reset request expired")
	// ErrInvalidCode means the code did not match; the entry is kept for retry.
	ErrInvalidCode = errors.New("invalid reset code")
)

// Store persists pending reset requests. Implementations must make Consume
// atomic with respect to concurrent calls for the same email: at most one
// caller succeeds, the rest get ErrNoRequest.
type Store interface {
	// Put stores the code hash for email until expiresAt, replacing any pending request.
	Put(ctx context.Context, email, codeHash string, expiresAt time.Time) error
	// Consume validates code against the pending request for email at now and
	// deletes the entry on success or expiry. Returns nil exactly once per Put.
	Consume(ctx context.Context, email, code string, now time.Time) error
}

type entry struct {
	codeHash  string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store for dev mode and tests. Entries are lost on
// restart and invisible to other instances, so production deployments use the
// Postgres store instead.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]entry
}

// NewMemoryStore returns a new in-memory reset store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]entry)}
}

// Put stores the code hash for email until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[email] = entry{codeHash: codeHash, expiresAt: expiresAt}
	return nil
}

// Consume validates and deletes the pending request under a single lock, so
// concurrent verifies for the same email cannot both succeed.
func (s *MemoryStore) Consume(ctx context.Context, email, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[email]
	if !ok {
		return ErrNoRequest
	}
	if !now.Before(e.expiresAt) {
		delete(s.m, email)
		return ErrExpired
	}
	if !auth.OTPEqual(code, e.codeHash) {
		return ErrInvalidCode
	}
	delete(s.m, email)
	return nil
}
