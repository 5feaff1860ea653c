package resetstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coolmath-pro/backend/internal/auth"
)

func TestMemoryStore_ConsumeSucceedsOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.Put(ctx, "u@example.com", auth.HashOTP("123456"), now.Add(10*time.Minute)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := store.Consume(ctx, "u@example.com", "123456", now); err != nil {
		t.Fatalf("first Consume: %v", err)
	}
	if err := store.Consume(ctx, "u@example.com", "123456", now); !errors.Is(err, ErrNoRequest) {
		t.Errorf("second Consume = %v, want ErrNoRequest", err)
	}
}

func TestMemoryStore_ConsumeNoRequest(t *testing.T) {
	store := NewMemoryStore()
	err := store.Consume(context.Background(), "nobody@example.com", "123456", time.Now())
	if !errors.Is(err, ErrNoRequest) {
		t.Errorf("Consume = %v, want ErrNoRequest", err)
	}
}

func TestMemoryStore_ConsumeExpiredDeletesEntry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = store.Put(ctx, "u@example.com", auth.HashOTP("123456"), now.Add(-time.Minute))

	if err := store.Consume(ctx, "u@example.com", "123456", now); !errors.Is(err, ErrExpired) {
		t.Fatalf("Consume = %v, want ErrExpired", err)
	}
	// Entry is gone; further attempts see no request, not expired again.
	if err := store.Consume(ctx, "u@example.com", "123456", now); !errors.Is(err, ErrNoRequest) {
		t.Errorf("Consume after expiry = %v, want ErrNoRequest", err)
	}
}

func TestMemoryStore_ConsumeExpiryBoundary(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	// Expiring exactly at now is expired (strict now < expires_at).
	_ = store.Put(ctx, "u@example.com", auth.HashOTP("123456"), now)
	if err := store.Consume(ctx, "u@example.com", "123456", now); !errors.Is(err, ErrExpired) {
		t.Errorf("Consume = %v, want ErrExpired at the exact boundary", err)
	}
}

func TestMemoryStore_ConsumeWrongCodeKeepsEntry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = store.Put(ctx, "u@example.com", auth.HashOTP("123456"), now.Add(10*time.Minute))

	if err := store.Consume(ctx, "u@example.com", "000000", now); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("Consume = %v, want ErrInvalidCode", err)
	}
	// The right code still works afterwards.
	if err := store.Consume(ctx, "u@example.com", "123456", now); err != nil {
		t.Errorf("Consume with correct code after a miss: %v", err)
	}
}

func TestMemoryStore_PutReplacesPendingRequest(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = store.Put(ctx, "u@example.com", auth.HashOTP("111111"), now.Add(10*time.Minute))
	_ = store.Put(ctx, "u@example.com", auth.HashOTP("222222"), now.Add(10*time.Minute))

	if err := store.Consume(ctx, "u@example.com", "111111", now); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("old code should no longer verify, got %v", err)
	}
	if err := store.Consume(ctx, "u@example.com", "222222", now); err != nil {
		t.Errorf("new code should verify: %v", err)
	}
}

func TestMemoryStore_ConcurrentConsumeSingleWinner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = store.Put(ctx, "u@example.com", auth.HashOTP("123456"), now.Add(10*time.Minute))

	const goroutines = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Consume(ctx, "u@example.com", "123456", now); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
}
