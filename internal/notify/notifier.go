// Package notify delivers password-reset codes through an external mail
// collaborator. The core never implements transport; it only calls the narrow
// Notifier interface, and always off the request path.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// sendTimeout is the max time allowed for a single async delivery.
const sendTimeout = 15 * time.Second

// Notifier delivers a reset code to an email address.
type Notifier interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// SendAsync runs SendResetCode in a goroutine with a short timeout so the HTTP
// response is never blocked on mail delivery; errors are logged, not surfaced.
// notifier may be nil; SendAsync returns immediately without starting a goroutine.
// The goroutine uses context.Background() so request cancellation does not abort
// an in-flight delivery.
func SendAsync(notifier Notifier, email, code string) {
	if notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := notifier.SendResetCode(ctx, email, code); err != nil {
			slog.Error("notify: async delivery failed", "email", email, "error", err)
		}
	}()
}

// LogNotifier writes the code to the log instead of delivering it. Dev only.
type LogNotifier struct{}

// SendResetCode logs the code. Never fails.
func (LogNotifier) SendResetCode(ctx context.Context, email, code string) error {
	slog.Info("notify: dev mode reset code", "email", email, "code", code)
	return nil
}
