package events

import "context"

// Emitter publishes a domain event. Implementations must be safe for
// concurrent use.
type Emitter interface {
	Emit(ctx context.Context, event *Event) error
}
