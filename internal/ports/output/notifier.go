package output

import (
	"context"

	"signupd/internal/domain/entities"
)

// Sink delivers outbound messages (inbox row, live push, email, DM).
// Callers log errors and never act on them.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg entities.Message) error
}

// Notifier receives every message produced by a committed transition.
type Notifier interface {
	Publish(ctx context.Context, msgs ...entities.Message)
}
