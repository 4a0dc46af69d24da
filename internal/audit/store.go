package audit

import "context"

// Store persists audit events. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListBySubject returns events for one subject, oldest first.
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
