package audit

import (
	"context"
)

// Store persists audit events. Append participates in the caller's
// transaction (pkg/platform/tx) so an audit entry commits atomically with
// the state change it describes — a transition without its trail must not
// be observable.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEntity(ctx context.Context, entity Entity, entityID string) ([]Event, error)
}

// OutboxStore extends Store with the relay's view of unpublished rows.
type OutboxStore interface {
	Store
	// Unpublished returns up to limit events not yet relayed, oldest first.
	Unpublished(ctx context.Context, limit int) ([]Event, error)
	// MarkPublished stamps events as relayed to the broker.
	MarkPublished(ctx context.Context, eventIDs []string) error
}
