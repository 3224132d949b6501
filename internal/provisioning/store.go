package provisioning

import (
	"context"

	id "sigrh/pkg/domain"
)

// ProfileStore persists platform accounts. Implementations enforce the
// central-authority singleton: any write that would leave two active
// central-authority profiles in one ministry fails with
// sentinel.ErrConflict (partial unique index in postgres, guarded scan in
// memory). That store-level guarantee is what makes the service's
// pre-check a fast path rather than a race.
type ProfileStore interface {
	// Create inserts a new profile. sentinel.ErrConflict on a duplicate
	// email or a violated singleton.
	Create(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, profileID id.ProfileID) (*Profile, error)
	// Execute atomically loads the profile, runs validate, and persists
	// the result of mutate, holding the row lock across both. A mutation
	// that violates the singleton fails with sentinel.ErrConflict.
	Execute(ctx context.Context, profileID id.ProfileID, validate func(*Profile) error, mutate func(*Profile)) (*Profile, error)
	// FindActiveAuthority returns the ministry's active central authority,
	// or sentinel.ErrNotFound when the slot is free.
	FindActiveAuthority(ctx context.Context, ministryID id.MinistryID) (*Profile, error)
	// ListByRole returns a ministry's active profiles holding role.
	ListByRole(ctx context.Context, ministryID id.MinistryID, role Role) ([]*Profile, error)
	CountByRole(ctx context.Context, ministryID id.MinistryID, role Role) (int, error)
}

// LockStore persists authority lock records. Append-only.
type LockStore interface {
	Append(ctx context.Context, lock *AuthorityLock) error
	ListByMinistry(ctx context.Context, ministryID id.MinistryID) ([]*AuthorityLock, error)
}
