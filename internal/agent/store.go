package agent

import (
	"context"

	id "sigrh/pkg/domain"
)

// Store persists agent records. Implementations return
// sentinel.ErrNotFound for missing records and sentinel.ErrConflict for
// duplicate matricules; services translate sentinels into coded domain
// errors.
type Store interface {
	// Create inserts a new record. Fails with sentinel.ErrConflict when
	// the matricule is already taken.
	Create(ctx context.Context, agent *Agent) error
	GetByID(ctx context.Context, agentID id.AgentID) (*Agent, error)
	// Execute atomically loads the record, runs validate, and persists the
	// result of mutate. The implementation holds its lock (mutex or
	// SELECT ... FOR UPDATE) across both callbacks so concurrent
	// transitions serialize.
	Execute(ctx context.Context, agentID id.AgentID, validate func(*Agent) error, mutate func(*Agent)) (*Agent, error)
	// ListByStatus returns a ministry's records in one lifecycle state,
	// oldest submission first.
	ListByStatus(ctx context.Context, ministryID id.MinistryID, status Status) ([]*Agent, error)
	// LinkProfile attaches a provisioned account to the record.
	LinkProfile(ctx context.Context, agentID id.AgentID, profileID id.ProfileID) error
	CountByMinistry(ctx context.Context, ministryID id.MinistryID) (int, error)
}
