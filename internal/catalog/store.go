package catalog

import (
	"context"

	id "sigrh/pkg/domain"
)

// Store is the read port over classification reference data. Lookups return
// sentinel.ErrNotFound (wrapped) when no row exists; activity flags are
// returned as data so callers decide how inactive rows fail.
//
// The hierarchy validator must be handed the authoritative implementation,
// never a cached one: stale reference data must not decide a mutating path.
type Store interface {
	GetCorps(ctx context.Context, corpsID id.CorpsID) (*Corps, error)
	GetGrade(ctx context.Context, gradeID id.GradeID) (*Grade, error)
	GetPayScale(ctx context.Context, payScaleID id.PayScaleID) (*PayScale, error)
	GetStep(ctx context.Context, stepID id.StepID) (*Step, error)

	// List operations feed the presentation layer's pick lists.
	ListCorps(ctx context.Context) ([]*Corps, error)
	ListGrades(ctx context.Context) ([]*Grade, error)
	// ListPayScales returns active scales for a (category, grade) pair,
	// the keying the 2015 statutory grid uses.
	ListPayScales(ctx context.Context, category Category, gradeID id.GradeID) ([]*PayScale, error)
	// ListSteps returns a pay-scale's steps ordered by number descending,
	// the order the original pick lists expect.
	ListSteps(ctx context.Context, payScaleID id.PayScaleID) ([]*Step, error)
}
