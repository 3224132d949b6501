// Package classification proves that a (corps, grade, échelle, échelon)
// tuple is legally consistent before a personnel record is created or
// promoted. Validation is pure over a catalog snapshot: no side effects,
// fail-fast at the first broken link, most specific error wins.
package classification

import (
	"context"
	"errors"
	"fmt"

	"sigrh/internal/catalog"
	id "sigrh/pkg/domain"
	"sigrh/pkg/platform/sentinel"
)

// Validator resolves each link of a candidate tuple through the catalog.
// Wire it to the authoritative catalog store, never a cache: every mutating
// path (creation, promotion, reclassification) must validate against the
// current snapshot.
type Validator struct {
	catalog catalog.Store
}

func New(catalogStore catalog.Store) *Validator {
	return &Validator{catalog: catalogStore}
}

// Validate checks corps → grade → pay-scale → step in order and returns a
// *classification.Error naming the first broken link. Catalog lookups that
// fail for infrastructure reasons propagate as-is so callers can tell a
// broken tuple from a broken catalog.
func (v *Validator) Validate(ctx context.Context, corpsID id.CorpsID, gradeID id.GradeID, payScaleID id.PayScaleID, stepID id.StepID) error {
	corps, err := v.catalog.GetCorps(ctx, corpsID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return newError(FailureUnknownCorps, "corps %s does not exist", corpsID)
		}
		return fmt.Errorf("resolve corps: %w", err)
	}
	if !corps.Active {
		return newError(FailureUnknownCorps, "corps %s is inactive", corpsID)
	}

	grade, err := v.catalog.GetGrade(ctx, gradeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return newError(FailureUnknownGrade, "grade %s does not exist", gradeID)
		}
		return fmt.Errorf("resolve grade: %w", err)
	}
	if !grade.Active {
		return newError(FailureUnknownGrade, "grade %s is inactive", gradeID)
	}
	if !grade.Transversal() {
		return newError(FailureInvalidGrade,
			"grade %s is owned by corps %s; grid grades must be transversal", gradeID, grade.CorpsID)
	}

	payScale, err := v.catalog.GetPayScale(ctx, payScaleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return newError(FailureUnknownPayScale, "pay scale %s does not exist", payScaleID)
		}
		return fmt.Errorf("resolve pay scale: %w", err)
	}
	if !payScale.Active {
		return newError(FailureUnknownPayScale, "pay scale %s is inactive", payScaleID)
	}
	if payScale.Category != corps.Category || payScale.GradeID != grade.ID {
		return newError(FailureIncompatiblePayScale,
			"pay scale %s is keyed by (%s, %s), expected (%s, %s)",
			payScaleID, payScale.Category, payScale.GradeID, corps.Category, grade.ID)
	}

	step, err := v.catalog.GetStep(ctx, stepID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return newError(FailureUnknownStep, "step %s does not exist", stepID)
		}
		return fmt.Errorf("resolve step: %w", err)
	}
	if !step.Active {
		return newError(FailureUnknownStep, "step %s is inactive", stepID)
	}
	if step.PayScaleID != payScale.ID {
		return newError(FailureIncompatibleStep,
			"step %s belongs to pay scale %s, not %s", stepID, step.PayScaleID, payScaleID)
	}

	return nil
}
