// Package catalog holds the statutory classification reference data: corps,
// transversal grades, pay-scales (échelles) keyed by (category, grade), and
// steps (échelons) keyed by pay-scale. The catalog is read-only from the
// core's perspective; rows are loaded by migration or back-office tooling.
package catalog

import (
	id "sigrh/pkg/domain"
)

// Category is the statutory employment category a corps belongs to
// (A1, A2, B1, B2, C...). Pay-scales are keyed by category, not by corps,
// so any corps of a matching category shares the same scales.
type Category string

// Corps is a statutory employment family (e.g. administrative corps,
// category A1). Immutable once referenced by an agent record.
type Corps struct {
	ID       id.CorpsID `json:"id"`
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	Category Category   `json:"category"`
	Active   bool       `json:"active"`
}

// Grade is a transversal rank in the statutory grid. Grades are not owned
// by a corps: CorpsID must be nil, and a non-nil value marks a legacy row
// the validator treats as data inconsistency.
type Grade struct {
	ID      id.GradeID  `json:"id"`
	Code    string      `json:"code"`
	Name    string      `json:"name"`
	Ordinal int         `json:"ordinal"`
	CorpsID *id.CorpsID `json:"corps_id,omitempty"`
	Active  bool        `json:"active"`
}

// Transversal reports whether the grade satisfies the grid invariant of
// having no owning corps.
func (g *Grade) Transversal() bool {
	return g.CorpsID == nil
}

// PayScale is an échelle: the compensation band for a (category, grade)
// pair. At most one active pay-scale exists per pair.
type PayScale struct {
	ID       id.PayScaleID `json:"id"`
	Code     string        `json:"code"`
	Name     string        `json:"name"`
	Category Category      `json:"category"`
	GradeID  id.GradeID    `json:"grade_id"`
	MinIndex int           `json:"min_index"`
	MaxIndex int           `json:"max_index"`
	Active   bool          `json:"active"`
}

// Step is an échelon within a pay-scale. Numbers are unique and contiguous
// from 0 (probationary) upward; GrossIndex feeds salary computation.
type Step struct {
	ID              id.StepID     `json:"id"`
	PayScaleID      id.PayScaleID `json:"pay_scale_id"`
	Number          int           `json:"number"`
	GrossIndex      int           `json:"gross_index"`
	IncrementMonths int           `json:"increment_months"`
	Active          bool          `json:"active"`
}
