// Package domain defines the typed identifiers shared across sigrh modules.
//
// Every entity reference is a distinct UUID-backed type so the compiler
// rejects cross-entity assignment (an AgentID can never be passed where a
// ProfileID is expected). Parse functions enforce the trust-boundary
// invariant: IDs must be valid, non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "sigrh/pkg/domain-errors"
)

type (
	// AgentID identifies a personnel record (the system of record).
	AgentID uuid.UUID
	// ProfileID identifies a user profile (derived access credential).
	ProfileID uuid.UUID
	// MinistryID identifies the ministry owning agents and profiles.
	MinistryID uuid.UUID
	// CorpsID identifies a statutory employment corps.
	CorpsID uuid.UUID
	// GradeID identifies a transversal grade in the statutory grid.
	GradeID uuid.UUID
	// PayScaleID identifies an échelle (pay-scale) row.
	PayScaleID uuid.UUID
	// StepID identifies an échelon (step) within a pay-scale.
	StepID uuid.UUID
	// LockID identifies a central-authority lock audit record.
	LockID uuid.UUID
)

func (id AgentID) String() string    { return uuid.UUID(id).String() }
func (id ProfileID) String() string  { return uuid.UUID(id).String() }
func (id MinistryID) String() string { return uuid.UUID(id).String() }
func (id CorpsID) String() string    { return uuid.UUID(id).String() }
func (id GradeID) String() string    { return uuid.UUID(id).String() }
func (id PayScaleID) String() string { return uuid.UUID(id).String() }
func (id StepID) String() string     { return uuid.UUID(id).String() }
func (id LockID) String() string     { return uuid.UUID(id).String() }

func (id AgentID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id MinistryID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id CorpsID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id GradeID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id PayScaleID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id StepID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id LockID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }

// MarshalText implementations keep IDs as plain UUID strings in JSON.
func (id AgentID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ProfileID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id MinistryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id CorpsID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id GradeID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id PayScaleID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id StepID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id LockID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

// UnmarshalText implementations let IDs round-trip through JSON payloads
// and cache entries. They apply the same strict parsing as the Parse helpers.
func (id *AgentID) UnmarshalText(b []byte) error    { return unmarshalUUID((*uuid.UUID)(id), b, "agent") }
func (id *ProfileID) UnmarshalText(b []byte) error  { return unmarshalUUID((*uuid.UUID)(id), b, "profile") }
func (id *MinistryID) UnmarshalText(b []byte) error { return unmarshalUUID((*uuid.UUID)(id), b, "ministry") }
func (id *CorpsID) UnmarshalText(b []byte) error    { return unmarshalUUID((*uuid.UUID)(id), b, "corps") }
func (id *GradeID) UnmarshalText(b []byte) error    { return unmarshalUUID((*uuid.UUID)(id), b, "grade") }
func (id *PayScaleID) UnmarshalText(b []byte) error { return unmarshalUUID((*uuid.UUID)(id), b, "pay scale") }
func (id *StepID) UnmarshalText(b []byte) error     { return unmarshalUUID((*uuid.UUID)(id), b, "step") }
func (id *LockID) UnmarshalText(b []byte) error     { return unmarshalUUID((*uuid.UUID)(id), b, "lock") }

func unmarshalUUID(dst *uuid.UUID, raw []byte, kind string) error {
	parsed, err := parseUUID(string(raw), kind)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

// parseUUID enforces the shared parsing rules for every ID type.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be the nil UUID")
	}
	return parsed, nil
}

func ParseAgentID(raw string) (AgentID, error) {
	parsed, err := parseUUID(raw, "agent")
	return AgentID(parsed), err
}

func ParseProfileID(raw string) (ProfileID, error) {
	parsed, err := parseUUID(raw, "profile")
	return ProfileID(parsed), err
}

func ParseMinistryID(raw string) (MinistryID, error) {
	parsed, err := parseUUID(raw, "ministry")
	return MinistryID(parsed), err
}

func ParseCorpsID(raw string) (CorpsID, error) {
	parsed, err := parseUUID(raw, "corps")
	return CorpsID(parsed), err
}

func ParseGradeID(raw string) (GradeID, error) {
	parsed, err := parseUUID(raw, "grade")
	return GradeID(parsed), err
}

func ParsePayScaleID(raw string) (PayScaleID, error) {
	parsed, err := parseUUID(raw, "pay scale")
	return PayScaleID(parsed), err
}

func ParseStepID(raw string) (StepID, error) {
	parsed, err := parseUUID(raw, "step")
	return StepID(parsed), err
}

func ParseLockID(raw string) (LockID, error) {
	parsed, err := parseUUID(raw, "lock")
	return LockID(parsed), err
}
