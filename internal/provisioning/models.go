// Package provisioning manages HR platform accounts: profiles, role
// promotions, and the per-ministry central-authority singleton with its
// lock protocol.
package provisioning

import (
	"strings"
	"time"

	id "sigrh/pkg/domain"
	dErrors "sigrh/pkg/domain-errors"
)

// Role is a profile's authorization level on the platform.
type Role string

const (
	// RoleAgent is the default role of a provisioned account.
	RoleAgent Role = "agent"
	// RoleDelegate manages personnel records for one ministry.
	RoleDelegate Role = "delegate"
	// RoleCentralAuthority validates records. At most one active profile
	// per ministry may hold it.
	RoleCentralAuthority Role = "central_authority"
	// RoleMinistryAdmin administers a ministry's accounts.
	RoleMinistryAdmin Role = "ministry_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleDelegate, RoleCentralAuthority, RoleMinistryAdmin:
		return true
	}
	return false
}

// Profile is a provisioned platform account.
//
// Invariants:
//   - Email is non-empty
//   - Role is one of the four platform roles
//   - Per ministry, at most one active profile holds RoleCentralAuthority;
//     the stores enforce this (mutex scan in memory, partial unique index
//     in postgres)
type Profile struct {
	ID         id.ProfileID  `json:"id"`
	Email      string        `json:"email"`
	FullName   string        `json:"full_name"`
	Role       Role          `json:"role"`
	MinistryID id.MinistryID `json:"ministry_id"`
	Active     bool          `json:"active"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func NewProfile(profileID id.ProfileID, email, fullName string, role Role, ministryID id.MinistryID, now time.Time) (*Profile, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if !role.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown role %q", role)
	}
	if ministryID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ministry is required")
	}
	return &Profile{
		ID:         profileID,
		Email:      email,
		FullName:   strings.TrimSpace(fullName),
		Role:       role,
		MinistryID: ministryID,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CanAssignRole checks whether the profile can take the target role.
// Use with ApplyRole in Execute callbacks.
func (p *Profile) CanAssignRole(role Role) error {
	if !role.Valid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown role %q", role)
	}
	if !p.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "profile is deactivated")
	}
	return nil
}

// ApplyRole assigns the target role.
func (p *Profile) ApplyRole(role Role, now time.Time) {
	p.Role = role
	p.UpdatedAt = now
}

// CanDeactivate checks whether the profile can be deactivated.
func (p *Profile) CanDeactivate() error {
	if !p.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "profile is already deactivated")
	}
	return nil
}

// ApplyDeactivation marks the profile inactive. For a central authority
// this frees the ministry's singleton slot.
func (p *Profile) ApplyDeactivation(now time.Time) {
	p.Active = false
	p.UpdatedAt = now
}

// AuthorityLock is the append-only trace of a central-authority lock-out.
// Lock records are never deleted; deactivating the profile is what frees
// the slot, the lock row documents who did it and why.
type AuthorityLock struct {
	ID                  id.LockID     `json:"id"`
	MinistryID          id.MinistryID `json:"ministry_id"`
	PreviousAuthorityID id.ProfileID  `json:"previous_authority_id"`
	LockedBy            id.ProfileID  `json:"locked_by"`
	Reason              string        `json:"reason"`
	Active              bool          `json:"active"`
	CreatedAt           time.Time     `json:"created_at"`
}

// MinistryStats are the admin dashboard counts for one ministry.
type MinistryStats struct {
	MinistryID         id.MinistryID `json:"ministry_id"`
	AgentCount         int           `json:"agent_count"`
	DelegateCount      int           `json:"delegate_count"`
	HasActiveAuthority bool          `json:"has_active_authority"`
}
