package agent

import (
	"strings"
	"time"

	id "sigrh/pkg/domain"
	dErrors "sigrh/pkg/domain-errors"
)

// Status is the lifecycle state of an agent record.
type Status string

const (
	// StatusProbation is the initial state for newly recruited agents.
	StatusProbation Status = "probation"
	// StatusPendingValidation means the record was submitted to the central
	// authority and awaits a decision.
	StatusPendingValidation Status = "pending_validation"
	// StatusConfirmed is terminal: the agent is tenured. No transition
	// leaves this state.
	StatusConfirmed Status = "confirmed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusProbation, StatusPendingValidation, StatusConfirmed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle permits moving to target.
// Probation → PendingValidation (submit), PendingValidation → Confirmed
// (validate), PendingValidation → Probation (reject). Nothing else.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusProbation:
		return target == StatusPendingValidation
	case StatusPendingValidation:
		return target == StatusConfirmed || target == StatusProbation
	default:
		return false
	}
}

// Agent is the aggregate root for a civil-servant personnel record.
//
// Invariants:
//   - Matricule, LastName and MinistryID are non-empty after construction
//   - The classification tuple (corps, grade, pay scale, step) is validated
//     against the catalog before the record is persisted
//   - Status follows the lifecycle in Status.CanTransitionTo
//   - RejectionReason is set only by a rejection and cleared on the next
//     submission
type Agent struct {
	ID              id.AgentID    `json:"id"`
	Matricule       string        `json:"matricule"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	MinistryID      id.MinistryID `json:"ministry_id"`
	CorpsID         id.CorpsID    `json:"corps_id"`
	GradeID         id.GradeID    `json:"grade_id"`
	PayScaleID      id.PayScaleID `json:"pay_scale_id"`
	StepID          id.StepID     `json:"step_id"`
	Status          Status        `json:"status"`
	SubmittedAt     *time.Time    `json:"submitted_at,omitempty"`
	ValidatedBy     *id.ProfileID `json:"validated_by,omitempty"`
	ValidatedAt     *time.Time    `json:"validated_at,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	// ProfileID links the record to a provisioned account, when one exists.
	// Weak reference: records exist before and independently of accounts.
	ProfileID *id.ProfileID `json:"profile_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewAgent constructs a probation-status record. The classification tuple
// must already have passed hierarchy validation; this constructor only
// checks identity fields.
func NewAgent(agentID id.AgentID, matricule, firstName, lastName string, ministryID id.MinistryID, corpsID id.CorpsID, gradeID id.GradeID, payScaleID id.PayScaleID, stepID id.StepID, now time.Time) (*Agent, error) {
	matricule = strings.TrimSpace(matricule)
	if matricule == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "matricule cannot be empty")
	}
	if strings.TrimSpace(lastName) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "last name cannot be empty")
	}
	if ministryID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ministry is required")
	}
	return &Agent{
		ID:         agentID,
		Matricule:  matricule,
		FirstName:  strings.TrimSpace(firstName),
		LastName:   strings.TrimSpace(lastName),
		MinistryID: ministryID,
		CorpsID:    corpsID,
		GradeID:    gradeID,
		PayScaleID: payScaleID,
		StepID:     stepID,
		Status:     StatusProbation,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CanSubmit checks whether the record may enter the validation queue.
// Use with ApplySubmission in Execute callbacks.
func (a *Agent) CanSubmit() error {
	if !a.Status.CanTransitionTo(StatusPendingValidation) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot submit agent in status %s", a.Status)
	}
	return nil
}

// ApplySubmission moves the record into the validation queue. A
// resubmission after rejection clears the previous rejection reason.
func (a *Agent) ApplySubmission(now time.Time) {
	a.Status = StatusPendingValidation
	a.SubmittedAt = &now
	a.RejectionReason = ""
	a.UpdatedAt = now
}

// CanValidate checks whether the record may be confirmed.
func (a *Agent) CanValidate() error {
	if !a.Status.CanTransitionTo(StatusConfirmed) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot validate agent in status %s", a.Status)
	}
	return nil
}

// ApplyValidation confirms the record, stamping the deciding authority.
func (a *Agent) ApplyValidation(actor id.ProfileID, now time.Time) {
	a.Status = StatusConfirmed
	a.ValidatedBy = &actor
	a.ValidatedAt = &now
	a.UpdatedAt = now
}

// CanReject checks whether the record may be sent back to probation.
// A rejection requires a non-empty reason.
func (a *Agent) CanReject(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	if a.Status != StatusPendingValidation {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot reject agent in status %s", a.Status)
	}
	return nil
}

// ApplyRejection returns the record to probation with the stated reason.
// SubmittedAt is kept as a trace of the attempt; any validation stamp is
// cleared so a rejected record never looks part-confirmed.
func (a *Agent) ApplyRejection(reason string, now time.Time) {
	a.Status = StatusProbation
	a.RejectionReason = strings.TrimSpace(reason)
	a.ValidatedBy = nil
	a.ValidatedAt = nil
	a.UpdatedAt = now
}

// Submit validates and applies submission in one call.
// Prefer CanSubmit + ApplySubmission for Execute callback pattern.
func (a *Agent) Submit(now time.Time) error {
	if err := a.CanSubmit(); err != nil {
		return err
	}
	a.ApplySubmission(now)
	return nil
}

// Validate validates and applies confirmation in one call.
// Prefer CanValidate + ApplyValidation for Execute callback pattern.
func (a *Agent) Validate(actor id.ProfileID, now time.Time) error {
	if err := a.CanValidate(); err != nil {
		return err
	}
	a.ApplyValidation(actor, now)
	return nil
}

// Reject validates and applies rejection in one call.
// Prefer CanReject + ApplyRejection for Execute callback pattern.
func (a *Agent) Reject(reason string, now time.Time) error {
	if err := a.CanReject(reason); err != nil {
		return err
	}
	a.ApplyRejection(reason, now)
	return nil
}
