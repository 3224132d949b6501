// Package audit records the compliance trail for lifecycle transitions and
// role provisioning. Entries are append-only and immutable; external
// compliance reporting consumes them from the Kafka topic fed by the relay.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "sigrh/pkg/domain"
)

// Action names what happened to the audited entity.
type Action string

const (
	ActionCreation   Action = "creation"
	ActionSubmission Action = "submission"
	ActionValidation Action = "validation"
	ActionRejection  Action = "rejection"
	ActionPromotion  Action = "promotion"
	ActionRevocation Action = "revocation"
	ActionLock       Action = "lock"
)

// Entity names the kind of record an event is about.
type Entity string

const (
	EntityAgent   Entity = "agent"
	EntityProfile Entity = "profile"
)

// Event is one immutable audit entry. PreviousStatus/NewStatus record the
// state transition for compliance review; Comment carries the validator's
// comment or the rejection/lock reason.
type Event struct {
	ID             uuid.UUID     `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	Entity         Entity        `json:"entity"`
	EntityID       string        `json:"entity_id"`
	MinistryID     id.MinistryID `json:"ministry_id"`
	Action         Action        `json:"action"`
	ActorID        id.ProfileID  `json:"actor_id"`
	PreviousStatus string        `json:"previous_status,omitempty"`
	NewStatus      string        `json:"new_status,omitempty"`
	Comment        string        `json:"comment,omitempty"`
}
