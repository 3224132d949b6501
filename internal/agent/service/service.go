// Package service orchestrates the agent lifecycle: creation gated by
// hierarchy validation, submission, and the central authority's
// validate/reject decisions. Every transition commits atomically with its
// audit entry.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sigrh/internal/agent"
	agentmetrics "sigrh/internal/agent/metrics"
	"sigrh/internal/audit"
	id "sigrh/pkg/domain"
	dErrors "sigrh/pkg/domain-errors"
	"sigrh/pkg/platform/sentinel"
	txcontext "sigrh/pkg/platform/tx"
	"sigrh/pkg/requestcontext"
)

// HierarchyValidator checks a classification tuple against the catalog.
type HierarchyValidator interface {
	Validate(ctx context.Context, corpsID id.CorpsID, gradeID id.GradeID, payScaleID id.PayScaleID, stepID id.StepID) error
}

// AuditPublisher records lifecycle transitions. Emit errors fail the
// operation: a transition without its trail must not commit.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
	History(ctx context.Context, entity audit.Entity, entityID string) ([]audit.Event, error)
}

// Service orchestrates agent records.
type Service struct {
	agents    agent.Store
	validator HierarchyValidator
	auditor   AuditPublisher
	tx        txcontext.Runner
	logger    *slog.Logger
	metrics   *agentmetrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *agentmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

// New constructs a Service. Without WithTxRunner it runs against a no-op
// runner, which is correct for the in-memory store.
func New(agents agent.Store, validator HierarchyValidator, auditor AuditPublisher, opts ...Option) *Service {
	s := &Service{
		agents:    agents,
		validator: validator,
		auditor:   auditor,
		tx:        txcontext.NewNoop(),
		logger:    slog.Default(),
		tracer:    otel.Tracer("sigrh/agent"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAgentRequest carries the fields of a new personnel record.
type CreateAgentRequest struct {
	Matricule  string        `json:"matricule"`
	FirstName  string        `json:"first_name"`
	LastName   string        `json:"last_name"`
	MinistryID id.MinistryID `json:"ministry_id"`
	CorpsID    id.CorpsID    `json:"corps_id"`
	GradeID    id.GradeID    `json:"grade_id"`
	PayScaleID id.PayScaleID `json:"pay_scale_id"`
	StepID     id.StepID     `json:"step_id"`
}

// CreateAgent validates the classification tuple against the catalog and,
// only if it holds, persists a probation-status record. The hierarchy
// check runs against the authoritative catalog, never a cache.
func (s *Service) CreateAgent(ctx context.Context, req CreateAgentRequest) (*agent.Agent, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "agent.CreateAgent")
	defer span.End()

	if err := s.validator.Validate(ctx, req.CorpsID, req.GradeID, req.PayScaleID, req.StepID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var created *agent.Agent
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := agent.NewAgent(
			id.AgentID(uuid.New()),
			req.Matricule, req.FirstName, req.LastName,
			req.MinistryID, req.CorpsID, req.GradeID, req.PayScaleID, req.StepID,
			requestcontext.Now(txCtx),
		)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}
		if err := s.agents.Create(txCtx, a); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "matricule already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create agent")
		}
		if err := s.emit(txCtx, a, audit.ActionCreation, "", string(a.Status), ""); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("agent.id", created.ID.String()))
	if s.metrics != nil {
		s.metrics.IncrementCreated()
		s.metrics.ObserveCreate(start)
	}
	s.logger.InfoContext(ctx, "agent created",
		"agent_id", created.ID, "ministry_id", created.MinistryID, "matricule", created.Matricule)
	return created, nil
}

// Submit moves a probation record into the validation queue.
func (s *Service) Submit(ctx context.Context, agentID id.AgentID) (*agent.Agent, error) {
	return s.transition(ctx, "agent.Submit", "submit", agentID, audit.ActionSubmission, "",
		func(a *agent.Agent) error { return a.CanSubmit() },
		func(a *agent.Agent, now time.Time) { a.ApplySubmission(now) },
	)
}

// ValidateAgent confirms a pending record. The actor is stamped on the
// record and the audit trail; the optional comment lands in the trail only.
func (s *Service) ValidateAgent(ctx context.Context, agentID id.AgentID, actor id.ProfileID, comment string) (*agent.Agent, error) {
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "validating actor is required")
	}
	return s.transition(ctx, "agent.ValidateAgent", "validate", agentID, audit.ActionValidation, comment,
		func(a *agent.Agent) error { return a.CanValidate() },
		func(a *agent.Agent, now time.Time) { a.ApplyValidation(actor, now) },
	)
}

// Reject returns a pending record to probation. The reason is mandatory
// and is stored on the record and in the audit trail.
func (s *Service) Reject(ctx context.Context, agentID id.AgentID, actor id.ProfileID, reason string) (*agent.Agent, error) {
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "rejecting actor is required")
	}
	return s.transition(ctx, "agent.Reject", "reject", agentID, audit.ActionRejection, reason,
		func(a *agent.Agent) error { return a.CanReject(reason) },
		func(a *agent.Agent, now time.Time) { a.ApplyRejection(reason, now) },
	)
}

// transition runs one lifecycle change: lock the record, validate, mutate,
// and append the audit entry, all in one transaction.
func (s *Service) transition(
	ctx context.Context,
	spanName, kind string,
	agentID id.AgentID,
	action audit.Action,
	comment string,
	validate func(*agent.Agent) error,
	mutate func(*agent.Agent, time.Time),
) (*agent.Agent, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, spanName,
		trace.WithAttributes(attribute.String("agent.id", agentID.String())))
	defer span.End()

	if agentID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "agent id is required")
	}

	var updated *agent.Agent
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		var previous agent.Status
		a, err := s.agents.Execute(txCtx, agentID,
			func(a *agent.Agent) error {
				previous = a.Status
				if err := validate(a); err != nil {
					if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
						return dErrors.New(dErrors.CodeConflict, err.Error())
					}
					return err
				}
				return nil
			},
			func(a *agent.Agent) {
				mutate(a, now)
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "agent not found")
			}
			return err
		}
		if err := s.emit(txCtx, a, action, string(previous), string(a.Status), comment); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementTransition(kind)
		s.metrics.ObserveTransition(start)
	}
	s.logger.InfoContext(ctx, "agent transition",
		"agent_id", updated.ID, "transition", kind, "status", updated.Status)
	return updated, nil
}

// GetAgent returns one record.
func (s *Service) GetAgent(ctx context.Context, agentID id.AgentID) (*agent.Agent, error) {
	if agentID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "agent id is required")
	}
	a, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}
	return a, nil
}

// ListAgentsByStatus returns a ministry's records in one lifecycle state.
// status defaults to pending_validation, the central authority's queue.
func (s *Service) ListAgentsByStatus(ctx context.Context, ministryID id.MinistryID, status agent.Status) ([]*agent.Agent, error) {
	if ministryID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "ministry id is required")
	}
	if status == "" {
		status = agent.StatusPendingValidation
	}
	if !status.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown status %q", status)
	}
	agents, err := s.agents.ListByStatus(ctx, ministryID, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list agents")
	}
	if s.metrics != nil && status == agent.StatusPendingValidation {
		s.metrics.ValidationQueueReads.Inc()
	}
	return agents, nil
}

// History returns the audit trail for one record, oldest first.
func (s *Service) History(ctx context.Context, agentID id.AgentID) ([]audit.Event, error) {
	if agentID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "agent id is required")
	}
	events, err := s.auditor.History(ctx, audit.EntityAgent, agentID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent history")
	}
	return events, nil
}

func (s *Service) emit(ctx context.Context, a *agent.Agent, action audit.Action, previous, next, comment string) error {
	event := audit.Event{
		Entity:         audit.EntityAgent,
		EntityID:       a.ID.String(),
		MinistryID:     a.MinistryID,
		Action:         action,
		ActorID:        requestcontext.ActorID(ctx),
		PreviousStatus: previous,
		NewStatus:      next,
		Comment:        comment,
		Timestamp:      requestcontext.Now(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
	}
	return nil
}
