// Package service orchestrates role provisioning: delegate and
// central-authority promotions, the authority lock protocol, and delegate
// revocation. Credential issuance happens before any write and all writes
// of one operation share a transaction, so a failure leaves no
// half-provisioned account.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sigrh/internal/agent"
	"sigrh/internal/audit"
	"sigrh/internal/provisioning"
	"sigrh/internal/provisioning/credentials"
	provmetrics "sigrh/internal/provisioning/metrics"
	id "sigrh/pkg/domain"
	dErrors "sigrh/pkg/domain-errors"
	"sigrh/pkg/platform/sentinel"
	txcontext "sigrh/pkg/platform/tx"
	"sigrh/pkg/requestcontext"
)

// AgentDirectory is the slice of the agent store provisioning needs:
// resolving the record being promoted and linking it to its new profile.
type AgentDirectory interface {
	GetByID(ctx context.Context, agentID id.AgentID) (*agent.Agent, error)
	LinkProfile(ctx context.Context, agentID id.AgentID, profileID id.ProfileID) error
	CountByMinistry(ctx context.Context, ministryID id.MinistryID) (int, error)
}

// AuditPublisher records provisioning events. Emit errors fail the
// operation.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates profile provisioning and the authority singleton.
type Service struct {
	profiles provisioning.ProfileStore
	locks    provisioning.LockStore
	agents   AgentDirectory
	issuer   credentials.Issuer
	auditor  AuditPublisher
	tx       txcontext.Runner
	logger   *slog.Logger
	metrics  *provmetrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *provmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func WithIssuer(issuer credentials.Issuer) Option {
	return func(s *Service) { s.issuer = issuer }
}

// New constructs a Service. Defaults: no-op transaction runner (correct
// for the in-memory stores) and the random-secret credential generator.
func New(profiles provisioning.ProfileStore, locks provisioning.LockStore, agents AgentDirectory, auditor AuditPublisher, opts ...Option) *Service {
	s := &Service{
		profiles: profiles,
		locks:    locks,
		agents:   agents,
		issuer:   credentials.NewGenerator(),
		auditor:  auditor,
		tx:       txcontext.NewNoop(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("sigrh/provisioning"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PromotionResult carries the promoted profile and, when a new account was
// provisioned, the one-time temporary secret. The secret is never
// persisted and never appears again.
type PromotionResult struct {
	Profile    *provisioning.Profile `json:"profile"`
	TempSecret string                `json:"temp_secret,omitempty"`
}

// PromoteToDelegate grants the delegate role to an agent's account,
// provisioning one when the record has no linked profile yet. Any number
// of delegates may coexist in a ministry.
func (s *Service) PromoteToDelegate(ctx context.Context, agentID id.AgentID, email, fullName string) (*PromotionResult, error) {
	return s.promote(ctx, "provisioning.PromoteToDelegate", agentID, email, fullName, provisioning.RoleDelegate)
}

// PromoteToCentralAuthority grants the central-authority role. The
// ministry's slot is pre-checked for a fast, readable failure; the store's
// uniqueness guarantee is what actually decides concurrent races, so a
// conflict surfacing from the write is reported identically.
func (s *Service) PromoteToCentralAuthority(ctx context.Context, agentID id.AgentID, email, fullName string) (*PromotionResult, error) {
	return s.promote(ctx, "provisioning.PromoteToCentralAuthority", agentID, email, fullName, provisioning.RoleCentralAuthority)
}

func (s *Service) promote(ctx context.Context, spanName string, agentID id.AgentID, email, fullName string, role provisioning.Role) (*PromotionResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, spanName,
		trace.WithAttributes(attribute.String("agent.id", agentID.String())))
	defer span.End()

	if agentID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "agent id is required")
	}

	record, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}

	if role == provisioning.RoleCentralAuthority {
		if _, err := s.profiles.FindActiveAuthority(ctx, record.MinistryID); err == nil {
			s.incrementSingletonConflict()
			return nil, dErrors.New(dErrors.CodeConflict, "a central authority is already active for this ministry")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check authority slot")
		}
	}

	var result *PromotionResult
	if record.ProfileID != nil {
		result, err = s.promoteExisting(ctx, *record.ProfileID, role)
	} else {
		result, err = s.provisionNew(ctx, record, email, fullName, role)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementPromotion(string(role))
		s.metrics.ObservePromotion(start)
	}
	s.logger.InfoContext(ctx, "agent promoted",
		"agent_id", agentID, "profile_id", result.Profile.ID, "role", role)
	return result, nil
}

// promoteExisting changes the linked profile's role in place.
func (s *Service) promoteExisting(ctx context.Context, profileID id.ProfileID, role provisioning.Role) (*PromotionResult, error) {
	var promoted *provisioning.Profile
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		var previous provisioning.Role
		profile, err := s.profiles.Execute(txCtx, profileID,
			func(p *provisioning.Profile) error {
				previous = p.Role
				if err := p.CanAssignRole(role); err != nil {
					return dErrors.New(dErrors.CodeConflict, err.Error())
				}
				return nil
			},
			func(p *provisioning.Profile) {
				p.ApplyRole(role, now)
			},
		)
		if err != nil {
			return s.translateProfileErr(err, role)
		}
		if err := s.emitProfileEvent(txCtx, profile, audit.ActionPromotion, string(previous), string(role), ""); err != nil {
			return err
		}
		promoted = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PromotionResult{Profile: promoted}, nil
}

// provisionNew issues a credential, creates the profile, and links the
// agent record, in that order. Issuance runs before the transaction so an
// issuer failure costs nothing.
func (s *Service) provisionNew(ctx context.Context, record *agent.Agent, email, fullName string, role provisioning.Role) (*PromotionResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required to provision a new account")
	}
	if fullName == "" {
		fullName = strings.TrimSpace(record.FirstName + " " + record.LastName)
	}

	cred, err := s.issuer.Issue(email)
	if err != nil {
		// The issuer is an external collaborator: keep its own code when it
		// set one, otherwise report a retryable outage rather than a 500.
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "credential issuer unavailable")
	}

	var created *provisioning.Profile
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		profile, err := provisioning.NewProfile(id.ProfileID(uuid.New()), email, fullName, role, record.MinistryID, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}
		if err := s.profiles.Create(txCtx, profile); err != nil {
			return s.translateProfileErr(err, role)
		}
		if err := s.agents.LinkProfile(txCtx, record.ID, profile.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to link agent to profile")
		}
		if err := s.emitProfileEvent(txCtx, profile, audit.ActionPromotion, "", string(role), "account provisioned"); err != nil {
			return err
		}
		created = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PromotionResult{Profile: created, TempSecret: cred.Secret}, nil
}

// LockCurrentAuthority deactivates the ministry's active central authority
// and appends the lock record in the same transaction. This is the only
// sanctioned way to free the singleton slot.
func (s *Service) LockCurrentAuthority(ctx context.Context, ministryID id.MinistryID, reason string) (*provisioning.AuthorityLock, error) {
	ctx, span := s.tracer.Start(ctx, "provisioning.LockCurrentAuthority",
		trace.WithAttributes(attribute.String("ministry.id", ministryID.String())))
	defer span.End()

	if ministryID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "ministry id is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "lock reason is required")
	}

	current, err := s.profiles.FindActiveAuthority(ctx, ministryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active central authority for this ministry")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find active authority")
	}

	var lock *provisioning.AuthorityLock
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		profile, err := s.profiles.Execute(txCtx, current.ID,
			func(p *provisioning.Profile) error {
				if p.Role != provisioning.RoleCentralAuthority || !p.Active {
					// Slot changed between the read and the lock.
					return dErrors.New(dErrors.CodeConflict, "central authority changed, retry the lock")
				}
				return p.CanDeactivate()
			},
			func(p *provisioning.Profile) {
				p.ApplyDeactivation(now)
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "central authority profile not found")
			}
			return err
		}

		l := &provisioning.AuthorityLock{
			ID:                  id.LockID(uuid.New()),
			MinistryID:          ministryID,
			PreviousAuthorityID: profile.ID,
			LockedBy:            requestcontext.ActorID(txCtx),
			Reason:              reason,
			Active:              true,
			CreatedAt:           now,
		}
		if err := s.locks.Append(txCtx, l); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record authority lock")
		}
		if err := s.emitProfileEvent(txCtx, profile, audit.ActionLock, string(provisioning.RoleCentralAuthority), "", reason); err != nil {
			return err
		}
		lock = l
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementLock()
	}
	s.logger.InfoContext(ctx, "central authority locked",
		"ministry_id", ministryID, "previous_authority_id", lock.PreviousAuthorityID)
	return lock, nil
}

// RevokeDelegate demotes a delegate back to the agent role. Revoking a
// profile that is not a delegate is an idempotent no-op.
func (s *Service) RevokeDelegate(ctx context.Context, profileID id.ProfileID) (*provisioning.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "provisioning.RevokeDelegate",
		trace.WithAttributes(attribute.String("profile.id", profileID.String())))
	defer span.End()

	if profileID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "profile id is required")
	}

	var revoked *provisioning.Profile
	demoted := false
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		profile, err := s.profiles.Execute(txCtx, profileID,
			func(p *provisioning.Profile) error {
				if p.Role != provisioning.RoleDelegate {
					return nil
				}
				demoted = true
				return nil
			},
			func(p *provisioning.Profile) {
				if demoted {
					p.ApplyRole(provisioning.RoleAgent, now)
				}
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "profile not found")
			}
			return err
		}
		if demoted {
			if err := s.emitProfileEvent(txCtx, profile, audit.ActionRevocation, string(provisioning.RoleDelegate), string(provisioning.RoleAgent), ""); err != nil {
				return err
			}
		}
		revoked = profile
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if demoted && s.metrics != nil {
		s.metrics.IncrementRevocation()
	}
	return revoked, nil
}

// ListDelegates returns a ministry's active delegates, oldest first.
func (s *Service) ListDelegates(ctx context.Context, ministryID id.MinistryID) ([]*provisioning.Profile, error) {
	if ministryID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "ministry id is required")
	}
	delegates, err := s.profiles.ListByRole(ctx, ministryID, provisioning.RoleDelegate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list delegates")
	}
	return delegates, nil
}

// GetMinistryStats returns the admin dashboard counts for one ministry.
func (s *Service) GetMinistryStats(ctx context.Context, ministryID id.MinistryID) (*provisioning.MinistryStats, error) {
	if ministryID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "ministry id is required")
	}

	agentCount, err := s.agents.CountByMinistry(ctx, ministryID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count agents")
	}
	delegateCount, err := s.profiles.CountByRole(ctx, ministryID, provisioning.RoleDelegate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count delegates")
	}
	hasAuthority := true
	if _, err := s.profiles.FindActiveAuthority(ctx, ministryID); err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check authority slot")
		}
		hasAuthority = false
	}

	return &provisioning.MinistryStats{
		MinistryID:         ministryID,
		AgentCount:         agentCount,
		DelegateCount:      delegateCount,
		HasActiveAuthority: hasAuthority,
	}, nil
}

// ListAuthorityLocks returns a ministry's lock history, oldest first.
func (s *Service) ListAuthorityLocks(ctx context.Context, ministryID id.MinistryID) ([]*provisioning.AuthorityLock, error) {
	if ministryID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "ministry id is required")
	}
	locks, err := s.locks.ListByMinistry(ctx, ministryID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list authority locks")
	}
	return locks, nil
}

func (s *Service) translateProfileErr(err error, role provisioning.Role) error {
	if errors.Is(err, sentinel.ErrConflict) {
		if role == provisioning.RoleCentralAuthority {
			s.incrementSingletonConflict()
			return dErrors.New(dErrors.CodeConflict, "a central authority is already active for this ministry")
		}
		return dErrors.New(dErrors.CodeConflict, "profile conflicts with an existing account")
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	return err
}

func (s *Service) emitProfileEvent(ctx context.Context, profile *provisioning.Profile, action audit.Action, previous, next, comment string) error {
	event := audit.Event{
		Entity:         audit.EntityProfile,
		EntityID:       profile.ID.String(),
		MinistryID:     profile.MinistryID,
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

func (s *Service) incrementSingletonConflict() {
	if s.metrics != nil {
		s.metrics.IncrementSingletonConflict()
	}
}
