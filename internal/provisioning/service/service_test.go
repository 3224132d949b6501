package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"sigrh/internal/agent"
	"sigrh/internal/audit"
	"sigrh/internal/provisioning"
	"sigrh/internal/provisioning/credentials"
	id "sigrh/pkg/domain"
	dErrors "sigrh/pkg/domain-errors"
	"sigrh/pkg/requestcontext"
)

type ProvisioningServiceSuite struct {
	suite.Suite
	profiles *provisioning.InMemoryProfiles
	locks    *provisioning.InMemoryLocks
	agents   *agent.InMemory
	auditLog *audit.InMemory
	service  *Service

	now      time.Time
	actor    id.ProfileID
	ministry id.MinistryID
}

func TestProvisioningServiceSuite(t *testing.T) {
	suite.Run(t, new(ProvisioningServiceSuite))
}

func (s *ProvisioningServiceSuite) SetupTest() {
	s.reset()
}

func (s *ProvisioningServiceSuite) SetupSubTest() {
	s.reset()
}

func (s *ProvisioningServiceSuite) reset() {
	s.profiles = provisioning.NewInMemoryProfiles()
	s.locks = provisioning.NewInMemoryLocks()
	s.agents = agent.NewInMemory()
	s.auditLog = audit.NewInMemory()
	s.service = New(s.profiles, s.locks, s.agents, audit.NewPublisher(s.auditLog))

	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.actor = id.ProfileID(uuid.New())
	s.ministry = id.MinistryID(uuid.New())
}

func (s *ProvisioningServiceSuite) ctx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	ctx = requestcontext.WithActorID(ctx, s.actor)
	return ctx
}

func (s *ProvisioningServiceSuite) seedAgent() *agent.Agent {
	a, err := agent.NewAgent(
		id.AgentID(uuid.New()),
		"MAT-"+uuid.NewString()[:8], "Awa", "Ndong",
		s.ministry,
		id.CorpsID(uuid.New()), id.GradeID(uuid.New()),
		id.PayScaleID(uuid.New()), id.StepID(uuid.New()),
		s.now,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.agents.Create(context.Background(), a))
	return a
}

func (s *ProvisioningServiceSuite) email() string {
	return "agent-" + uuid.NewString()[:8] + "@fonction-publique.ga"
}

// =============================================================================
// PromoteToDelegate
// =============================================================================

func (s *ProvisioningServiceSuite) TestPromoteToDelegate() {
	s.Run("provisions a new account with a one-time secret", func() {
		a := s.seedAgent()
		result, err := s.service.PromoteToDelegate(s.ctx(), a.ID, s.email(), "")
		s.Require().NoError(err)
		s.Equal(provisioning.RoleDelegate, result.Profile.Role)
		s.Equal(s.ministry, result.Profile.MinistryID)
		s.Equal("Awa Ndong", result.Profile.FullName)
		s.NotEmpty(result.TempSecret)

		linked, err := s.agents.GetByID(context.Background(), a.ID)
		s.Require().NoError(err)
		s.Require().NotNil(linked.ProfileID)
		s.Equal(result.Profile.ID, *linked.ProfileID)
	})

	s.Run("reuses the linked account without issuing a secret", func() {
		a := s.seedAgent()
		first, err := s.service.PromoteToDelegate(s.ctx(), a.ID, s.email(), "")
		s.Require().NoError(err)

		_, err = s.service.RevokeDelegate(s.ctx(), first.Profile.ID)
		s.Require().NoError(err)

		second, err := s.service.PromoteToDelegate(s.ctx(), a.ID, "", "")
		s.Require().NoError(err)
		s.Equal(first.Profile.ID, second.Profile.ID)
		s.Equal(provisioning.RoleDelegate, second.Profile.Role)
		s.Empty(second.TempSecret)
	})

	s.Run("multiple delegates may coexist", func() {
		for range 3 {
			a := s.seedAgent()
			_, err := s.service.PromoteToDelegate(s.ctx(), a.ID, s.email(), "")
			s.Require().NoError(err)
		}
		delegates, err := s.service.ListDelegates(s.ctx(), s.ministry)
		s.Require().NoError(err)
		s.Len(delegates, 3)
	})

	s.Run("missing email for an unlinked agent is a validation error", func() {
		a := s.seedAgent()
		_, err := s.service.PromoteToDelegate(s.ctx(), a.ID, "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown agent is not found", func() {
		_, err := s.service.PromoteToDelegate(s.ctx(), id.AgentID(uuid.New()), s.email(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("promotion emits an audit entry", func() {
		a := s.seedAgent()
		result, err := s.service.PromoteToDelegate(s.ctx(), a.ID, s.email(), "")
		s.Require().NoError(err)

		events := s.auditLog.All()
		last := events[len(events)-1]
		s.Equal(audit.ActionPromotion, last.Action)
		s.Equal(audit.EntityProfile, last.Entity)
		s.Equal(result.Profile.ID.String(), last.EntityID)
		s.Equal(s.actor, last.ActorID)
	})
}

// =============================================================================
// PromoteToCentralAuthority
// =============================================================================

func (s *ProvisioningServiceSuite) TestPromoteToCentralAuthority() {
	s.Run("first promotion takes the slot", func() {
		a := s.seedAgent()
		result, err := s.service.PromoteToCentralAuthority(s.ctx(), a.ID, s.email(), "")
		s.Require().NoError(err)
		s.Equal(provisioning.RoleCentralAuthority, result.Profile.Role)

		current, err := s.profiles.FindActiveAuthority(s.ctx(), s.ministry)
		s.Require().NoError(err)
		s.Equal(result.Profile.ID, current.ID)
	})

	s.Run("second promotion in the same ministry conflicts", func() {
		first := s.seedAgent()
		_, err := s.service.PromoteToCentralAuthority(s.ctx(), first.ID, s.email(), "")
		s.Require().NoError(err)

		second := s.seedAgent()
		_, err = s.service.PromoteToCentralAuthority(s.ctx(), second.ID, s.email(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("ministries hold independent slots", func() {
		a := s.seedAgent()
		_, err := s.service.PromoteToCentralAuthority(s.ctx(), a.ID, s.email(), "")
		s.Require().NoError(err)

		other, err := agent.NewAgent(
			id.AgentID(uuid.New()), "MAT-"+uuid.NewString()[:8], "Omar", "Obiang",
			id.MinistryID(uuid.New()),
			id.CorpsID(uuid.New()), id.GradeID(uuid.New()),
			id.PayScaleID(uuid.New()), id.StepID(uuid.New()), s.now,
		)
		s.Require().NoError(err)
		s.Require().NoError(s.agents.Create(context.Background(), other))

		_, err = s.service.PromoteToCentralAuthority(s.ctx(), other.ID, s.email(), "")
		s.NoError(err)
	})

	s.Run("slot reopens after a lock", func() {
		a := s.seedAgent()
		_, err := s.service.PromoteToCentralAuthority(s.ctx(), a.ID, s.email(), "")
		s.Require().NoError(err)

		_, err = s.service.LockCurrentAuthority(s.ctx(), s.ministry, "mandate expired")
		s.Require().NoError(err)

		successor := s.seedAgent()
		_, err = s.service.PromoteToCentralAuthority(s.ctx(), successor.ID, s.email(), "")
		s.NoError(err)
	})
}

// TestConcurrentAuthorityPromotions races N promotions at one ministry's
// slot. Exactly one must win; the losers must see a conflict, never a
// second active authority.
func (s *ProvisioningServiceSuite) TestConcurrentAuthorityPromotions() {
	const contenders = 8

	agents := make([]*agent.Agent, contenders)
	for i := range agents {
		agents[i] = s.seedAgent()
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := range contenders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.PromoteToCentralAuthority(s.ctx(), agents[i].ID, s.email(), "")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			s.True(dErrors.HasCode(err, dErrors.CodeConflict), "loser must conflict, got %v", err)
		}
	}
	s.Equal(1, winners)

	count, err := s.profiles.CountByRole(s.ctx(), s.ministry, provisioning.RoleCentralAuthority)
	s.Require().NoError(err)
	s.Equal(1, count)
}

// =============================================================================
// LockCurrentAuthority
// =============================================================================

func (s *ProvisioningServiceSuite) TestLockCurrentAuthority() {
	s.Run("deactivates the authority and records the lock", func() {
		a := s.seedAgent()
		result, err := s.service.PromoteToCentralAuthority(s.ctx(), a.ID, s.email(), "")
		s.Require().NoError(err)

		lock, err := s.service.LockCurrentAuthority(s.ctx(), s.ministry, "mandate expired")
		s.Require().NoError(err)
		s.Equal(result.Profile.ID, lock.PreviousAuthorityID)
		s.Equal(s.actor, lock.LockedBy)
		s.Equal("mandate expired", lock.Reason)
		s.True(lock.Active)

		locked, err := s.profiles.GetByID(s.ctx(), result.Profile.ID)
		s.Require().NoError(err)
		s.False(locked.Active)

		_, err = s.profiles.FindActiveAuthority(s.ctx(), s.ministry)
		s.Error(err)
	})

	s.Run("empty slot is reported", func() {
		_, err := s.service.LockCurrentAuthority(s.ctx(), s.ministry, "reason")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("blank reason is refused", func() {
		a := s.seedAgent()
		_, err := s.service.PromoteToCentralAuthority(s.ctx(), a.ID, s.email(), "")
		s.Require().NoError(err)

		_, err = s.service.LockCurrentAuthority(s.ctx(), s.ministry, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("lock records accumulate", func() {
		for i := 0; i < 2; i++ {
			a := s.seedAgent()
			_, err := s.service.PromoteToCentralAuthority(s.ctx(), a.ID, s.email(), "")
			s.Require().NoError(err)
			_, err = s.service.LockCurrentAuthority(s.ctx(), s.ministry, "rotation")
			s.Require().NoError(err)
		}
		locks, err := s.service.ListAuthorityLocks(s.ctx(), s.ministry)
		s.Require().NoError(err)
		s.Len(locks, 2)
	})
}

// =============================================================================
// RevokeDelegate
// =============================================================================

func (s *ProvisioningServiceSuite) TestRevokeDelegate() {
	s.Run("demotes delegate to agent role", func() {
		a := s.seedAgent()
		result, err := s.service.PromoteToDelegate(s.ctx(), a.ID, s.email(), "")
		s.Require().NoError(err)

		revoked, err := s.service.RevokeDelegate(s.ctx(), result.Profile.ID)
		s.Require().NoError(err)
		s.Equal(provisioning.RoleAgent, revoked.Role)

		events := s.auditLog.All()
		s.Equal(audit.ActionRevocation, events[len(events)-1].Action)
	})

	s.Run("revoking twice is an idempotent no-op", func() {
		a := s.seedAgent()
		result, err := s.service.PromoteToDelegate(s.ctx(), a.ID, s.email(), "")
		s.Require().NoError(err)

		_, err = s.service.RevokeDelegate(s.ctx(), result.Profile.ID)
		s.Require().NoError(err)
		before := len(s.auditLog.All())

		again, err := s.service.RevokeDelegate(s.ctx(), result.Profile.ID)
		s.Require().NoError(err)
		s.Equal(provisioning.RoleAgent, again.Role)
		s.Len(s.auditLog.All(), before, "no-op revocation must not audit")
	})

	s.Run("unknown profile is not found", func() {
		_, err := s.service.RevokeDelegate(s.ctx(), id.ProfileID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// GetMinistryStats
// =============================================================================

func (s *ProvisioningServiceSuite) TestGetMinistryStats() {
	s.Run("counts agents, delegates and the authority slot", func() {
		for range 2 {
			s.seedAgent()
		}
		delegate := s.seedAgent()
		_, err := s.service.PromoteToDelegate(s.ctx(), delegate.ID, s.email(), "")
		s.Require().NoError(err)

		stats, err := s.service.GetMinistryStats(s.ctx(), s.ministry)
		s.Require().NoError(err)
		s.Equal(3, stats.AgentCount)
		s.Equal(1, stats.DelegateCount)
		s.False(stats.HasActiveAuthority)

		authority := s.seedAgent()
		_, err = s.service.PromoteToCentralAuthority(s.ctx(), authority.ID, s.email(), "")
		s.Require().NoError(err)

		stats, err = s.service.GetMinistryStats(s.ctx(), s.ministry)
		s.Require().NoError(err)
		s.True(stats.HasActiveAuthority)
	})
}

// Credential issuance failures must leave nothing behind and surface as a
// retryable outage, never a generic 500.

type failingIssuer struct {
	err error
}

func (f failingIssuer) Issue(string) (credentials.Credential, error) {
	return credentials.Credential{}, f.err
}

func (s *ProvisioningServiceSuite) TestIssuerFailureLeavesNoProfile() {
	svc := New(s.profiles, s.locks, s.agents, audit.NewPublisher(s.auditLog),
		WithIssuer(failingIssuer{err: errors.New("connection refused")}))

	a := s.seedAgent()
	_, err := svc.PromoteToDelegate(s.ctx(), a.ID, s.email(), "")
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnavailable, dErrors.GetCode(err), "uncoded issuer failure is a retryable outage")

	record, err := s.agents.GetByID(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Nil(record.ProfileID, "agent must stay unlinked")

	delegates, err := s.profiles.ListByRole(s.ctx(), s.ministry, provisioning.RoleDelegate)
	s.Require().NoError(err)
	s.Empty(delegates)
}

func (s *ProvisioningServiceSuite) TestIssuerCodePassesThrough() {
	s.Run("unavailable stays unavailable", func() {
		svc := New(s.profiles, s.locks, s.agents, audit.NewPublisher(s.auditLog),
			WithIssuer(failingIssuer{err: dErrors.New(dErrors.CodeUnavailable, "idp timeout")}))

		a := s.seedAgent()
		_, err := svc.PromoteToDelegate(s.ctx(), a.ID, s.email(), "")
		s.Require().Error(err)
		s.Equal(dErrors.CodeUnavailable, dErrors.GetCode(err))
	})

	s.Run("invalid input stays invalid input", func() {
		svc := New(s.profiles, s.locks, s.agents, audit.NewPublisher(s.auditLog),
			WithIssuer(failingIssuer{err: dErrors.New(dErrors.CodeInvalidInput, "email rejected by idp")}))

		a := s.seedAgent()
		_, err := svc.PromoteToDelegate(s.ctx(), a.ID, s.email(), "")
		s.Require().Error(err)
		s.Equal(dErrors.CodeInvalidInput, dErrors.GetCode(err))
	})
}
