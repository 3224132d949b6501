package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sigrh/internal/agent"
	"sigrh/internal/audit"
	"sigrh/internal/provisioning"
	provservice "sigrh/internal/provisioning/service"
	id "sigrh/pkg/domain"
	"sigrh/pkg/testutil"
)

type fixture struct {
	router   http.Handler
	agents   *agent.InMemory
	profiles *provisioning.InMemoryProfiles
	admin    id.ProfileID
	ministry id.MinistryID
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	agents := agent.NewInMemory()
	profiles := provisioning.NewInMemoryProfiles()
	svc := provservice.New(profiles, provisioning.NewInMemoryLocks(), agents,
		audit.NewPublisher(audit.NewInMemory()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)

	return &fixture{
		router:   r,
		agents:   agents,
		profiles: profiles,
		admin:    id.ProfileID(uuid.New()),
		ministry: id.MinistryID(uuid.New()),
		now:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

// asAdmin stamps the request the way the auth middleware would for a
// ministry admin.
func (f *fixture) asAdmin(req *http.Request) *http.Request {
	req = testutil.WithActor(req, f.admin, string(provisioning.RoleMinistryAdmin))
	req = testutil.WithMinistry(req, f.ministry)
	return testutil.WithFrozenTime(req, f.now)
}

func (f *fixture) seedAgent(t *testing.T) *agent.Agent {
	t.Helper()
	a, err := agent.NewAgent(
		id.AgentID(uuid.New()),
		"MAT-"+uuid.NewString()[:8], "Awa", "Ndong",
		f.ministry,
		id.CorpsID(uuid.New()), id.GradeID(uuid.New()),
		id.PayScaleID(uuid.New()), id.StepID(uuid.New()),
		f.now,
	)
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	if err := f.agents.Create(context.Background(), a); err != nil {
		t.Fatalf("store agent: %v", err)
	}
	return a
}

func email() string {
	return "agent-" + uuid.NewString()[:8] + "@fonction-publique.ga"
}

func TestAdminRoleRequired(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewRequest(t, http.MethodGet, "/provisioning/stats")
	req = testutil.WithActor(req, f.admin, string(provisioning.RoleDelegate))
	rec := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rec, http.StatusForbidden)
}

func TestPromoteDelegateViaHandler(t *testing.T) {
	f := newFixture(t)
	a := f.seedAgent(t)

	var result provservice.PromotionResult

	testutil.When(t, "an admin promotes an unlinked agent", func(t *testing.T) {
		req := f.asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/provisioning/delegates",
			map[string]string{"agent_id": a.ID.String(), "email": email()}))
		rec := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rec, http.StatusCreated)
		result = *testutil.UnmarshalResponse[provservice.PromotionResult](t, rec)
	})

	testutil.Then(t, "a delegate account with a one-time secret exists", func(t *testing.T) {
		if result.Profile.Role != provisioning.RoleDelegate {
			t.Fatalf("expected delegate role, got %s", result.Profile.Role)
		}
		if result.TempSecret == "" {
			t.Fatalf("expected a temp secret for the new account")
		}
		linked, err := f.agents.GetByID(context.Background(), a.ID)
		if err != nil {
			t.Fatalf("reload agent: %v", err)
		}
		if linked.ProfileID == nil || *linked.ProfileID != result.Profile.ID {
			t.Fatalf("expected the agent linked to the new profile")
		}
	})
}

func TestAuthoritySingletonViaHandler(t *testing.T) {
	f := newFixture(t)

	var authority provservice.PromotionResult

	testutil.Given(t, "a ministry with an active central authority", func(t *testing.T) {
		a := f.seedAgent(t)
		req := f.asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/provisioning/authority",
			map[string]string{"agent_id": a.ID.String(), "email": email()}))
		rec := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rec, http.StatusCreated)
		authority = *testutil.UnmarshalResponse[provservice.PromotionResult](t, rec)
	})

	testutil.When(t, "a second promotion targets the same ministry", func(t *testing.T) {
		b := f.seedAgent(t)
		req := f.asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/provisioning/authority",
			map[string]string{"agent_id": b.ID.String(), "email": email()}))
		rec := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rec, http.StatusConflict)
		testutil.AssertErrorCode(t, rec, "conflict")
	})

	testutil.Then(t, "locking the incumbent frees the slot", func(t *testing.T) {
		req := f.asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/provisioning/authority/lock",
			map[string]string{"reason": "mandate expired"}))
		rec := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rec, http.StatusCreated)

		lock := testutil.UnmarshalResponse[provisioning.AuthorityLock](t, rec)
		if lock.PreviousAuthorityID != authority.Profile.ID {
			t.Fatalf("expected the lock to name the deactivated authority")
		}
		if lock.LockedBy != f.admin {
			t.Fatalf("expected the lock stamped with the acting admin")
		}

		c := f.seedAgent(t)
		req = f.asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/provisioning/authority",
			map[string]string{"agent_id": c.ID.String(), "email": email()}))
		rec = testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rec, http.StatusCreated)
	})
}

func TestLockWithoutAuthority(t *testing.T) {
	f := newFixture(t)

	req := f.asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/provisioning/authority/lock",
		map[string]string{"reason": "cleanup"}))
	rec := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rec, http.StatusNotFound)
	testutil.AssertErrorCode(t, rec, "not_found")
}

func TestStatsViaHandler(t *testing.T) {
	f := newFixture(t)
	f.seedAgent(t)
	f.seedAgent(t)

	req := f.asAdmin(testutil.NewRequest(t, http.MethodGet, "/provisioning/stats"))
	rec := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	stats := testutil.UnmarshalResponse[provisioning.MinistryStats](t, rec)
	if stats.AgentCount != 2 {
		t.Fatalf("expected 2 agents, got %d", stats.AgentCount)
	}
	if stats.HasActiveAuthority {
		t.Fatalf("expected no active authority yet")
	}
}
