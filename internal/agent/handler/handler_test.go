package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"sigrh/internal/agent"
	agentservice "sigrh/internal/agent/service"
	"sigrh/internal/audit"
	"sigrh/internal/catalog"
	"sigrh/internal/classification"
	"sigrh/internal/platform/middleware"
	"sigrh/internal/provisioning"
	id "sigrh/pkg/domain"
)

const signingKey = "handler-test-signing-key"

type fixture struct {
	router     http.Handler
	ministryID id.MinistryID
	corpsID    id.CorpsID
	gradeID    id.GradeID
	payScaleID id.PayScaleID
	stepID     id.StepID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	refdata := catalog.NewInMemory()
	corps := &catalog.Corps{ID: id.CorpsID(uuid.New()), Code: "ADM", Name: "Administrateurs", Category: "A1", Active: true}
	refdata.PutCorps(corps)
	grade := &catalog.Grade{ID: id.GradeID(uuid.New()), Code: "G1", Name: "Premier grade", Ordinal: 1, Active: true}
	refdata.PutGrade(grade)
	scale := &catalog.PayScale{ID: id.PayScaleID(uuid.New()), Code: "E-A1-G1", Name: "Echelle A1", Category: "A1", GradeID: grade.ID, MinIndex: 300, MaxIndex: 900, Active: true}
	if err := refdata.PutPayScale(scale); err != nil {
		t.Fatalf("seed pay scale: %v", err)
	}
	step := &catalog.Step{ID: id.StepID(uuid.New()), PayScaleID: scale.ID, Number: 1, GrossIndex: 350, IncrementMonths: 24, Active: true}
	if err := refdata.PutStep(step); err != nil {
		t.Fatalf("seed step: %v", err)
	}

	svc := agentservice.New(
		agent.NewInMemory(),
		classification.New(refdata),
		audit.NewPublisher(audit.NewInMemory()),
	)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(svc, logger)

	ministryID := id.MinistryID(uuid.New())
	r := chi.NewRouter()
	r.Use(middleware.RequireAuth(middleware.NewHMACValidator(signingKey), logger))
	h.Register(r)

	return &fixture{
		router:     r,
		ministryID: ministryID,
		corpsID:    corps.ID,
		gradeID:    grade.ID,
		payScaleID: scale.ID,
		stepID:     step.ID,
	}
}

func (f *fixture) token(t *testing.T, role provisioning.Role) string {
	t.Helper()
	claims := middleware.Claims{
		MinistryID: f.ministryID.String(),
		Role:       string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createRequest() map[string]any {
	return map[string]any{
		"matricule":    "MAT-" + uuid.NewString()[:8],
		"first_name":   "Jean",
		"last_name":    "Ondo",
		"corps_id":     f.corpsID.String(),
		"grade_id":     f.gradeID.String(),
		"pay_scale_id": f.payScaleID.String(),
		"step_id":      f.stepID.String(),
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/agents", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestRoleGates(t *testing.T) {
	f := newFixture(t)
	authorityToken := f.token(t, provisioning.RoleCentralAuthority)
	delegateToken := f.token(t, provisioning.RoleDelegate)

	// Central authority cannot create records.
	rec := f.do(t, http.MethodPost, "/agents", authorityToken, f.createRequest())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 creating as authority, got %d", rec.Code)
	}

	// Delegates cannot validate.
	rec = f.do(t, http.MethodPost, "/agents/"+uuid.NewString()+"/validate", delegateToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 validating as delegate, got %d", rec.Code)
	}
}

func TestFullLifecycleViaHandlers(t *testing.T) {
	f := newFixture(t)
	delegateToken := f.token(t, provisioning.RoleDelegate)
	authorityToken := f.token(t, provisioning.RoleCentralAuthority)

	// Create. The ministry comes from the token claim.
	rec := f.do(t, http.MethodPost, "/agents", delegateToken, f.createRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating agent, got %d: %s", rec.Code, rec.Body.String())
	}
	var created agent.Agent
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created agent: %v", err)
	}
	if created.Status != agent.StatusProbation {
		t.Fatalf("expected probation status, got %s", created.Status)
	}
	if created.MinistryID != f.ministryID {
		t.Fatalf("expected ministry from token claim")
	}

	// Submit.
	rec = f.do(t, http.MethodPost, "/agents/"+created.ID.String()+"/submit", delegateToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 submitting, got %d: %s", rec.Code, rec.Body.String())
	}

	// The pending queue lists it.
	rec = f.do(t, http.MethodGet, "/agents", authorityToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing queue, got %d", rec.Code)
	}
	var queue []agent.Agent
	if err := json.NewDecoder(rec.Body).Decode(&queue); err != nil {
		t.Fatalf("decode queue: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != created.ID {
		t.Fatalf("expected the submitted record in the queue, got %d entries", len(queue))
	}

	// Validate with an empty body (comment is optional).
	rec = f.do(t, http.MethodPost, "/agents/"+created.ID.String()+"/validate", authorityToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 validating, got %d: %s", rec.Code, rec.Body.String())
	}
	var confirmed agent.Agent
	if err := json.NewDecoder(rec.Body).Decode(&confirmed); err != nil {
		t.Fatalf("decode validated agent: %v", err)
	}
	if confirmed.Status != agent.StatusConfirmed {
		t.Fatalf("expected confirmed status, got %s", confirmed.Status)
	}
	if confirmed.ValidatedBy == nil {
		t.Fatalf("expected validator stamp")
	}

	// The trail covers creation, submission, validation.
	rec = f.do(t, http.MethodGet, "/agents/"+created.ID.String()+"/history", delegateToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching history, got %d", rec.Code)
	}
	var trail []audit.Event
	if err := json.NewDecoder(rec.Body).Decode(&trail); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(trail) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(trail))
	}
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	delegateToken := f.token(t, provisioning.RoleDelegate)
	authorityToken := f.token(t, provisioning.RoleCentralAuthority)

	rec := f.do(t, http.MethodPost, "/agents", delegateToken, f.createRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating agent, got %d", rec.Code)
	}
	var created agent.Agent
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created agent: %v", err)
	}
	rec = f.do(t, http.MethodPost, "/agents/"+created.ID.String()+"/submit", delegateToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 submitting, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/agents/"+created.ID.String()+"/reject", authorityToken, map[string]string{"reason": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 rejecting without reason, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/agents/"+created.ID.String()+"/reject", authorityToken, map[string]string{"reason": "missing decree reference"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 rejecting with reason, got %d: %s", rec.Code, rec.Body.String())
	}
	var rejected agent.Agent
	if err := json.NewDecoder(rec.Body).Decode(&rejected); err != nil {
		t.Fatalf("decode rejected agent: %v", err)
	}
	if rejected.Status != agent.StatusProbation {
		t.Fatalf("expected probation after rejection, got %s", rejected.Status)
	}
	if rejected.RejectionReason != "missing decree reference" {
		t.Fatalf("expected rejection reason on the record")
	}
}

func TestCreateWithUnknownStepReturnsUnprocessable(t *testing.T) {
	f := newFixture(t)
	delegateToken := f.token(t, provisioning.RoleDelegate)

	req := f.createRequest()
	req["step_id"] = uuid.NewString()
	rec := f.do(t, http.MethodPost, "/agents", delegateToken, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown step, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		FailureCode string `json:"failure_code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if resp.FailureCode != string(classification.FailureUnknownStep) {
		t.Fatalf("expected unknown_step failure code, got %q", resp.FailureCode)
	}
}

func TestGetUnknownAgent(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, provisioning.RoleDelegate)

	rec := f.do(t, http.MethodGet, "/agents/"+uuid.NewString(), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown agent, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/agents/not-a-uuid", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}
