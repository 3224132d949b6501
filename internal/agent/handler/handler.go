// Package handler exposes the agent lifecycle endpoints. Role gating
// mirrors the statute: delegates and ministry admins manage records, only
// the central authority decides validations.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sigrh/internal/agent"
	agentservice "sigrh/internal/agent/service"
	"sigrh/internal/audit"
	"sigrh/internal/classification"
	"sigrh/internal/platform/middleware"
	"sigrh/internal/provisioning"
	"sigrh/internal/transport/http/shared"
	id "sigrh/pkg/domain"
	dErrors "sigrh/pkg/domain-errors"
	"sigrh/pkg/requestcontext"
)

// Service defines the agent operations the transport needs.
type Service interface {
	CreateAgent(ctx context.Context, req agentservice.CreateAgentRequest) (*agent.Agent, error)
	Submit(ctx context.Context, agentID id.AgentID) (*agent.Agent, error)
	ValidateAgent(ctx context.Context, agentID id.AgentID, actor id.ProfileID, comment string) (*agent.Agent, error)
	Reject(ctx context.Context, agentID id.AgentID, actor id.ProfileID, reason string) (*agent.Agent, error)
	GetAgent(ctx context.Context, agentID id.AgentID) (*agent.Agent, error)
	ListAgentsByStatus(ctx context.Context, ministryID id.MinistryID, status agent.Status) ([]*agent.Agent, error)
	History(ctx context.Context, agentID id.AgentID) ([]audit.Event, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the agent routes. The caller has already applied auth;
// per-route role gates are added here.
func (h *Handler) Register(r chi.Router) {
	manage := middleware.RequireRole(
		string(provisioning.RoleDelegate),
		string(provisioning.RoleMinistryAdmin),
	)
	decide := middleware.RequireRole(string(provisioning.RoleCentralAuthority))

	r.With(manage).Post("/agents", h.handleCreate)
	r.With(manage).Post("/agents/{agentID}/submit", h.handleSubmit)
	r.With(decide).Post("/agents/{agentID}/validate", h.handleValidate)
	r.With(decide).Post("/agents/{agentID}/reject", h.handleReject)
	r.Get("/agents", h.handleList)
	r.Get("/agents/{agentID}", h.handleGet)
	r.Get("/agents/{agentID}/history", h.handleHistory)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req agentservice.CreateAgentRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.MinistryID.IsZero() {
		req.MinistryID = requestcontext.MinistryID(ctx)
	}

	created, err := h.service.CreateAgent(ctx, req)
	if err != nil {
		h.logFailure(ctx, "create agent failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	agentID, err := id.ParseAgentID(chi.URLParam(r, "agentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid agent id"))
		return
	}

	updated, err := h.service.Submit(r.Context(), agentID)
	if err != nil {
		h.logFailure(r.Context(), "submit failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, updated)
}

type decisionRequest struct {
	Comment string `json:"comment,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID, err := id.ParseAgentID(chi.URLParam(r, "agentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid agent id"))
		return
	}

	var req decisionRequest
	if r.ContentLength > 0 {
		if err := shared.Decode(r, &req); err != nil {
			shared.WriteError(w, err)
			return
		}
	}

	updated, err := h.service.ValidateAgent(ctx, agentID, requestcontext.ActorID(ctx), req.Comment)
	if err != nil {
		h.logFailure(ctx, "validate failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID, err := id.ParseAgentID(chi.URLParam(r, "agentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid agent id"))
		return
	}

	var req decisionRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	updated, err := h.service.Reject(ctx, agentID, requestcontext.ActorID(ctx), req.Reason)
	if err != nil {
		h.logFailure(ctx, "reject failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	agentID, err := id.ParseAgentID(chi.URLParam(r, "agentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid agent id"))
		return
	}

	record, err := h.service.GetAgent(r.Context(), agentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ministryID := requestcontext.MinistryID(ctx)
	status := agent.Status(r.URL.Query().Get("status"))

	agents, err := h.service.ListAgentsByStatus(ctx, ministryID, status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if agents == nil {
		agents = []*agent.Agent{}
	}
	shared.WriteJSON(w, http.StatusOK, agents)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	agentID, err := id.ParseAgentID(chi.URLParam(r, "agentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid agent id"))
		return
	}

	trail, err := h.service.History(r.Context(), agentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if trail == nil {
		trail = []audit.Event{}
	}
	shared.WriteJSON(w, http.StatusOK, trail)
}

// logFailure logs expected business failures (coded domain errors,
// hierarchy validation failures) at Warn and everything else at Error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if dErrors.GetCode(err) == dErrors.CodeInternal && classification.CodeOf(err) == "" {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
}
