// Package handler exposes the role provisioning endpoints. All routes are
// gated on the ministry_admin role; the authority singleton and lock
// protocol live in the service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sigrh/internal/platform/middleware"
	"sigrh/internal/provisioning"
	provservice "sigrh/internal/provisioning/service"
	"sigrh/internal/transport/http/shared"
	id "sigrh/pkg/domain"
	dErrors "sigrh/pkg/domain-errors"
	"sigrh/pkg/requestcontext"
)

// Service defines the provisioning operations the transport needs.
type Service interface {
	PromoteToDelegate(ctx context.Context, agentID id.AgentID, email, fullName string) (*provservice.PromotionResult, error)
	PromoteToCentralAuthority(ctx context.Context, agentID id.AgentID, email, fullName string) (*provservice.PromotionResult, error)
	LockCurrentAuthority(ctx context.Context, ministryID id.MinistryID, reason string) (*provisioning.AuthorityLock, error)
	RevokeDelegate(ctx context.Context, profileID id.ProfileID) (*provisioning.Profile, error)
	ListDelegates(ctx context.Context, ministryID id.MinistryID) ([]*provisioning.Profile, error)
	GetMinistryStats(ctx context.Context, ministryID id.MinistryID) (*provisioning.MinistryStats, error)
	ListAuthorityLocks(ctx context.Context, ministryID id.MinistryID) ([]*provisioning.AuthorityLock, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the provisioning routes behind the ministry_admin gate.
func (h *Handler) Register(r chi.Router) {
	admin := middleware.RequireRole(string(provisioning.RoleMinistryAdmin))

	r.With(admin).Post("/provisioning/delegates", h.handlePromoteDelegate)
	r.With(admin).Delete("/provisioning/delegates/{profileID}", h.handleRevokeDelegate)
	r.With(admin).Get("/provisioning/delegates", h.handleListDelegates)
	r.With(admin).Post("/provisioning/authority", h.handlePromoteAuthority)
	r.With(admin).Post("/provisioning/authority/lock", h.handleLockAuthority)
	r.With(admin).Get("/provisioning/authority/locks", h.handleListLocks)
	r.With(admin).Get("/provisioning/stats", h.handleStats)
}

type promoteRequest struct {
	AgentID  id.AgentID `json:"agent_id"`
	Email    string     `json:"email,omitempty"`
	FullName string     `json:"full_name,omitempty"`
}

func (h *Handler) handlePromoteDelegate(w http.ResponseWriter, r *http.Request) {
	h.promote(w, r, h.service.PromoteToDelegate)
}

func (h *Handler) handlePromoteAuthority(w http.ResponseWriter, r *http.Request) {
	h.promote(w, r, h.service.PromoteToCentralAuthority)
}

func (h *Handler) promote(w http.ResponseWriter, r *http.Request, op func(context.Context, id.AgentID, string, string) (*provservice.PromotionResult, error)) {
	ctx := r.Context()

	var req promoteRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := op(ctx, req.AgentID, req.Email, req.FullName)
	if err != nil {
		h.logFailure(ctx, "promotion failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, result)
}

type lockRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleLockAuthority(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req lockRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	lock, err := h.service.LockCurrentAuthority(ctx, requestcontext.MinistryID(ctx), req.Reason)
	if err != nil {
		h.logFailure(ctx, "authority lock failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, lock)
}

func (h *Handler) handleRevokeDelegate(w http.ResponseWriter, r *http.Request) {
	profileID, err := id.ParseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid profile id"))
		return
	}

	profile, err := h.service.RevokeDelegate(r.Context(), profileID)
	if err != nil {
		h.logFailure(r.Context(), "revocation failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleListDelegates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	delegates, err := h.service.ListDelegates(ctx, requestcontext.MinistryID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if delegates == nil {
		delegates = []*provisioning.Profile{}
	}
	shared.WriteJSON(w, http.StatusOK, delegates)
}

func (h *Handler) handleListLocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locks, err := h.service.ListAuthorityLocks(ctx, requestcontext.MinistryID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if locks == nil {
		locks = []*provisioning.AuthorityLock{}
	}
	shared.WriteJSON(w, http.StatusOK, locks)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.GetMinistryStats(ctx, requestcontext.MinistryID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if dErrors.GetCode(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
}
