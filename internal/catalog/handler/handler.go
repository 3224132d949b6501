// Package handler exposes the classification catalog read endpoints that
// feed the enrollment form dropdowns.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sigrh/internal/catalog"
	"sigrh/internal/transport/http/shared"
	id "sigrh/pkg/domain"
	dErrors "sigrh/pkg/domain-errors"
)

// Handler serves the catalog routes. The store is typically the redis
// read-through decorator; staleness within the TTL is acceptable here
// because enrollment is re-validated against the authoritative store.
type Handler struct {
	store  catalog.Store
	logger *slog.Logger
}

func New(store catalog.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts the catalog routes. Callers wrap the router with the
// platform middleware chain; only route wiring happens here.
func (h *Handler) Register(r chi.Router) {
	r.Get("/catalog/corps", h.handleListCorps)
	r.Get("/catalog/grades", h.handleListGrades)
	r.Get("/catalog/pay-scales", h.handleListPayScales)
	r.Get("/catalog/pay-scales/{payScaleID}/steps", h.handleListSteps)
}

func (h *Handler) handleListCorps(w http.ResponseWriter, r *http.Request) {
	corps, err := h.store.ListCorps(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list corps", "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list corps"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, corps)
}

func (h *Handler) handleListGrades(w http.ResponseWriter, r *http.Request) {
	grades, err := h.store.ListGrades(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list grades", "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list grades"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, grades)
}

// handleListPayScales lists the active pay scales for one
// (category, grade) pair, the key the statutory grid is organized by.
func (h *Handler) handleListPayScales(w http.ResponseWriter, r *http.Request) {
	category := catalog.Category(r.URL.Query().Get("category"))
	if category == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "category query parameter is required"))
		return
	}
	gradeID, err := id.ParseGradeID(r.URL.Query().Get("grade_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "grade_id query parameter is required"))
		return
	}

	scales, err := h.store.ListPayScales(r.Context(), category, gradeID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list pay scales", "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list pay scales"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, scales)
}

func (h *Handler) handleListSteps(w http.ResponseWriter, r *http.Request) {
	payScaleID, err := id.ParsePayScaleID(chi.URLParam(r, "payScaleID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid pay scale id"))
		return
	}

	steps, err := h.store.ListSteps(r.Context(), payScaleID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list steps", "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list steps"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, steps)
}
