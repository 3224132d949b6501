// Package httptransport assembles the HTTP surface: the platform
// middleware chain, the per-module handlers, and the operational
// endpoints. Handlers stay thin; business logic lives in the services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	agenthandler "sigrh/internal/agent/handler"
	cataloghandler "sigrh/internal/catalog/handler"
	"sigrh/internal/platform/middleware"
	provhandler "sigrh/internal/provisioning/handler"
)

const requestTimeout = 30 * time.Second

// Deps are the wired handlers and platform pieces the router mounts.
type Deps struct {
	Logger       *slog.Logger
	JWTValidator middleware.Validator
	Catalog      *cataloghandler.Handler
	Agents       *agenthandler.Handler
	Provisioning *provhandler.Handler
	// Health reports readiness of the backing stores; nil means always ok.
	Health func() error
}

// NewRouter wires all endpoints. /healthz and /metrics stay outside the
// auth gate; everything else requires a valid bearer token.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", handleHealth(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))
		deps.Catalog.Register(api)
		deps.Agents.Register(api)
		deps.Provisioning.Register(api)
	})

	return r
}

func handleHealth(health func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health != nil {
			if err := health(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
