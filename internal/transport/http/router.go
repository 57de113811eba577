// Package httptransport assembles the console's HTTP surface: the versioned
// API, health, and metrics endpoints behind the shared middleware chain.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backoffice/internal/platform/middleware"
)

// Registrar mounts a module's endpoints on a router.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the full HTTP handler. Each module registers its own
// routes under /api/v1; transport concerns stay here.
func NewRouter(log *slog.Logger, modules ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Operator)
		for _, m := range modules {
			m.Register(api)
		}
	})

	return r
}
