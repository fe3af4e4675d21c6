package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"

	"github.com/libridge/shelfsync/internal/middleware"
)

// NewRouter constructs the handler serving the agent's control API.
//
// Routes:
//
//	GET  /api/status   → queue depth, worker state, subscriber count
//	GET  /api/pending  → queued mutations
//	POST /api/sync     → request an immediate drain cycle
//	GET  /metrics      → Prometheus metrics
func NewRouter(control *ControlHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", control.Status)
		r.Get("/pending", control.Pending)
		r.Post("/sync", control.TriggerSync)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
