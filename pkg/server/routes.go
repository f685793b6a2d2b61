package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mercator-hq/tabula/pkg/telemetry/health"
)

// setupRoutes configures HTTP routes and the middleware chain.
//
// Middleware, outermost first: request ID, real IP, request context,
// instrumentation, logging, recovery, timeout.
func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContext)
	r.Use(s.instrument)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	r.Get("/health", s.health.LivenessHandler())
	r.Get("/ready", s.health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(s.version.Version, s.version.Commit, s.version.BuildTime))
	if s.metrics != nil && s.metricsPath != "" {
		r.Method(http.MethodGet, s.metricsPath, s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluateInline)

		r.Route("/tables", func(r chi.Router) {
			r.Get("/", s.handleListTables)
			r.Get("/{name}", s.handleGetTable)
			r.Post("/{name}/evaluate", s.handleEvaluateTable)
		})
	})

	return r
}
