package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Read-only routes (no auth required)
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/log", s.handleGetLog)
		r.Get(wsPath(s.wsCfg.Path), s.handleWebSocket)

		// Control routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/connect", s.handleConnect)
			r.Route("/doors/{door}", func(r chi.Router) {
				r.Post("/press", s.handlePress)
				r.Post("/release", s.handleRelease)
			})
			r.Put("/credentials", s.handleSetCredentials)
			r.Delete("/log", s.handleClearLog)
			r.Put("/log/visibility", s.handleLogVisibility)
			r.Post("/lifecycle/background", s.handleBackground)
			r.Post("/lifecycle/foreground", s.handleForeground)
			r.Get("/audit", s.handleListAudit)
		})
	})

	return r
}

// wsPath returns the configured WebSocket path under /api/v1.
func wsPath(p string) string {
	if p == "" {
		return "/ws"
	}
	if p[0] != '/' {
		return "/" + p
	}
	return p
}
