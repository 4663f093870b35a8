// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the composition root for the HTTP transport (chi router).
  - Reader traffic runs under the global request deadline, admin mutations
    under a longer one, and the presence socket under none.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/mangashelf/internal/admin"
	"github.com/taibuivan/mangashelf/internal/audit"
	"github.com/taibuivan/mangashelf/internal/auth"
	"github.com/taibuivan/mangashelf/internal/imagehost"
	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/config"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/platform/middleware"
	"github.com/taibuivan/mangashelf/internal/presence"
	"github.com/taibuivan/mangashelf/internal/reader"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler, 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler, 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Library serves the manifest proxy and the catalogue.
	Library *library.Handler

	// Reader resolves chapter pages.
	Reader *reader.Handler

	// Presence serves the presence socket and polling endpoint.
	Presence *presence.Handler

	// Attachments uploads comment images.
	Attachments *imagehost.Handler

	// Auth handles console login.
	Auth *auth.Handler

	// Admin exposes the content mutations.
	Admin *admin.Handler

	// Audit lists recent admin mutations.
	Audit *audit.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Realtime
	h.Presence.RegisterSocket(r)

	// # Manifest Proxy
	r.Group(func(public chi.Router) {
		public.Use(chimw.Timeout(constants.GlobalRequestTimeout))
		h.Library.RegisterProxy(public)
	})

	// # Application API
	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			public.Use(chimw.Timeout(constants.GlobalRequestTimeout))

			h.Library.RegisterRoutes(public)
			h.Reader.RegisterRoutes(public)
			h.Presence.RegisterRoutes(public)
			h.Attachments.RegisterRoutes(public)
			h.Auth.RegisterRoutes(public)
		})

		api.Group(func(console chi.Router) {
			console.Use(chimw.Timeout(constants.AdminRequestTimeout))
			h.Admin.RegisterRoutes(console)
			h.Audit.RegisterRoutes(console)
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the composed router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
