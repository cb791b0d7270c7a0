// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

/*
Package api wires together the HTTP router, middleware chain, and both
delivery surfaces into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/sso are allowed to import net/http server primitives.

The router carries two surfaces with different failure modes: the JSON
token API under /api/auth for sibling applications, and the HTML surface
(sign-in forms, dashboard, admin console) for humans. Identity resolution
is shared; CSRF and method override wrap only the browser surface, CORS
wraps only the API surface.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ohanahq/ohana/internal/admin"
	"github.com/ohanahq/ohana/internal/auth"
	"github.com/ohanahq/ohana/internal/platform/config"
	"github.com/ohanahq/ohana/internal/platform/constants"
	"github.com/ohanahq/ohana/internal/platform/middleware"
	"github.com/ohanahq/ohana/internal/web"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups the handler sets of both delivery surfaces.
type Handlers struct {
	// Liveness is the /up handler — always returns 200 if the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles the JSON token API under /api/auth.
	Auth *auth.Handler

	// Web handles the human-facing pages: sign-in, sign-up, dashboard, reset.
	Web *web.Handler

	// Admin handles the user directory under /admin/users.
	Admin *admin.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers both surfaces.
func NewServer(cfg *config.Config, log *slog.Logger, resolver middleware.IdentityResolver, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(resolver, middleware.CookieNames{
		Token:       cfg.TokenCookieName,
		LegacyToken: constants.LegacyTokenCookieName,
		Session:     constants.SessionCookieName,
	}))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/up", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Token API Surface
	// CORS is scoped here: sibling browser apps call these endpoints with
	// fetch() and credentials included, so origins are echoed exactly.
	r.Group(func(api chi.Router) {
		api.Use(middleware.CORS(cfg))
		api.Mount("/api/auth", h.Auth.Routes())
	})

	// # Browser Surface
	// HTML forms need anti-forgery protection and DELETE tunnelled through
	// POST; neither applies to the token API.
	r.Group(func(browser chi.Router) {
		browser.Use(middleware.MethodOverride())
		browser.Use(middleware.CSRF([]byte(cfg.CSRFKey()), cfg.IsProduction()))

		browser.With(middleware.RequireAdmin(middleware.SurfaceBrowser)).
			Mount("/admin/users", h.Admin.Routes())
		browser.Mount("/", h.Web.Routes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ListenPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
