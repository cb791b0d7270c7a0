// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

// Command sso is the entry point for the Ohana single sign-on server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Run database migrations (idempotent).
//  4. Connect to PostgreSQL (pgxpool).
//  5. Connect to Redis.
//  6. Wire HTTP handlers for both surfaces.
//  7. Start background session sweeper.
//  8. Start HTTP server with graceful shutdown.
//
// # Exit Codes
//
//   - 0: clean shutdown after SIGINT/SIGTERM.
//   - 1: configuration or dependency failure.
//   - 2: migration failure.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ohanahq/ohana/internal/admin"
	"github.com/ohanahq/ohana/internal/api"
	"github.com/ohanahq/ohana/internal/auth"
	"github.com/ohanahq/ohana/internal/platform/config"
	"github.com/ohanahq/ohana/internal/platform/constants"
	"github.com/ohanahq/ohana/internal/platform/middleware"
	"github.com/ohanahq/ohana/internal/platform/migration"
	pgstore "github.com/ohanahq/ohana/internal/platform/postgres"
	redisstore "github.com/ohanahq/ohana/internal/platform/redis"
	"github.com/ohanahq/ohana/internal/platform/sec"
	"github.com/ohanahq/ohana/internal/web"
)

const (
	exitConfigFailure    = 1
	exitMigrationFailure = 2
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration", exitConfigFailure)

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ListenPort),
		slog.String("cookie_domain", cfg.CookieParentDomain),
	)

	// ── 3. Migrations ─────────────────────────────────────────────────────
	// Schema must be current before any pool traffic.
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		must(log, err, "run migrations", exitMigrationFailure)
	}

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 4. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres", exitConfigFailure)
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 5. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis", exitConfigFailure)
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// Background context outlives startupCtx; cancelled on shutdown to stop
	// the rate-limiter sweeper and the session sweeper.
	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	codec := sec.NewTokenCodec(cfg.SigningSecret, cfg.TokenIssuer, constants.BearerTokenLifetime)

	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool, cfg.SessionLifetime)
	resetTokenRepository := auth.NewResetTokenRepository(rdb)

	// TODO: swap logMailer for an SMTP implementation once the mail relay
	// is provisioned.
	authService := auth.NewService(userRepository, sessionRepository, resetTokenRepository, codec, logMailer{log: log})

	cookies := auth.CookiePolicy{
		TokenName:    cfg.TokenCookieName,
		ParentDomain: cfg.CookieParentDomain,
		Secure:       cfg.IsProduction(),
	}
	returnTo := web.ReturnToPolicy{
		ParentDomain: cfg.ParentDomain(),
		AllowedHosts: cfg.ReturnToAllowedHosts,
	}
	rateLimiter := middleware.NewRateLimiter(backgroundCtx, cfg.RateLimitSignInLimit, cfg.RateLimitSignInWindow)

	authHandler := auth.NewHandler(authService, cookies, rateLimiter)
	webHandler := web.NewHandler(authService, cookies, web.NewHTMLRenderer(), returnTo, rateLimiter)
	adminHandler := admin.NewHandler(authService, admin.NewHTMLRenderer())

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Session Sweeper ────────────────────────────────────────────────
	// Expired sessions are already invisible to reads; this reclaims rows.
	go sweepSessions(backgroundCtx, log, sessionRepository, cfg.SessionLifetime)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Web:       webHandler,
		Admin:     adminHandler,
	}

	server := api.NewServer(cfg, log, authService, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	backgroundCancel()

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(exitConfigFailure)
	}

	log.Info("server stopped cleanly")
}

// sweepSessions periodically purges session rows older than the lifetime.
func sweepSessions(ctx context.Context, log *slog.Logger, sessions auth.SessionRepository, lifetime time.Duration) {
	ticker := time.NewTicker(constants.SessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.SweepExpired(ctx, time.Now().Add(-lifetime))
			if err != nil {
				log.Error("session_sweep_failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				log.Info("session_sweep_completed", slog.Int64("removed", removed))
			}
		}
	}
}

// logMailer writes reset links to the log instead of sending mail. Suitable
// for development and test environments only.
type logMailer struct {
	log *slog.Logger
}

func (m logMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.log.InfoContext(ctx, "password_reset_requested",
		slog.String("email", email),
		slog.String("reset_path", "/reset_password?token="+token),
	)
	return nil
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string, exitCode int) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(exitCode)
	}
}
