// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ohanahq/ohana/internal/platform/constants"
)

// # Configuration Schema

// Config holds all runtime configuration for the Ohana SSO server.
type Config struct {

	// Server settings
	ListenPort  string `env:"LISTEN_PORT"  envDefault:"3000"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis), used for volatile password-reset tokens
	RedisURL string `env:"REDIS_URL,required"`

	// Shared HMAC secret for bearer tokens. Every sibling service verifying
	// tokens must be configured with the same value.
	SigningSecret string `env:"SIGNING_SECRET,required"`

	// CSRFSecret signs anti-forgery tokens. Falls back to SigningSecret.
	CSRFSecret string `env:"CSRF_SECRET"`

	// TokenIssuer is written as the `iss` claim and checked on verification.
	TokenIssuer string `env:"TOKEN_ISSUER,required"`

	// Cookie scope: the parent DNS domain shared by the sibling applications,
	// e.g. ".example.com".
	CookieParentDomain string `env:"COOKIE_PARENT_DOMAIN,required"`

	// TokenCookieName overrides the primary bearer-token cookie name.
	TokenCookieName string `env:"COOKIE_NAME" envDefault:"oh_session"`

	// ReturnToAllowedHosts lists exact extra hosts accepted as post-login
	// destinations, beyond the parent domain and its direct subdomains.
	ReturnToAllowedHosts []string `env:"RETURNTO_ALLOWED_HOSTS" envSeparator:","`

	// Abuse controls
	RateLimitSignInLimit  int           `env:"RATE_LIMIT_SIGNIN_LIMIT"  envDefault:"10"`
	RateLimitSignInWindow time.Duration `env:"RATE_LIMIT_SIGNIN_WINDOW" envDefault:"3m"`

	// SessionLifetime bounds how long a persisted session stays resolvable.
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"168h"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	switch cfg.Environment {
	case "development", "test", "production":
	default:
		return nil, fmt.Errorf("config: ENVIRONMENT must be development, test, or production (got %q)", cfg.Environment)
	}

	if !strings.HasPrefix(cfg.CookieParentDomain, ".") {
		cfg.CookieParentDomain = "." + cfg.CookieParentDomain
	}
	if cfg.TokenCookieName == "" {
		cfg.TokenCookieName = constants.DefaultTokenCookieName
	}

	return cfg, nil
}

// CSRFKey returns the effective anti-forgery signing secret.
func (c *Config) CSRFKey() string {
	if c.CSRFSecret != "" {
		return c.CSRFSecret
	}
	return c.SigningSecret
}

// ParentDomain returns the cookie parent domain without the leading dot,
// i.e. the bare registrable host sibling hosts are matched against.
func (c *Config) ParentDomain() string {
	return strings.TrimPrefix(c.CookieParentDomain, ".")
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
// Production is what flips cookies to Secure.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
