// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, cookie names, and cross-cutting keys
that are shared between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: bucket labels and idle-entry TTL multipliers.
  - Security: token lifetimes and cookie configuration.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "ohana-sso"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Authentication

const (
	// BearerTokenLifetime is the validity window of issued bearer tokens.
	BearerTokenLifetime = 7 * 24 * time.Hour

	// SessionIDBytes is the entropy, in bytes, of opaque session identifiers.
	SessionIDBytes = 32

	// ResetTokenLifetime is the Redis TTL of password-reset tokens.
	ResetTokenLifetime = 1 * time.Hour
)

// # Cookies

const (
	// DefaultTokenCookieName is the default name of the primary bearer-token cookie.
	// Deployments can override it through COOKIE_NAME.
	DefaultTokenCookieName = "oh_session"

	// LegacyTokenCookieName is accepted on read for migrating clients, never written.
	LegacyTokenCookieName = "ohana_jwt"

	// SessionCookieName carries the opaque server-side session identifier.
	SessionCookieName = "session_id"

	// CSRFCookieName carries the signed anti-forgery token.
	CSRFCookieName = "csrf_token"

	// CSRFCookieLifetime bounds how long one anti-forgery token stays valid.
	CSRFCookieLifetime = 24 * time.Hour
)

// # Rate Limiting

const (
	// RateLimitEndpointSignIn labels the bucket family guarding credential submission.
	RateLimitEndpointSignIn = "signin"

	// RateLimitEndpointSignUp labels the bucket family guarding account creation.
	RateLimitEndpointSignUp = "signup"

	// RateLimitEndpointForgot labels the bucket family guarding reset requests.
	RateLimitEndpointForgot = "forgot"

	// RateLimitIdleFactor times the window gives how long an idle bucket is kept.
	RateLimitIdleFactor = 2
)

// # Background Maintenance

const (
	// SessionSweepInterval is how often expired session rows are purged.
	SessionSweepInterval = 1 * time.Hour
)

// # JSON Field Identifiers

const (
	FieldSuccess = "success"
	FieldError   = "error"
	FieldMessage = "message"
	FieldDetails = "details"
	FieldToken   = "token"
	FieldUser    = "user"
	FieldValid   = "valid"
	FieldItems   = "items"
	FieldTotal   = "total"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # HTTP Parameters

const (
	// HeaderCSRFToken is the request header checked before the form field.
	HeaderCSRFToken = "X-CSRF-Token"

	// FormFieldCSRFToken is the hidden form field fallback for HTML forms.
	FormFieldCSRFToken = "csrf_token"

	// FormFieldMethodOverride lets HTML forms tunnel DELETE through POST.
	FormFieldMethodOverride = "_method"

	// QueryParamReturnTo is the post-login destination query parameter.
	QueryParamReturnTo = "returnTo"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixResetToken = "auth:reset_token:"
)
