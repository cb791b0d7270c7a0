// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ohanahq/ohana/internal/platform/ctxutil"
	"github.com/ohanahq/ohana/internal/platform/sec"
)

// IdentityResolver turns a raw credential into a resolved caller.
//
// # Why an interface?
//
// Defining IdentityResolver here decouples the middleware from the auth
// service implementation, allowing us to easily inject fakes during unit
// testing. Both methods return nil on any failure; the middleware never
// learns why a credential was rejected.
type IdentityResolver interface {
	// ResolveFromToken verifies a bearer token and confirms the user exists.
	ResolveFromToken(ctx context.Context, token string) *sec.Identity

	// ResolveFromSession looks up a live server-side session.
	ResolveFromSession(ctx context.Context, sessionID string) *sec.Identity
}

// CookieNames configures which cookies the resolution chain reads.
type CookieNames struct {
	// Token is the primary bearer-token cookie (configurable per deployment).
	Token string
	// LegacyToken is accepted on read for migrating clients, never written.
	LegacyToken string
	// Session carries the opaque server-side session identifier.
	Session string
}

// Authenticate resolves the caller's identity and attaches it to the context.
//
// # Flow
//
// Credentials are tried in a fixed precedence order, stopping at the first
// that resolves:
//
//  1. 'Authorization: Bearer <token>' header
//  2. Primary bearer-token cookie
//  3. Legacy bearer-token cookie
//  4. Session-ID cookie (database-backed session)
//
// A request with no resolvable credential proceeds as anonymous; guard
// policies downstream decide whether that is acceptable. An invalid
// credential is treated exactly like an absent one so that expired tokens
// degrade to the session cookie when present.
func Authenticate(resolver IdentityResolver, cookies CookieNames) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			// ── 1. Authorization Header ───────────────────────────────────────
			if token := bearerToken(request); token != "" {
				if identity := resolver.ResolveFromToken(ctx, token); identity != nil {
					serveAs(writer, request, next, identity)
					return
				}
			}

			// ── 2. Primary Token Cookie ───────────────────────────────────────
			if token := cookieValue(request, cookies.Token); token != "" {
				if identity := resolver.ResolveFromToken(ctx, token); identity != nil {
					serveAs(writer, request, next, identity)
					return
				}
			}

			// ── 3. Legacy Token Cookie ────────────────────────────────────────
			if token := cookieValue(request, cookies.LegacyToken); token != "" {
				if identity := resolver.ResolveFromToken(ctx, token); identity != nil {
					serveAs(writer, request, next, identity)
					return
				}
			}

			// ── 4. Session Cookie ─────────────────────────────────────────────
			if sessionID := cookieValue(request, cookies.Session); sessionID != "" {
				if identity := resolver.ResolveFromSession(ctx, sessionID); identity != nil {
					serveAs(writer, request, next, identity)
					return
				}
			}

			// ── 5. Anonymous Access ───────────────────────────────────────────
			next.ServeHTTP(writer, request)
		})
	}
}

// serveAs continues the chain with the resolved identity in the context.
func serveAs(writer http.ResponseWriter, request *http.Request, next http.Handler, identity *sec.Identity) {
	ctx := ctxutil.WithIdentity(request.Context(), identity)
	next.ServeHTTP(writer, request.WithContext(ctx))
}

// bearerToken extracts the credential from an Authorization header.
// Returns an empty string for absent headers or non-Bearer schemes.
func bearerToken(request *http.Request) string {
	header := request.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// cookieValue reads a named cookie, tolerating its absence.
func cookieValue(request *http.Request, name string) string {
	if name == "" {
		return ""
	}
	cookie, err := request.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
