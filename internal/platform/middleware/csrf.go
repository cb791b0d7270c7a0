// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/ohanahq/ohana/internal/platform/constants"
	"github.com/ohanahq/ohana/internal/platform/ctxutil"
	"github.com/ohanahq/ohana/internal/platform/sec"
)

// # Cross-Site Request Forgery
//
// Synchronizer-token pattern with stateless validation. Safe methods mint a
// signed token into an HttpOnly cookie when none exists; unsafe browser
// methods must echo the cookie value back through the X-CSRF-Token header or
// the csrf_token form field. Validation checks the HMAC signature (proves we
// minted it) and compares the submitted copy against the cookie in constant
// time (proves the submitting page could read our cookie). No server-side
// token store is involved.

// CSRF returns the anti-forgery middleware for the browser surface.
//
// Bearer-authenticated requests are exempt: the Authorization header cannot
// be set cross-site by a form, so it is its own forgery proof.
func CSRF(secret []byte, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Issuance (safe methods) ──────────────────────────────
			if isSafeMethod(request.Method) {
				ensureCSRFCookie(writer, request, secret, secure)
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Exemptions ─────────────────────────────────────────────────
			if bearerToken(request) != "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Enforcement (unsafe browser methods) ───────────────────────
			cookie, err := request.Cookie(constants.CSRFCookieName)
			if err != nil || cookie.Value == "" {
				writeError(writer, http.StatusForbidden, "Forbidden", "Missing CSRF token")
				return
			}

			submitted := request.Header.Get(constants.HeaderCSRFToken)
			if submitted == "" {
				submitted = request.PostFormValue(constants.FormFieldCSRFToken)
			}

			if !validCSRFPair(secret, cookie.Value, submitted) {
				logger := ctxutil.GetLogger(request.Context())
				logger.WarnContext(request.Context(), "csrf_rejected",
					"path", request.URL.Path,
				)
				writeError(writer, http.StatusForbidden, "Forbidden", "Invalid CSRF token")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// ensureCSRFCookie mints a token when the browser has none (or a corrupted
// one) and exposes the value through a response header so rendered forms and
// sibling JS can pick it up.
func ensureCSRFCookie(writer http.ResponseWriter, request *http.Request, secret []byte, secure bool) {
	if cookie, err := request.Cookie(constants.CSRFCookieName); err == nil {
		if sec.VerifyCSRFToken(secret, cookie.Value) {
			writer.Header().Set(constants.HeaderCSRFToken, cookie.Value)
			return
		}
	}

	token, err := sec.NewCSRFToken(secret)
	if err != nil {
		// crypto/rand failure; the next unsafe request will be rejected,
		// which is the safe direction.
		return
	}

	// Host-only on purpose: the anti-forgery token does not need the
	// parent-domain scope the auth cookies get.
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(constants.CSRFCookieLifetime.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	writer.Header().Set(constants.HeaderCSRFToken, token)
}

// validCSRFPair checks signature validity and the synchronizer comparison.
func validCSRFPair(secret []byte, cookieValue, submitted string) bool {
	if submitted == "" {
		return false
	}
	if !sec.VerifyCSRFToken(secret, cookieValue) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieValue), []byte(submitted)) == 1
}

// isSafeMethod reports whether the method cannot mutate state per RFC 9110.
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
