// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package middleware

import (
	"net/http"
	"net/url"

	"github.com/ohanahq/ohana/internal/platform/apperr"
	"github.com/ohanahq/ohana/internal/platform/constants"
	"github.com/ohanahq/ohana/internal/platform/ctxutil"
	"github.com/ohanahq/ohana/internal/platform/respond"
)

// Surface selects how a guard rejects an unauthorized request. The two HTTP
// surfaces share the same resolution chain but fail differently: machines
// get JSON status codes, humans get redirected to the sign-in form.
type Surface int

const (
	// SurfaceAPI rejects with a JSON failure envelope (401/403).
	SurfaceAPI Surface = iota

	// SurfaceBrowser redirects anonymous users to /sign_in carrying the
	// original path as returnTo; authenticated-but-forbidden users get 403.
	SurfaceBrowser
)

// RequireAuth blocks requests that did not resolve an identity.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(surface Surface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if ctxutil.GetIdentity(request.Context()) == nil {
				rejectAnonymous(writer, request, surface)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RequireAdmin blocks requests whose identity is missing or not an admin.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It implies
// [RequireAuth], so mounting both is unnecessary.
func RequireAdmin(surface Surface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if identity == nil {
				rejectAnonymous(writer, request, surface)
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !identity.IsAdmin() {
				respond.Error(writer, request, apperr.Forbidden("Admin access required"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// rejectAnonymous applies the surface-specific failure mode.
func rejectAnonymous(writer http.ResponseWriter, request *http.Request, surface Surface) {
	if surface == SurfaceBrowser {
		destination := "/sign_in"
		if path := signInReturnPath(request); path != "" {
			destination += "?" + constants.QueryParamReturnTo + "=" + url.QueryEscape(path)
		}
		http.Redirect(writer, request, destination, http.StatusSeeOther)
		return
	}
	respond.Error(writer, request, apperr.Unauthenticated("Authentication required"))
}

// signInReturnPath derives the returnTo value for the sign-in redirect.
// Only same-site paths are ever produced here; absolute URLs submitted later
// by the form go through the full returnTo sanitizer.
func signInReturnPath(request *http.Request) string {
	if request.Method != http.MethodGet {
		return ""
	}
	path := request.URL.Path
	if request.URL.RawQuery != "" {
		path += "?" + request.URL.RawQuery
	}
	if path == "" || path[0] != '/' {
		return ""
	}
	return path
}
