// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ohanahq/ohana/internal/platform/ctxutil"
	"github.com/ohanahq/ohana/internal/platform/middleware"
	"github.com/ohanahq/ohana/internal/platform/sec"
)

// fakeResolver resolves from fixed token and session tables.
type fakeResolver struct {
	tokens   map[string]*sec.Identity
	sessions map[string]*sec.Identity
}

func (f *fakeResolver) ResolveFromToken(_ context.Context, token string) *sec.Identity {
	return f.tokens[token]
}

func (f *fakeResolver) ResolveFromSession(_ context.Context, sessionID string) *sec.Identity {
	return f.sessions[sessionID]
}

var testCookieNames = middleware.CookieNames{
	Token:       "oh_session",
	LegacyToken: "ohana_jwt",
	Session:     "session_id",
}

// identityProbe records the identity the middleware chain resolved.
func identityProbe(captured **sec.Identity) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		*captured = ctxutil.GetIdentity(request.Context())
		writer.WriteHeader(http.StatusOK)
	})
}

/*
TestAuthenticate_Precedence verifies the credential resolution order:
Authorization header, primary cookie, legacy cookie, then session cookie,
with invalid credentials falling through to the next source.
*/
func TestAuthenticate_Precedence(t *testing.T) {
	resolver := &fakeResolver{
		tokens: map[string]*sec.Identity{
			"header-token":  {UserID: 1, Email: "header@example.com", Role: sec.RoleUser},
			"primary-token": {UserID: 2, Email: "primary@example.com", Role: sec.RoleUser},
			"legacy-token":  {UserID: 3, Email: "legacy@example.com", Role: sec.RoleUser},
		},
		sessions: map[string]*sec.Identity{
			"live-session": {UserID: 4, Email: "session@example.com", Role: sec.RoleUser},
		},
	}

	tests := []struct {
		name       string
		header     string
		cookies    map[string]string
		wantUserID int64
		anonymous  bool
	}{
		{
			name:       "header_wins_over_cookies",
			header:     "Bearer header-token",
			cookies:    map[string]string{"oh_session": "primary-token", "session_id": "live-session"},
			wantUserID: 1,
		},
		{
			name:       "primary_cookie",
			cookies:    map[string]string{"oh_session": "primary-token"},
			wantUserID: 2,
		},
		{
			name:       "legacy_cookie_still_read",
			cookies:    map[string]string{"ohana_jwt": "legacy-token"},
			wantUserID: 3,
		},
		{
			name:       "session_cookie_last",
			cookies:    map[string]string{"session_id": "live-session"},
			wantUserID: 4,
		},
		{
			name:       "expired_token_degrades_to_session",
			cookies:    map[string]string{"oh_session": "expired-token", "session_id": "live-session"},
			wantUserID: 4,
		},
		{
			name:       "invalid_header_degrades_to_cookie",
			header:     "Bearer garbage",
			cookies:    map[string]string{"oh_session": "primary-token"},
			wantUserID: 2,
		},
		{
			name:      "no_credentials_is_anonymous",
			anonymous: true,
		},
		{
			name:      "all_invalid_is_anonymous",
			header:    "Bearer garbage",
			cookies:   map[string]string{"oh_session": "nope", "ohana_jwt": "nope", "session_id": "nope"},
			anonymous: true,
		},
		{
			name:      "basic_scheme_ignored",
			header:    "Basic aGVhZGVyLXRva2Vu",
			anonymous: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *sec.Identity
			handler := middleware.Authenticate(resolver, testCookieNames)(identityProbe(&captured))

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			for name, value := range tt.cookies {
				request.AddCookie(&http.Cookie{Name: name, Value: value})
			}

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			// Anonymous requests still reach the handler.
			assert.Equal(t, http.StatusOK, recorder.Code)

			if tt.anonymous {
				assert.Nil(t, captured)
				return
			}
			if assert.NotNil(t, captured) {
				assert.Equal(t, tt.wantUserID, captured.UserID)
			}
		})
	}
}

/*
TestRequireAuth verifies the surface-specific rejection of anonymous
requests: JSON 401 for the API, redirect to the sign-in form for browsers.
*/
func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	t.Run("api_anonymous_gets_401_envelope", func(t *testing.T) {
		handler := middleware.RequireAuth(middleware.SurfaceAPI)(next)
		request := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.JSONEq(t,
			`{"success":false,"error":"Unauthenticated","message":"Authentication required"}`,
			recorder.Body.String(),
		)
	})

	t.Run("browser_anonymous_redirects_with_returnTo", func(t *testing.T) {
		handler := middleware.RequireAuth(middleware.SurfaceBrowser)(next)
		request := httptest.NewRequest(http.MethodGet, "/admin/users?page=2", nil)
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusSeeOther, recorder.Code)
		assert.Equal(t, "/sign_in?returnTo=%2Fadmin%2Fusers%3Fpage%3D2", recorder.Header().Get("Location"))
	})

	t.Run("authenticated_passes_through", func(t *testing.T) {
		handler := middleware.RequireAuth(middleware.SurfaceAPI)(next)
		request := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
		identity := &sec.Identity{UserID: 7, Email: "kai@example.com", Role: sec.RoleUser}
		request = request.WithContext(ctxutil.WithIdentity(request.Context(), identity))
		recorder := httptest.NewRecorder()

		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

/*
TestRequireAdmin verifies the role gate: anonymous callers are rejected as
unauthenticated, signed-in non-admins get 403, admins pass.
*/
func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	handler := middleware.RequireAdmin(middleware.SurfaceAPI)(next)

	send := func(identity *sec.Identity) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		if identity != nil {
			request = request.WithContext(ctxutil.WithIdentity(request.Context(), identity))
		}
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder
	}

	assert.Equal(t, http.StatusUnauthorized, send(nil).Code)

	forbidden := send(&sec.Identity{UserID: 7, Email: "kai@example.com", Role: sec.RoleUser})
	assert.Equal(t, http.StatusForbidden, forbidden.Code)
	assert.Contains(t, forbidden.Body.String(), "Admin access required")

	assert.Equal(t, http.StatusOK, send(&sec.Identity{UserID: 1, Email: "root@example.com", Role: sec.RoleAdmin}).Code)
}
