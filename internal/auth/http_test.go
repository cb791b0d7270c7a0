// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohanahq/ohana/internal/auth"
	"github.com/ohanahq/ohana/internal/platform/middleware"
)

// apiFixture mounts the token API the way the composition root does:
// identity resolution in front, handler routes behind.
type apiFixture struct {
	*serviceFixture
	handler http.Handler
	cookies auth.CookiePolicy
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	services := newServiceFixture()
	cookies := auth.CookiePolicy{
		TokenName:    "oh_session",
		ParentDomain: ".example.com",
	}
	limiter := middleware.NewRateLimiter(context.Background(), 100, time.Minute)

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(services.service, middleware.CookieNames{
		Token:       "oh_session",
		LegacyToken: "ohana_jwt",
		Session:     "session_id",
	}))
	router.Mount("/api/auth", auth.NewHandler(services.service, cookies, limiter).Routes())

	return &apiFixture{
		serviceFixture: services,
		handler:        router,
		cookies:        cookies,
	}
}

func (f *apiFixture) postJSON(path string, payload string, configure ...func(*http.Request)) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	for _, fn := range configure {
		fn(request)
	}
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

/*
TestAPI_SignIn verifies the credential exchange endpoint: envelope shape,
parent-domain cookies, and the opaque 401.
*/
func TestAPI_SignIn(t *testing.T) {
	fixture := newAPIFixture(t)
	fixture.mustSignUp(t, "kai@example.com", "correct-password")

	t.Run("success", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/signin",
			`{"email":"kai@example.com","password":"correct-password"}`)

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)

		assert.Equal(t, true, body["success"])
		assert.NotEmpty(t, body["token"])

		user, ok := body["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "kai@example.com", user["email"])
		assert.Equal(t, "user", user["role"])
		assert.EqualValues(t, 1, user["userId"])

		// Both shared cookies land with parent-domain scope.
		cookies := recorder.Result().Cookies()
		tokenCookie := cookieByName(cookies, "oh_session")
		sessionCookie := cookieByName(cookies, "session_id")
		require.NotNil(t, tokenCookie)
		require.NotNil(t, sessionCookie)
		assert.Equal(t, "example.com", strings.TrimPrefix(tokenCookie.Domain, "."))
		assert.True(t, tokenCookie.HttpOnly)
	})

	t.Run("wrong_password", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/signin",
			`{"email":"kai@example.com","password":"wrong"}`)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "InvalidCredentials", body["error"])
		assert.Equal(t, "Invalid email or password", body["message"])
	})

	t.Run("missing_fields", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/signin", `{"email":"kai@example.com"}`)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "ValidationError", decodeBody(t, recorder)["error"])
	})

	t.Run("malformed_json", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/signin", `{not json`)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

/*
TestAPI_SignOut verifies session destruction plus cookie clearing,
including the legacy cookie a migrating client may still carry.
*/
func TestAPI_SignOut(t *testing.T) {
	fixture := newAPIFixture(t)
	result := fixture.mustSignUp(t, "kai@example.com", "correct-password")

	request := httptest.NewRequest(http.MethodDelete, "/api/auth/signout", nil)
	request.AddCookie(&http.Cookie{Name: "session_id", Value: result.Session.ID})
	recorder := httptest.NewRecorder()
	fixture.handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decodeBody(t, recorder)["success"])

	// The server-side session is gone.
	assert.Nil(t, fixture.service.ResolveFromSession(context.Background(), result.Session.ID))

	// All three cookies are expired, legacy one included.
	cookies := recorder.Result().Cookies()
	for _, name := range []string{"oh_session", "ohana_jwt", "session_id"} {
		cookie := cookieByName(cookies, name)
		require.NotNil(t, cookie, "cookie %s should be cleared", name)
		assert.Less(t, cookie.MaxAge, 0)
	}
}

/*
TestAPI_Verify verifies the sibling-service hot path: body token, header
token, and the failure envelope.
*/
func TestAPI_Verify(t *testing.T) {
	fixture := newAPIFixture(t)
	result := fixture.mustSignUp(t, "kai@example.com", "correct-password")

	t.Run("token_in_body", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/verify", `{"token":"`+result.Token+`"}`)

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, true, body["valid"])

		user, ok := body["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "kai@example.com", user["email"])
	})

	t.Run("token_in_header", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/verify", `{}`, func(request *http.Request) {
			request.Header.Set("Authorization", "Bearer "+result.Token)
		})

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, true, decodeBody(t, recorder)["valid"])
	})

	t.Run("invalid_token", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/verify", `{"token":"garbage"}`)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Unauthenticated", body["error"])
	})

	t.Run("missing_token", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/verify", `{}`)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

/*
TestAPI_Refresh verifies token renewal over HTTP.
*/
func TestAPI_Refresh(t *testing.T) {
	fixture := newAPIFixture(t)
	result := fixture.mustSignUp(t, "kai@example.com", "correct-password")

	recorder := fixture.postJSON("/api/auth/refresh", `{"token":"`+result.Token+`"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, true, body["success"])

	fresh, ok := body["token"].(string)
	require.True(t, ok)
	claims, err := fixture.codec.Verify(fresh)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
}

/*
TestAPI_CurrentUser verifies the guarded /user endpoint across the three
credential channels and the anonymous 401.
*/
func TestAPI_CurrentUser(t *testing.T) {
	fixture := newAPIFixture(t)
	result := fixture.mustSignUp(t, "kai@example.com", "correct-password")

	send := func(configure func(*http.Request)) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
		if configure != nil {
			configure(request)
		}
		recorder := httptest.NewRecorder()
		fixture.handler.ServeHTTP(recorder, request)
		return recorder
	}

	assertUser := func(t *testing.T, recorder *httptest.ResponseRecorder) {
		t.Helper()
		require.Equal(t, http.StatusOK, recorder.Code)
		user, ok := decodeBody(t, recorder)["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "kai@example.com", user["email"])
	}

	t.Run("bearer_header", func(t *testing.T) {
		assertUser(t, send(func(request *http.Request) {
			request.Header.Set("Authorization", "Bearer "+result.Token)
		}))
	})

	t.Run("token_cookie", func(t *testing.T) {
		assertUser(t, send(func(request *http.Request) {
			request.AddCookie(&http.Cookie{Name: "oh_session", Value: result.Token})
		}))
	})

	t.Run("session_cookie", func(t *testing.T) {
		assertUser(t, send(func(request *http.Request) {
			request.AddCookie(&http.Cookie{Name: "session_id", Value: result.Session.ID})
		}))
	})

	t.Run("anonymous", func(t *testing.T) {
		recorder := send(nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, "Unauthenticated", decodeBody(t, recorder)["error"])
	})
}

/*
TestAPI_ChangePassword verifies the guarded /password endpoint: after a
successful change, neither of the caller's prior session cookies resolves
anymore.
*/
func TestAPI_ChangePassword(t *testing.T) {
	fixture := newAPIFixture(t)
	first := fixture.mustSignUp(t, "kai@example.com", "original-password")

	// A second device signs in before the change.
	second, err := fixture.service.SignIn(context.Background(), auth.Credentials{
		Email:    "kai@example.com",
		Password: "original-password",
	})
	require.NoError(t, err)

	currentUserWith := func(sessionID string) int {
		request := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
		request.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
		recorder := httptest.NewRecorder()
		fixture.handler.ServeHTTP(recorder, request)
		return recorder.Code
	}

	t.Run("anonymous", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/password",
			`{"currentPassword":"original-password","newPassword":"replacement-password"}`)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("wrong_current_password", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/password",
			`{"currentPassword":"wrong","newPassword":"replacement-password"}`,
			func(request *http.Request) {
				request.AddCookie(&http.Cookie{Name: "session_id", Value: first.Session.ID})
			})

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, "InvalidCredentials", decodeBody(t, recorder)["error"])

		// The failed attempt revoked nothing.
		assert.Equal(t, http.StatusOK, currentUserWith(first.Session.ID))
	})

	t.Run("success_kills_both_prior_sessions", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/password",
			`{"currentPassword":"original-password","newPassword":"replacement-password"}`,
			func(request *http.Request) {
				request.AddCookie(&http.Cookie{Name: "session_id", Value: first.Session.ID})
			})

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, true, decodeBody(t, recorder)["success"])

		assert.Equal(t, http.StatusUnauthorized, currentUserWith(first.Session.ID))
		assert.Equal(t, http.StatusUnauthorized, currentUserWith(second.Session.ID))

		// The replacement password signs in.
		signedIn := fixture.postJSON("/api/auth/signin",
			`{"email":"kai@example.com","password":"replacement-password"}`)
		assert.Equal(t, http.StatusOK, signedIn.Code)
	})
}

/*
TestAPI_ForgotAndReset verifies the reset flow over HTTP, including the
non-committal response for unknown addresses.
*/
func TestAPI_ForgotAndReset(t *testing.T) {
	fixture := newAPIFixture(t)
	fixture.mustSignUp(t, "kai@example.com", "original-password")

	t.Run("forgot_known_and_unknown_look_identical", func(t *testing.T) {
		known := fixture.postJSON("/api/auth/forgot", `{"email":"kai@example.com"}`)
		unknown := fixture.postJSON("/api/auth/forgot", `{"email":"nobody@example.com"}`)

		assert.Equal(t, http.StatusOK, known.Code)
		assert.Equal(t, http.StatusOK, unknown.Code)
		assert.Equal(t, known.Body.String(), unknown.Body.String())
	})

	t.Run("reset_with_minted_token", func(t *testing.T) {
		require.NoError(t, fixture.service.RequestPasswordReset(
			context.Background(), testLogger(), "kai@example.com"))
		token := fixture.mailer.token
		require.NotEmpty(t, token)

		recorder := fixture.postJSON("/api/auth/reset",
			`{"token":"`+token+`","password":"replacement-password"}`)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, true, decodeBody(t, recorder)["success"])
	})

	t.Run("reset_with_bad_token", func(t *testing.T) {
		recorder := fixture.postJSON("/api/auth/reset",
			`{"token":"bogus","password":"replacement-password"}`)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

/*
TestAPI_SignInRateLimit verifies that the signin bucket returns 429 once
exhausted, and that a blocked request is turned away before the user store
or the password hasher ever run.
*/
func TestAPI_SignInRateLimit(t *testing.T) {
	services := newServiceFixture()
	cookies := auth.CookiePolicy{TokenName: "oh_session", ParentDomain: ".example.com"}
	limiter := middleware.NewRateLimiter(context.Background(), 2, time.Hour)

	router := chi.NewRouter()
	router.Mount("/api/auth", auth.NewHandler(services.service, cookies, limiter).Routes())

	send := func() *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodPost, "/api/auth/signin",
			strings.NewReader(`{"email":"kai@example.com","password":"wrong"}`))
		request.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		return recorder
	}

	assert.Equal(t, http.StatusUnauthorized, send().Code)
	assert.Equal(t, http.StatusUnauthorized, send().Code)
	require.Equal(t, 2, services.users.findByEmailCalls)

	blocked := send()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	// The rejection happened in the middleware: no credential lookup ran.
	assert.Equal(t, 2, services.users.findByEmailCalls)
}
