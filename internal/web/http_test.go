// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohanahq/ohana/internal/auth"
	"github.com/ohanahq/ohana/internal/platform/apperr"
	"github.com/ohanahq/ohana/internal/platform/middleware"
	"github.com/ohanahq/ohana/internal/platform/sec"
	"github.com/ohanahq/ohana/internal/web"
	"github.com/ohanahq/ohana/pkg/pagination"
)

// Minimal in-memory repositories, just enough service behavior for the
// form flows under test.

type memoryUsers struct {
	nextID int64
	users  map[int64]*auth.User
}

func (r *memoryUsers) Create(_ context.Context, user *auth.User) error {
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return auth.ErrDuplicateEmail
		}
	}
	r.nextID++
	user.ID = r.nextID
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUsers) FindByID(_ context.Context, id int64) (*auth.User, error) {
	user, found := r.users[id]
	if !found {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (r *memoryUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *memoryUsers) UpdateRole(_ context.Context, id int64, role sec.UserRole) error {
	r.users[id].Role = role
	return nil
}

func (r *memoryUsers) UpdatePassword(_ context.Context, id int64, newHash string) error {
	r.users[id].PasswordHash = newHash
	return nil
}

func (r *memoryUsers) Delete(_ context.Context, id int64) error {
	delete(r.users, id)
	return nil
}

func (r *memoryUsers) List(_ context.Context, _ auth.ListFilter, _ pagination.Params) ([]*auth.User, int, error) {
	return nil, 0, nil
}

type memorySessions struct {
	sessions map[string]*auth.Session
}

func (r *memorySessions) Create(_ context.Context, session *auth.Session) error {
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *memorySessions) Find(_ context.Context, id string) (*auth.Session, error) {
	session, found := r.sessions[id]
	if !found {
		return nil, apperr.NotFound("Session")
	}
	clone := *session
	return &clone, nil
}

func (r *memorySessions) Delete(_ context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func (r *memorySessions) DeleteForUser(_ context.Context, userID int64) (int64, error) {
	var removed int64
	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (r *memorySessions) ListForUser(_ context.Context, _ int64) ([]*auth.Session, error) {
	return nil, nil
}

func (r *memorySessions) SweepExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type memoryResets struct{ tokens map[string]int64 }

func (r *memoryResets) Set(_ context.Context, token string, userID int64, _ time.Duration) error {
	r.tokens[token] = userID
	return nil
}

func (r *memoryResets) Get(_ context.Context, token string) (int64, error) {
	userID, found := r.tokens[token]
	if !found {
		return 0, apperr.NotFound("Reset token")
	}
	return userID, nil
}

func (r *memoryResets) Delete(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

type noopMailer struct{}

func (noopMailer) SendPasswordReset(context.Context, string, string) error { return nil }

func newWebFixture(t *testing.T) (http.Handler, *auth.Service) {
	t.Helper()

	codec := sec.NewTokenCodec("web-test-secret", "sso.example.com", time.Hour)
	service := auth.NewService(
		&memoryUsers{users: make(map[int64]*auth.User)},
		&memorySessions{sessions: make(map[string]*auth.Session)},
		&memoryResets{tokens: make(map[string]int64)},
		codec,
		noopMailer{},
	)

	handler := web.NewHandler(
		service,
		auth.CookiePolicy{TokenName: "oh_session", ParentDomain: ".example.com"},
		web.NewHTMLRenderer(),
		web.ReturnToPolicy{ParentDomain: "example.com"},
		middleware.NewRateLimiter(context.Background(), 100, time.Minute),
	)
	return handler.Routes(), service
}

func postForm(handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func namedCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

/*
TestWeb_SignInForm verifies the form flow: success answers 302 with the
shared cookies and the sanitized returnTo destination, failure re-renders
the form with the opaque message.
*/
func TestWeb_SignInForm(t *testing.T) {
	routes, service := newWebFixture(t)

	_, err := service.SignUp(context.Background(), auth.Credentials{
		Email:    "kai@example.com",
		Password: "correct-password",
	})
	require.NoError(t, err)

	t.Run("success_redirects_found", func(t *testing.T) {
		recorder := postForm(routes, "/sign_in", url.Values{
			"email":    {"kai@example.com"},
			"password": {"correct-password"},
			"returnTo": {"/dashboard"},
		})

		assert.Equal(t, http.StatusFound, recorder.Code)
		assert.Equal(t, "/dashboard", recorder.Header().Get("Location"))

		cookies := recorder.Result().Cookies()
		assert.NotNil(t, namedCookie(cookies, "oh_session"))
		assert.NotNil(t, namedCookie(cookies, "session_id"))
	})

	t.Run("foreign_returnTo_lands_on_root", func(t *testing.T) {
		recorder := postForm(routes, "/sign_in", url.Values{
			"email":    {"kai@example.com"},
			"password": {"correct-password"},
			"returnTo": {"https://evil.com/phish"},
		})

		assert.Equal(t, http.StatusFound, recorder.Code)
		assert.Equal(t, "/", recorder.Header().Get("Location"))
	})

	t.Run("failure_rerenders_form", func(t *testing.T) {
		recorder := postForm(routes, "/sign_in", url.Values{
			"email":    {"kai@example.com"},
			"password": {"wrong"},
		})

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Invalid email or password")
		assert.Empty(t, recorder.Result().Cookies())
	})
}

/*
TestWeb_SignUpForm verifies that a successful sign-up answers 302 to the
root with the shared cookies, and that a duplicate address re-renders.
*/
func TestWeb_SignUpForm(t *testing.T) {
	routes, service := newWebFixture(t)

	t.Run("success_redirects_found", func(t *testing.T) {
		recorder := postForm(routes, "/sign_up", url.Values{
			"email":    {"kai@example.com"},
			"password": {"long-enough-password"},
		})

		assert.Equal(t, http.StatusFound, recorder.Code)
		assert.Equal(t, "/", recorder.Header().Get("Location"))
		assert.NotNil(t, namedCookie(recorder.Result().Cookies(), "oh_session"))

		// The account is live.
		_, err := service.SignIn(context.Background(), auth.Credentials{
			Email:    "kai@example.com",
			Password: "long-enough-password",
		})
		assert.NoError(t, err)
	})

	t.Run("duplicate_email_rerenders", func(t *testing.T) {
		recorder := postForm(routes, "/sign_up", url.Values{
			"email":    {"kai@example.com"},
			"password": {"long-enough-password"},
		})

		assert.Equal(t, http.StatusConflict, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "already registered")
	})
}
