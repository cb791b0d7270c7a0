// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ohanahq/ohana/internal/auth"
	"github.com/ohanahq/ohana/internal/platform/apperr"
	"github.com/ohanahq/ohana/internal/platform/constants"
	"github.com/ohanahq/ohana/internal/platform/ctxutil"
	"github.com/ohanahq/ohana/internal/platform/middleware"
)

// Handler implements the human-facing browser surface.
//
// # Failure Modes
//
// Unlike the API, failures here re-render forms with a message or redirect;
// JSON envelopes never leak onto this surface except through the guards.
type Handler struct {
	authService *auth.Service
	cookies     auth.CookiePolicy
	view        Renderer
	returnTo    ReturnToPolicy
	rateLimiter *middleware.RateLimiter
}

// NewHandler constructs the browser-surface handler.
func NewHandler(
	service *auth.Service,
	cookies auth.CookiePolicy,
	view Renderer,
	returnTo ReturnToPolicy,
	rateLimiter *middleware.RateLimiter,
) *Handler {
	return &Handler{
		authService: service,
		cookies:     cookies,
		view:        view,
		returnTo:    returnTo,
		rateLimiter: rateLimiter,
	}
}

// Routes returns the browser routes. CSRF and method-override middleware
// are mounted by the server composition root, not here.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.home)
	router.Get("/sign_in", handler.showSignIn)
	router.With(handler.rateLimiter.Limit(constants.RateLimitEndpointSignIn)).
		Post("/sign_in", handler.submitSignIn)
	router.Get("/sign_up", handler.showSignUp)
	router.With(handler.rateLimiter.Limit(constants.RateLimitEndpointSignUp)).
		Post("/sign_up", handler.submitSignUp)
	router.Delete("/sign_out", handler.signOut)
	router.Get("/forgot_password", handler.showForgotPassword)
	router.With(handler.rateLimiter.Limit(constants.RateLimitEndpointForgot)).
		Post("/forgot_password", handler.submitForgotPassword)
	router.Get("/reset_password", handler.showResetPassword)
	router.Post("/reset_password", handler.submitResetPassword)

	return router
}

// home renders the dashboard for signed-in users, the landing page otherwise.
func (handler *Handler) home(writer http.ResponseWriter, request *http.Request) {
	identity := ctxutil.GetIdentity(request.Context())
	if identity == nil {
		handler.view.Landing(writer)
		return
	}

	handler.view.Dashboard(writer, DashboardData{
		User: auth.PublicUser{
			UserID: identity.UserID,
			Email:  identity.Email,
			Role:   identity.Role,
		},
		CSRFToken: csrfToken(writer, request),
	})
}

// showSignIn handles GET /sign_in. Already signed-in visitors skip the form.
func (handler *Handler) showSignIn(writer http.ResponseWriter, request *http.Request) {
	if ctxutil.GetIdentity(request.Context()) != nil {
		destination := handler.returnTo.Sanitize(request.URL.Query().Get(constants.QueryParamReturnTo))
		http.Redirect(writer, request, destination, http.StatusSeeOther)
		return
	}

	handler.view.SignIn(writer, http.StatusOK, SignInData{
		ReturnTo:  request.URL.Query().Get(constants.QueryParamReturnTo),
		CSRFToken: csrfToken(writer, request),
	})
}

// submitSignIn handles POST /sign_in.
//
// The failure message is a single generic sentence regardless of cause,
// mirroring the API's enumeration resistance.
func (handler *Handler) submitSignIn(writer http.ResponseWriter, request *http.Request) {
	email := request.PostFormValue("email")
	password := request.PostFormValue("password")
	returnTo := request.PostFormValue(constants.QueryParamReturnTo)

	result, err := handler.authService.SignIn(request.Context(), auth.Credentials{
		Email:     email,
		Password:  password,
		IPAddress: middleware.RealIP(request),
		UserAgent: request.UserAgent(),
	})
	if err != nil {
		handler.view.SignIn(writer, http.StatusUnauthorized, SignInData{
			ReturnTo:     returnTo,
			CSRFToken:    csrfToken(writer, request),
			Email:        email,
			ErrorMessage: "Invalid email or password",
		})
		return
	}

	handler.cookies.SetAuth(writer, result.Token, result.Session.ID)
	http.Redirect(writer, request, handler.returnTo.Sanitize(returnTo), http.StatusFound)
}

// showSignUp handles GET /sign_up.
func (handler *Handler) showSignUp(writer http.ResponseWriter, request *http.Request) {
	if ctxutil.GetIdentity(request.Context()) != nil {
		http.Redirect(writer, request, DefaultDestination, http.StatusSeeOther)
		return
	}
	handler.view.SignUp(writer, http.StatusOK, SignUpData{CSRFToken: csrfToken(writer, request)})
}

// submitSignUp handles POST /sign_up. A successful sign-up is also a sign-in.
func (handler *Handler) submitSignUp(writer http.ResponseWriter, request *http.Request) {
	email := request.PostFormValue("email")
	password := request.PostFormValue("password")

	result, err := handler.authService.SignUp(request.Context(), auth.Credentials{
		Email:     email,
		Password:  password,
		IPAddress: middleware.RealIP(request),
		UserAgent: request.UserAgent(),
	})
	if err != nil {
		handler.view.SignUp(writer, statusOf(err, http.StatusBadRequest), SignUpData{
			CSRFToken:    csrfToken(writer, request),
			Email:        email,
			ErrorMessage: messageOf(err),
		})
		return
	}

	handler.cookies.SetAuth(writer, result.Token, result.Session.ID)
	http.Redirect(writer, request, DefaultDestination, http.StatusFound)
}

// signOut handles DELETE /sign_out (and POST with _method=DELETE via the
// override middleware). Always lands on the root page with cleared cookies.
func (handler *Handler) signOut(writer http.ResponseWriter, request *http.Request) {
	if err := handler.authService.SignOut(request.Context(), handler.cookies.SessionID(request)); err != nil {
		logger := ctxutil.GetLogger(request.Context())
		logger.ErrorContext(request.Context(), "sign_out_failed", "error", err)
	}

	handler.cookies.ClearAuth(writer)
	http.Redirect(writer, request, DefaultDestination, http.StatusSeeOther)
}

// showForgotPassword handles GET /forgot_password.
func (handler *Handler) showForgotPassword(writer http.ResponseWriter, request *http.Request) {
	handler.view.ForgotPassword(writer, http.StatusOK, ResetData{CSRFToken: csrfToken(writer, request)})
}

// submitForgotPassword handles POST /forgot_password. The confirmation text
// is identical for known and unknown addresses.
func (handler *Handler) submitForgotPassword(writer http.ResponseWriter, request *http.Request) {
	email := request.PostFormValue("email")
	logger := ctxutil.GetLogger(request.Context())

	if err := handler.authService.RequestPasswordReset(request.Context(), logger, email); err != nil {
		handler.view.ForgotPassword(writer, http.StatusInternalServerError, ResetData{
			CSRFToken:    csrfToken(writer, request),
			ErrorMessage: "Something went wrong. Please try again.",
		})
		return
	}

	handler.view.ForgotPassword(writer, http.StatusOK, ResetData{
		CSRFToken:    csrfToken(writer, request),
		Confirmation: "If that email has an account, a reset link is on its way",
	})
}

// showResetPassword handles GET /reset_password?token=...
func (handler *Handler) showResetPassword(writer http.ResponseWriter, request *http.Request) {
	handler.view.ResetPassword(writer, http.StatusOK, ResetData{
		CSRFToken: csrfToken(writer, request),
		Token:     request.URL.Query().Get("token"),
	})
}

// submitResetPassword handles POST /reset_password.
func (handler *Handler) submitResetPassword(writer http.ResponseWriter, request *http.Request) {
	token := request.PostFormValue("token")
	password := request.PostFormValue("password")

	if err := handler.authService.ResetPassword(request.Context(), token, password); err != nil {
		handler.view.ResetPassword(writer, statusOf(err, http.StatusBadRequest), ResetData{
			CSRFToken:    csrfToken(writer, request),
			Token:        token,
			ErrorMessage: messageOf(err),
		})
		return
	}

	http.Redirect(writer, request, "/sign_in", http.StatusSeeOther)
}

// # Helpers

// csrfToken surfaces the anti-forgery token for form rendering. The CSRF
// middleware has already run: either the browser sent a valid cookie, or a
// fresh token was just minted into the response headers.
func csrfToken(writer http.ResponseWriter, request *http.Request) string {
	if token := writer.Header().Get(constants.HeaderCSRFToken); token != "" {
		return token
	}
	if cookie, err := request.Cookie(constants.CSRFCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// statusOf extracts the HTTP status from an [apperr.AppError], with a fallback.
func statusOf(err error, fallback int) int {
	var appError *apperr.AppError
	if errors.As(err, &appError) {
		return appError.HTTPStatus
	}
	return fallback
}

// messageOf extracts a client-safe message, never leaking internals.
func messageOf(err error) string {
	var appError *apperr.AppError
	if errors.As(err, &appError) {
		message := appError.Message
		if len(appError.Details) > 0 {
			message = appError.Details[0].Field + ": " + appError.Details[0].Message
		}
		return message
	}
	return "Something went wrong. Please try again."
}
