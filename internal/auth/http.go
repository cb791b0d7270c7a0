// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

// HTTP delivery layer for the JSON token API.
//
// # Architecture
//
// Handlers act as the "gatekeepers" to the system. They are responsible for:
//   - JSON request parsing and strict input validation.
//   - Mapping HTTP contexts to service layer method calls.
//   - Standardizing JSON response formats via the [respond] package.
//
// They contain NO business logic or database queries.

package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ohanahq/ohana/internal/platform/apperr"
	"github.com/ohanahq/ohana/internal/platform/constants"
	"github.com/ohanahq/ohana/internal/platform/ctxutil"
	"github.com/ohanahq/ohana/internal/platform/middleware"
	requestutil "github.com/ohanahq/ohana/internal/platform/request"
	"github.com/ohanahq/ohana/internal/platform/respond"
	"github.com/ohanahq/ohana/internal/platform/validate"
)

// Handler implements the bearer-token API consumed by sibling applications.
//
// # Scope
//
// Everything under /api/auth: credential exchange, token verification and
// refresh, the current-user lookup, and the password-reset entry points.
type Handler struct {
	authService *Service
	cookies     CookiePolicy
	rateLimiter *middleware.RateLimiter
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, cookies CookiePolicy, rateLimiter *middleware.RateLimiter) *Handler {
	return &Handler{
		authService: service,
		cookies:     cookies,
		rateLimiter: rateLimiter,
	}
}

// Routes returns a [chi.Router] configured with the token API routes.
//
// # Endpoints
//   - POST   /signin  : Credential exchange. Rate-limited per IP.
//   - DELETE /signout : Destroys the session named by the cookie.
//   - POST   /verify  : Stateless token check for sibling services.
//   - POST   /refresh : Reissues a still-valid token.
//   - GET    /user    : Returns the authenticated caller.
//   - POST   /password: Changes the caller's password, revoking all sessions.
//   - POST   /forgot  : Requests a password-reset token. Rate-limited.
//   - POST   /reset   : Consumes a reset token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.With(handler.rateLimiter.Limit(constants.RateLimitEndpointSignIn)).
		Post("/signin", handler.signIn)
	router.Delete("/signout", handler.signOut)
	router.Post("/verify", handler.verify)
	router.Post("/refresh", handler.refresh)
	router.With(middleware.RequireAuth(middleware.SurfaceAPI)).
		Get("/user", handler.currentUser)
	router.With(middleware.RequireAuth(middleware.SurfaceAPI)).
		Post("/password", handler.changePassword)
	router.With(handler.rateLimiter.Limit(constants.RateLimitEndpointForgot)).
		Post("/forgot", handler.forgotPassword)
	router.Post("/reset", handler.resetPassword)

	return router
}

// credentialsRequest is the JSON payload for /signin.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenRequest is the JSON payload for /verify and /refresh. The token may
// alternatively arrive in the Authorization header.
type tokenRequest struct {
	Token string `json:"token"`
}

// signIn handles POST /api/auth/signin.
//
// # Returns
//   - 200 {success:true, token, user} with auth cookies set.
//   - 401 InvalidCredentials for unknown email or wrong password.
//   - 429 when the per-IP bucket is exhausted.
func (handler *Handler) signIn(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────
	var input credentialsRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────
	if input.Email == "" {
		respond.Error(writer, request, validate.RequiredError("email", "This field is required"))
		return
	}
	if input.Password == "" {
		respond.Error(writer, request, validate.RequiredError("password", "This field is required"))
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────
	result, err := handler.authService.SignIn(request.Context(), Credentials{
		Email:     input.Email,
		Password:  input.Password,
		IPAddress: middleware.RealIP(request),
		UserAgent: request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	// Cookies are set on the API surface too: browser-based sibling JS
	// signing in through fetch() still ends up with the shared cookies.
	handler.cookies.SetAuth(writer, result.Token, result.Session.ID)

	respond.Success(writer, respond.Fields{
		constants.FieldToken: result.Token,
		constants.FieldUser:  result.User.Public(),
	})
}

// signOut handles DELETE /api/auth/signout.
//
// Destroying an absent session still reports success; repeated sign-outs
// are indistinguishable from the first.
func (handler *Handler) signOut(writer http.ResponseWriter, request *http.Request) {
	if err := handler.authService.SignOut(request.Context(), handler.cookies.SessionID(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.ClearAuth(writer)
	respond.Success(writer, nil)
}

// verify handles POST /api/auth/verify.
//
// # Contract
//
// This is the hot path for sibling services: a stateless claims check plus
// a user-existence probe. Success returns {valid:true, user:{...}}; any
// failure is a 401 failure envelope.
func (handler *Handler) verify(writer http.ResponseWriter, request *http.Request) {
	token := handler.extractToken(request)
	if token == "" {
		respond.Error(writer, request, apperr.Unauthenticated("Token required"))
		return
	}

	identity := handler.authService.ResolveFromToken(request.Context(), token)
	if identity == nil {
		respond.Error(writer, request, apperr.Unauthenticated("Invalid or expired token"))
		return
	}

	respond.OK(writer, respond.Fields{
		constants.FieldValid: true,
		constants.FieldUser: PublicUser{
			UserID: identity.UserID,
			Email:  identity.Email,
			Role:   identity.Role,
		},
	})
}

// refresh handles POST /api/auth/refresh.
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	token := handler.extractToken(request)
	if token == "" {
		respond.Error(writer, request, apperr.Unauthenticated("Token required"))
		return
	}

	result, err := handler.authService.Refresh(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Success(writer, respond.Fields{
		constants.FieldToken: result.Token,
		constants.FieldUser:  result.User.Public(),
	})
}

// currentUser handles GET /api/auth/user. Mounted behind RequireAuth.
func (handler *Handler) currentUser(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, respond.Fields{
		constants.FieldUser: PublicUser{
			UserID: identity.UserID,
			Email:  identity.Email,
			Role:   identity.Role,
		},
	})
}

// changePasswordRequest is the JSON payload for /password.
type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// changePassword handles POST /api/auth/password. Mounted behind RequireAuth.
//
// A successful change destroys every session the caller holds, including the
// one that authenticated this request; every device signs in again.
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.CurrentPassword == "" {
		respond.Error(writer, request, validate.RequiredError("currentPassword", "This field is required"))
		return
	}

	if err := handler.authService.ChangePassword(request.Context(), userID,
		input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.ClearAuth(writer)
	respond.Success(writer, nil)
}

// forgotRequest is the JSON payload for /forgot.
type forgotRequest struct {
	Email string `json:"email"`
}

// forgotPassword handles POST /api/auth/forgot.
//
// Always answers 200: the response never reveals whether the address has
// an account.
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.Email == "" {
		respond.Error(writer, request, validate.RequiredError("email", "This field is required"))
		return
	}

	logger := ctxutil.GetLogger(request.Context())
	if err := handler.authService.RequestPasswordReset(request.Context(), logger, input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Success(writer, respond.Fields{
		constants.FieldMessage: "If that email has an account, a reset link is on its way",
	})
}

// resetRequest is the JSON payload for /reset.
type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// resetPassword handles POST /api/auth/reset.
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.Token == "" {
		respond.Error(writer, request, validate.RequiredError("token", "This field is required"))
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Success(writer, nil)
}

// extractToken prefers the JSON body's token field, falling back to the
// Authorization header.
func (handler *Handler) extractToken(request *http.Request) string {
	var input tokenRequest
	if err := json.NewDecoder(request.Body).Decode(&input); err == nil && input.Token != "" {
		return input.Token
	}
	return requestutil.BearerToken(request)
}
