// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ohanahq/ohana/internal/auth"
	"github.com/ohanahq/ohana/internal/platform/apperr"
	"github.com/ohanahq/ohana/internal/platform/constants"
	requestutil "github.com/ohanahq/ohana/internal/platform/request"
	"github.com/ohanahq/ohana/internal/platform/respond"
	"github.com/ohanahq/ohana/internal/platform/sec"
	"github.com/ohanahq/ohana/pkg/pagination"
)

// Handler implements the /admin/users surface. The RequireAdmin guard is
// mounted by the server composition root; every handler here may assume an
// admin identity in the context.
type Handler struct {
	authService *auth.Service
	view        Renderer
}

// NewHandler constructs the admin handler.
func NewHandler(service *auth.Service, view Renderer) *Handler {
	return &Handler{authService: service, view: view}
}

// Routes returns the admin routes, mounted under /admin/users.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/{id}", handler.detail)
	router.Post("/{id}/toggle_role", handler.toggleRole)
	router.Delete("/{id}", handler.deleteUser)
	router.Delete("/{id}/sessions", handler.terminateSessions)

	return router
}

// list handles GET /admin/users with search, role filter, and pagination.
// Clients sending Accept: application/json get the machine-readable form;
// the console itself renders HTML.
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	filter := auth.ListFilter{
		Search: query.Get("search"),
		Role:   sec.UserRole(query.Get("role")),
	}
	page := pagination.FromRequest(request)

	users, meta, err := handler.authService.ListUsers(request.Context(), filter, page)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	if wantsJSON(request) {
		publics := make([]auth.PublicUser, 0, len(users))
		for _, user := range users {
			publics = append(publics, user.Public())
		}
		respond.Paginated(writer, publics, meta)
		return
	}

	handler.view.Users(writer, UsersData{
		Users:     users,
		Meta:      meta,
		Search:    filter.Search,
		Role:      string(filter.Role),
		CSRFToken: csrfToken(writer, request),
	})
}

// detail handles GET /admin/users/{id}.
func (handler *Handler) detail(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.ID64(request, "id")
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	user, err := handler.authService.GetUser(request.Context(), id)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	sessions, err := handler.authService.UserSessions(request.Context(), id)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	handler.view.UserDetail(writer, UserDetailData{
		User:      user,
		Sessions:  sessions,
		CSRFToken: csrfToken(writer, request),
	})
}

// toggleRole handles POST /admin/users/{id}/toggle_role.
//
// Toggling your own role is refused with 403; see the service-level
// self-protection invariant.
func (handler *Handler) toggleRole(writer http.ResponseWriter, request *http.Request) {
	targetID, err := requestutil.ID64(request, "id")
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	actor, err := requestutil.RequiredIdentity(request)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	if _, err := handler.authService.ToggleRole(request.Context(), targetID, actor.UserID); err != nil {
		handler.fail(writer, request, err)
		return
	}

	http.Redirect(writer, request, "/admin/users", http.StatusSeeOther)
}

// deleteUser handles DELETE /admin/users/{id}.
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	targetID, err := requestutil.ID64(request, "id")
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	actor, err := requestutil.RequiredIdentity(request)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	if err := handler.authService.DeleteUser(request.Context(), targetID, actor.UserID); err != nil {
		handler.fail(writer, request, err)
		return
	}

	http.Redirect(writer, request, "/admin/users", http.StatusSeeOther)
}

// terminateSessions handles DELETE /admin/users/{id}/sessions.
func (handler *Handler) terminateSessions(writer http.ResponseWriter, request *http.Request) {
	targetID, err := requestutil.ID64(request, "id")
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	if _, err := handler.authService.TerminateSessions(request.Context(), targetID); err != nil {
		handler.fail(writer, request, err)
		return
	}

	http.Redirect(writer, request, "/admin/users/"+requestutil.Param(request, "id"), http.StatusSeeOther)
}

// # Helpers

// fail maps an error to the right surface: JSON envelope for API-style
// clients, error page for the console.
func (handler *Handler) fail(writer http.ResponseWriter, request *http.Request, err error) {
	if wantsJSON(request) {
		respond.Error(writer, request, err)
		return
	}

	status := http.StatusInternalServerError
	message := "Something went wrong"
	var appError *apperr.AppError
	if errors.As(err, &appError) {
		status = appError.HTTPStatus
		message = appError.Message
	}
	handler.view.Error(writer, status, message)
}

// wantsJSON checks the Accept header for an explicit JSON preference.
func wantsJSON(request *http.Request) bool {
	return strings.Contains(request.Header.Get("Accept"), "application/json")
}

// csrfToken surfaces the anti-forgery token for form rendering.
func csrfToken(writer http.ResponseWriter, request *http.Request) string {
	if token := writer.Header().Get(constants.HeaderCSRFToken); token != "" {
		return token
	}
	if cookie, err := request.Cookie(constants.CSRFCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
