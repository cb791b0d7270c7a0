// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

// Package admin implements the admin-only user directory on the browser
// surface: listing, inspecting, role toggling, deleting, and terminating
// sessions of accounts.
package admin

import (
	"html/template"
	"net/http"

	"github.com/ohanahq/ohana/internal/auth"
	"github.com/ohanahq/ohana/pkg/pagination"
)

// UsersData feeds the directory listing.
type UsersData struct {
	Users     []*auth.User
	Meta      pagination.Meta
	Search    string
	Role      string
	CSRFToken string
}

// UserDetailData feeds the single-account view.
type UserDetailData struct {
	User      *auth.User
	Sessions  []*auth.Session
	CSRFToken string
}

// Renderer is the port between admin handler outcomes and HTML output.
type Renderer interface {
	Users(writer http.ResponseWriter, data UsersData)
	UserDetail(writer http.ResponseWriter, data UserDetailData)
	Error(writer http.ResponseWriter, status int, message string)
}

// HTMLRenderer is the default [Renderer] for the admin console.
type HTMLRenderer struct {
	templates *template.Template
}

// NewHTMLRenderer compiles the built-in templates.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		templates: template.Must(template.New("admin").Parse(adminTemplates)),
	}
}

func (r *HTMLRenderer) render(writer http.ResponseWriter, status int, name string, data any) {
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(status)
	_ = r.templates.ExecuteTemplate(writer, name, data)
}

// Users renders the paginated directory.
func (r *HTMLRenderer) Users(writer http.ResponseWriter, data UsersData) {
	r.render(writer, http.StatusOK, "users", data)
}

// UserDetail renders one account with its live sessions.
func (r *HTMLRenderer) UserDetail(writer http.ResponseWriter, data UserDetailData) {
	r.render(writer, http.StatusOK, "user_detail", data)
}

// Error renders a bare error page.
func (r *HTMLRenderer) Error(writer http.ResponseWriter, status int, message string) {
	r.render(writer, status, "error", map[string]any{"Message": message})
}

const adminTemplates = `
{{define "users"}}<!DOCTYPE html>
<html><head><title>Users</title></head><body>
<h1>Users ({{.Meta.Total}})</h1>
<form method="get" action="/admin/users">
<input type="search" name="search" value="{{.Search}}" placeholder="Email contains">
<select name="role">
<option value="" {{if not .Role}}selected{{end}}>Any role</option>
<option value="user" {{if eq .Role "user"}}selected{{end}}>user</option>
<option value="admin" {{if eq .Role "admin"}}selected{{end}}>admin</option>
</select>
<button type="submit">Filter</button>
</form>
<table>
<tr><th>ID</th><th>Email</th><th>Role</th><th>Created</th><th></th></tr>
{{range .Users}}
<tr>
<td><a href="/admin/users/{{.ID}}">{{.ID}}</a></td>
<td>{{.Email}}</td>
<td>{{.Role}}</td>
<td>{{.CreatedAt.Format "2006-01-02"}}</td>
<td>
<form method="post" action="/admin/users/{{.ID}}/toggle_role">
<input type="hidden" name="csrf_token" value="{{$.CSRFToken}}">
<button type="submit">Toggle role</button>
</form>
<form method="post" action="/admin/users/{{.ID}}">
<input type="hidden" name="csrf_token" value="{{$.CSRFToken}}">
<input type="hidden" name="_method" value="DELETE">
<button type="submit">Delete</button>
</form>
</td>
</tr>
{{end}}
</table>
<p>Page {{.Meta.Page}} of {{.Meta.TotalPages}}</p>
</body></html>{{end}}

{{define "user_detail"}}<!DOCTYPE html>
<html><head><title>User {{.User.ID}}</title></head><body>
<h1>{{.User.Email}}</h1>
<p>ID {{.User.ID}} · role {{.User.Role}} · created {{.User.CreatedAt.Format "2006-01-02 15:04"}}</p>
<h2>Sessions ({{len .Sessions}})</h2>
<table>
<tr><th>Created</th><th>IP</th><th>User agent</th></tr>
{{range .Sessions}}
<tr><td>{{.CreatedAt.Format "2006-01-02 15:04"}}</td><td>{{.IPAddress}}</td><td>{{.UserAgent}}</td></tr>
{{end}}
</table>
<form method="post" action="/admin/users/{{.User.ID}}/sessions">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<input type="hidden" name="_method" value="DELETE">
<button type="submit">Terminate all sessions</button>
</form>
<p><a href="/admin/users">Back to directory</a></p>
</body></html>{{end}}

{{define "error"}}<!DOCTYPE html>
<html><head><title>Error</title></head><body>
<h1>{{.Message}}</h1>
<p><a href="/admin/users">Back to directory</a></p>
</body></html>{{end}}
`
