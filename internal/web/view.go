// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package web

import (
	"html/template"
	"net/http"

	"github.com/ohanahq/ohana/internal/auth"
)

// # View Layer
//
// The handlers produce structured outcomes (render X with data Y, redirect
// to Z); the Renderer port turns "render" outcomes into HTML. The built-in
// renderer below carries deliberately minimal markup so deployments can
// swap in their branded templates without touching handler logic.

// SignInData feeds the sign-in form.
type SignInData struct {
	ReturnTo     string
	CSRFToken    string
	Email        string
	ErrorMessage string
}

// SignUpData feeds the sign-up form.
type SignUpData struct {
	CSRFToken    string
	Email        string
	ErrorMessage string
}

// DashboardData feeds the authenticated landing page.
type DashboardData struct {
	User      auth.PublicUser
	CSRFToken string
}

// ResetData feeds the password-reset forms.
type ResetData struct {
	CSRFToken    string
	Token        string
	ErrorMessage string
	Confirmation string
}

// Renderer is the port between handler outcomes and HTML output.
type Renderer interface {
	SignIn(writer http.ResponseWriter, status int, data SignInData)
	SignUp(writer http.ResponseWriter, status int, data SignUpData)
	Dashboard(writer http.ResponseWriter, data DashboardData)
	Landing(writer http.ResponseWriter)
	ForgotPassword(writer http.ResponseWriter, status int, data ResetData)
	ResetPassword(writer http.ResponseWriter, status int, data ResetData)
	Error(writer http.ResponseWriter, status int, message string)
}

// HTMLRenderer is the default [Renderer]: unstyled, correct, replaceable.
type HTMLRenderer struct {
	templates *template.Template
}

// NewHTMLRenderer compiles the built-in templates.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		templates: template.Must(template.New("web").Parse(baseTemplates)),
	}
}

func (r *HTMLRenderer) render(writer http.ResponseWriter, status int, name string, data any) {
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(status)
	_ = r.templates.ExecuteTemplate(writer, name, data)
}

// SignIn renders the sign-in form.
func (r *HTMLRenderer) SignIn(writer http.ResponseWriter, status int, data SignInData) {
	r.render(writer, status, "sign_in", data)
}

// SignUp renders the sign-up form.
func (r *HTMLRenderer) SignUp(writer http.ResponseWriter, status int, data SignUpData) {
	r.render(writer, status, "sign_up", data)
}

// Dashboard renders the authenticated home page.
func (r *HTMLRenderer) Dashboard(writer http.ResponseWriter, data DashboardData) {
	r.render(writer, http.StatusOK, "dashboard", data)
}

// Landing renders the anonymous home page.
func (r *HTMLRenderer) Landing(writer http.ResponseWriter) {
	r.render(writer, http.StatusOK, "landing", nil)
}

// ForgotPassword renders the reset-request form.
func (r *HTMLRenderer) ForgotPassword(writer http.ResponseWriter, status int, data ResetData) {
	r.render(writer, status, "forgot_password", data)
}

// ResetPassword renders the new-password form.
func (r *HTMLRenderer) ResetPassword(writer http.ResponseWriter, status int, data ResetData) {
	r.render(writer, status, "reset_password", data)
}

// Error renders a bare error page.
func (r *HTMLRenderer) Error(writer http.ResponseWriter, status int, message string) {
	r.render(writer, status, "error", map[string]any{"Message": message})
}

const baseTemplates = `
{{define "sign_in"}}<!DOCTYPE html>
<html><head><title>Sign in</title></head><body>
<h1>Sign in</h1>
{{if .ErrorMessage}}<p class="error">{{.ErrorMessage}}</p>{{end}}
<form method="post" action="/sign_in">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<input type="hidden" name="returnTo" value="{{.ReturnTo}}">
<label>Email <input type="email" name="email" value="{{.Email}}" required></label>
<label>Password <input type="password" name="password" required></label>
<button type="submit">Sign in</button>
</form>
<p><a href="/sign_up">Create an account</a> · <a href="/forgot_password">Forgot password?</a></p>
</body></html>{{end}}

{{define "sign_up"}}<!DOCTYPE html>
<html><head><title>Sign up</title></head><body>
<h1>Create account</h1>
{{if .ErrorMessage}}<p class="error">{{.ErrorMessage}}</p>{{end}}
<form method="post" action="/sign_up">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<label>Email <input type="email" name="email" value="{{.Email}}" required></label>
<label>Password <input type="password" name="password" required minlength="8"></label>
<button type="submit">Sign up</button>
</form>
</body></html>{{end}}

{{define "dashboard"}}<!DOCTYPE html>
<html><head><title>Account</title></head><body>
<h1>Signed in as {{.User.Email}}</h1>
<p>Role: {{.User.Role}}</p>
<form method="post" action="/sign_out">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<input type="hidden" name="_method" value="DELETE">
<button type="submit">Sign out</button>
</form>
</body></html>{{end}}

{{define "landing"}}<!DOCTYPE html>
<html><head><title>Ohana</title></head><body>
<h1>Ohana single sign-on</h1>
<p><a href="/sign_in">Sign in</a> or <a href="/sign_up">create an account</a>.</p>
</body></html>{{end}}

{{define "forgot_password"}}<!DOCTYPE html>
<html><head><title>Forgot password</title></head><body>
<h1>Forgot password</h1>
{{if .Confirmation}}<p>{{.Confirmation}}</p>{{end}}
{{if .ErrorMessage}}<p class="error">{{.ErrorMessage}}</p>{{end}}
<form method="post" action="/forgot_password">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<label>Email <input type="email" name="email" required></label>
<button type="submit">Send reset link</button>
</form>
</body></html>{{end}}

{{define "reset_password"}}<!DOCTYPE html>
<html><head><title>Reset password</title></head><body>
<h1>Choose a new password</h1>
{{if .ErrorMessage}}<p class="error">{{.ErrorMessage}}</p>{{end}}
<form method="post" action="/reset_password">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<input type="hidden" name="token" value="{{.Token}}">
<label>New password <input type="password" name="password" required minlength="8"></label>
<button type="submit">Reset password</button>
</form>
</body></html>{{end}}

{{define "error"}}<!DOCTYPE html>
<html><head><title>Error</title></head><body>
<h1>Something went wrong</h1>
<p>{{.Message}}</p>
<p><a href="/">Back to home</a></p>
</body></html>{{end}}
`
