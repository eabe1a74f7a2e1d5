package handler

import (
	"html/template"
	"net/http"

	"github.com/aqibaliakbar/chatbuddy/internal/api/middleware"
)

// pageTemplate is the shell served for dashboard routes; the client
// bundle takes over from here.
var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · ChatBuddy</title>
<link rel="stylesheet" href="/static/app.css">
</head>
<body>
<div id="root" data-page="{{.Page}}"{{if .Email}} data-user="{{.Email}}"{{end}}></div>
<script src="/static/app.js" defer></script>
</body>
</html>
`))

type pageData struct {
	Title string
	Page  string
	Email string
}

// PageHandler serves the HTML shells the dashboard boots from
type PageHandler struct{}

// NewPageHandler creates a new page handler
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, title, page string) {
	data := pageData{Title: title, Page: page}
	if sess, ok := middleware.GetSession(r.Context()); ok {
		data.Email = sess.User.Email
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

// Dashboard is the protected home view
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Dashboard", "dashboard")
}

// Knowledge is the protected knowledge overview
func (h *PageHandler) Knowledge(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Knowledge", "knowledge")
}

// Login is the public sign-in view
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Sign in", "login")
}

// Signup is the public plan-selection view
func (h *PageHandler) Signup(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Sign up", "signup")
}

// SignupForm is the public registration form view
func (h *PageHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Create account", "signup-form")
}

// ForgotPassword is the public password recovery view
func (h *PageHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Reset password", "forgot-password")
}
