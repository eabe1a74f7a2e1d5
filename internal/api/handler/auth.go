package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/api/middleware"
	"github.com/aqibaliakbar/chatbuddy/internal/api/response"
	"github.com/aqibaliakbar/chatbuddy/internal/config"
	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/aqibaliakbar/chatbuddy/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// validationMessages maps validator tags to user-facing messages
func validationMessages(err error) any {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errors[field] = "field is required"
			case "email":
				errors[field] = "invalid email format"
			case "min":
				errors[field] = "must be at least " + e.Param() + " characters"
			case "max":
				errors[field] = "must be at most " + e.Param() + " characters"
			default:
				errors[field] = "validation failed on " + e.Tag()
			}
		}
		return errors
	}
	return err.Error()
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	sessionService *service.SessionService
	cookies        config.AuthConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessionService *service.SessionService, cookies config.AuthConfig) *AuthHandler {
	return &AuthHandler{sessionService: sessionService, cookies: cookies}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.cookies.CookieDomain,
		Expires:  time.Now().Add(h.cookies.SessionTTL),
		HttpOnly: true,
		Secure:   h.cookies.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookies.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SignUp handles account registration
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var input domain.SignUpInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	sess, cookie, err := h.sessionService.SignUp(r.Context(), input)
	if err != nil {
		log.Error().Err(err).Msg("Sign-up rejected")
		response.BadRequest(w, "could not create your account")
		return
	}

	h.setSessionCookie(w, cookie)
	response.Created(w, map[string]any{
		"user":     sess.User,
		"redirect": "/",
	})
}

// SignIn handles email/password sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(creds); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	sess, cookie, err := h.sessionService.SignIn(r.Context(), creds)
	if err != nil {
		log.Error().Err(err).Str("email", creds.Email).Msg("Sign-in rejected")
		response.Unauthorized(w, "Sign-in failed, please check your credentials")
		return
	}

	h.setSessionCookie(w, cookie)
	response.OK(w, map[string]any{
		"user":     sess.User,
		"redirect": "/",
	})
}

// GoogleSignIn returns the OAuth authorization URL
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	response.OK(w, map[string]string{
		"auth_url": h.sessionService.GoogleAuthURL(state),
	})
}

// GoogleCallback completes the OAuth flow and redirects to the dashboard
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	_, cookie, err := h.sessionService.CompleteGoogle(r.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("Google sign-in failed")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	h.setSessionCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Refresh rotates the session using the cookie's refresh token and
// reissues the cookie with the fresh material.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(h.cookies.CookieName); err == nil {
		token = c.Value
	}

	sess, cookie, err := h.sessionService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			response.Unauthorized(w, err.Error())
			return
		}
		log.Error().Err(err).Msg("Session refresh failed")
		response.Unauthorized(w, "could not refresh the session")
		return
	}

	h.setSessionCookie(w, cookie)
	response.OK(w, map[string]any{"user": sess.User})
}

// SignOut revokes the session and clears the cookie
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if sess, ok := middleware.GetSession(r.Context()); ok {
		if err := h.sessionService.SignOut(r.Context(), sess.AccessToken); err != nil {
			log.Error().Err(err).Msg("Sign-out error")
		}
	}

	h.clearSessionCookie(w)
	response.OK(w, map[string]string{"redirect": "/login"})
}

// ForgotPassword triggers a password recovery email
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	if err := h.sessionService.ResetPassword(r.Context(), input.Email); err != nil {
		log.Error().Err(err).Msg("Password reset failed")
		response.BadRequest(w, "could not send the recovery email")
		return
	}
	response.OK(w, map[string]string{"message": "recovery email sent"})
}

// UpdatePassword sets a new password for the signed-in account
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.sessionService.UpdatePassword(r.Context(), sess.AccessToken, input.Password); err != nil {
		if err == service.ErrPasswordTooShort {
			response.BadRequest(w, err.Error())
			return
		}
		log.Error().Err(err).Msg("Password update failed")
		response.BadRequest(w, "could not update the password")
		return
	}
	response.OK(w, map[string]string{"message": "password updated"})
}

// Session is the startup session fetch the dashboard boots from. It
// returns {"session": null} rather than 401 for signed-out visitors so
// the client can settle its initial state in one request.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(h.cookies.CookieName); err == nil {
		token = c.Value
	}

	sess, err := h.sessionService.Bootstrap(r.Context(), token)
	if err != nil {
		log.Error().Err(err).Msg("Session bootstrap failed")
		response.InternalError(w, "could not determine session state")
		return
	}
	response.OK(w, map[string]any{"session": sess})
}

// Events streams session changes as server-sent events so other tabs
// can react to sign-in and sign-out without polling.
func (h *AuthHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	events, dispose := h.sessionService.Subscribe(8)
	defer dispose()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// Me returns the current session's user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	response.OK(w, sess.User)
}
