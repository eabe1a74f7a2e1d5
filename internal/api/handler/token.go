package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aqibaliakbar/chatbuddy/internal/api/middleware"
	"github.com/aqibaliakbar/chatbuddy/internal/api/response"
	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/aqibaliakbar/chatbuddy/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TokenHandler handles API token management endpoints
type TokenHandler struct {
	tokenService *service.APITokenService
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(tokenService *service.APITokenService) *TokenHandler {
	return &TokenHandler{tokenService: tokenService}
}

// Create mints a new API token. The secret appears in this response
// only.
func (h *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.APITokenCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	token, secret, err := h.tokenService.Create(r.Context(), userID, input.Name)
	if err != nil {
		log.Error().Err(err).Msg("Token creation failed")
		response.InternalError(w, "could not create the token")
		return
	}

	response.Created(w, map[string]any{
		"token":  token,
		"secret": secret,
	})
}

// List returns the account's tokens
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	tokens, err := h.tokenService.List(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list tokens")
		response.InternalError(w, "could not load tokens")
		return
	}
	response.OK(w, tokens)
}

// Delete removes a token
func (h *TokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	tokenID, err := uuid.Parse(chi.URLParam(r, "tokenID"))
	if err != nil {
		response.BadRequest(w, "invalid token id")
		return
	}

	if err := h.tokenService.Delete(r.Context(), userID, tokenID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "token not found")
			return
		}
		log.Error().Err(err).Msg("Token deletion failed")
		response.InternalError(w, "could not delete the token")
		return
	}
	response.NoContent(w)
}
