package handler

import (
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

// ChatbotHandler handles chatbot list and selection endpoints
type ChatbotHandler struct {
	chatbotService *service.ChatbotService
}

// NewChatbotHandler creates a new chatbot handler
func NewChatbotHandler(chatbotService *service.ChatbotService) *ChatbotHandler {
	return &ChatbotHandler{chatbotService: chatbotService}
}

// List returns the account's chatbots
func (h *ChatbotHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	bots, err := h.chatbotService.GetChatbots(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list chatbots")
		response.InternalError(w, "could not load chatbots")
		return
	}
	response.OK(w, bots)
}

// Select marks a chatbot as the account's active selection
func (h *ChatbotHandler) Select(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	chatbotID, err := uuid.Parse(chi.URLParam(r, "chatbotID"))
	if err != nil {
		response.BadRequest(w, "invalid chatbot id")
		return
	}

	if err := h.chatbotService.SelectChatbot(r.Context(), userID, chatbotID); err != nil {
		log.Error().Err(err).Msg("Chatbot selection failed")
		response.BadRequest(w, err.Error())
		return
	}
	response.OK(w, map[string]string{"selected": chatbotID.String()})
}

// Selected returns the currently selected chatbot id
func (h *ChatbotHandler) Selected(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	chatbotID, err := h.chatbotService.SelectedChatbot(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNoChatbotSelected) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "could not load selection")
		return
	}
	response.OK(w, map[string]string{"chatbot_id": chatbotID.String()})
}
