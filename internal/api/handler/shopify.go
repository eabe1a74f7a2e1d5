package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aqibaliakbar/chatbuddy/internal/api/middleware"
	"github.com/aqibaliakbar/chatbuddy/internal/api/response"
	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/aqibaliakbar/chatbuddy/internal/service"
	"github.com/rs/zerolog/log"
)

// ShopifyHandler handles the store integration endpoints
type ShopifyHandler struct {
	shopifyService *service.ShopifyService
}

// NewShopifyHandler creates a new Shopify handler
func NewShopifyHandler(shopifyService *service.ShopifyService) *ShopifyHandler {
	return &ShopifyHandler{shopifyService: shopifyService}
}

// AuthURL starts the OAuth flow for the selected chatbot
func (h *ShopifyHandler) AuthURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input struct {
		Shop string `json:"shop" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	authURL, err := h.shopifyService.GetAuthURL(r.Context(), userID, input.Shop)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	response.OK(w, map[string]string{"auth_url": authURL})
}

// Callback completes the OAuth flow with the authorization code
func (h *ShopifyHandler) Callback(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	q := r.URL.Query()
	shop := q.Get("shop")
	code := q.Get("code")
	state := q.Get("state")
	if shop == "" || code == "" || state == "" {
		response.BadRequest(w, "missing shop, code, or state")
		return
	}

	conn, err := h.shopifyService.ConnectWithCode(r.Context(), userID, shop, code, state)
	if err != nil {
		log.Error().Err(err).Str("shop", shop).Msg("Shopify connection failed")
		response.BadRequest(w, "could not connect the store")
		return
	}
	response.Created(w, conn)
}

// Status reports the connection state for the selected chatbot
func (h *ShopifyHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	status, err := h.shopifyService.Status(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNoChatbotSelected) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "could not load connection status")
		return
	}
	response.OK(w, status)
}

// Disconnect removes the store connection
func (h *ShopifyHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.shopifyService.Disconnect(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNoChatbotSelected) {
			response.BadRequest(w, err.Error())
			return
		}
		log.Error().Err(err).Msg("Shopify disconnect failed")
		response.InternalError(w, "could not disconnect the store")
		return
	}
	response.NoContent(w)
}

// Train submits the connected store's products for training
func (h *ShopifyHandler) Train(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.shopifyService.TrainProducts(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNoChatbotSelected) {
			response.BadRequest(w, err.Error())
			return
		}
		log.Error().Err(err).Msg("Shopify product training failed")
		response.BadRequest(w, err.Error())
		return
	}
	response.OK(w, map[string]string{"status": "trained"})
}
