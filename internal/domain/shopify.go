package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ShopifyState is the connection state machine for a per-chatbot
// Shopify integration.
type ShopifyState string

const (
	ShopifyDisconnected ShopifyState = "disconnected"
	ShopifyAuthorizing  ShopifyState = "authorizing"
	ShopifyConnected    ShopifyState = "connected"
)

// ShopifyConnection records a connected Shopify store for a chatbot.
// The store access token is encrypted at rest.
type ShopifyConnection struct {
	ID                   uuid.UUID  `json:"id"`
	ChatbotID            uuid.UUID  `json:"chatbot_id"`
	UserID               uuid.UUID  `json:"user_id"`
	ShopDomain           string     `json:"shop_domain"`
	AccessTokenEncrypted string     `json:"-"`
	LastTrainedAt        *time.Time `json:"last_trained_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// ShopifyConnectionRepository defines the interface for connection storage
type ShopifyConnectionRepository interface {
	Create(ctx context.Context, conn *ShopifyConnection) error
	GetByChatbot(ctx context.Context, chatbotID uuid.UUID) (*ShopifyConnection, error)
	Touch(ctx context.Context, chatbotID uuid.UUID, trainedAt time.Time) error
	Delete(ctx context.Context, chatbotID uuid.UUID) error
}
