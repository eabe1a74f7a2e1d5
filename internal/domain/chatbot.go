package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoChatbotSelected is returned by ingestion operations when the
// account has no selected chatbot. At most one chatbot is selected per
// account at a time.
var ErrNoChatbotSelected = errors.New("no chatbot selected: select a chatbot before training")

// ModelSettings hold the prompt configuration for a chatbot.
type ModelSettings struct {
	Instruction string `json:"instruction"`
	Persona     string `json:"persona"`
}

// PublicSettings configure the embeddable widget.
type PublicSettings struct {
	Domains      []string `json:"domains"`
	WidgetDomain string   `json:"widget_domain,omitempty"`
}

// ChatbotSettings nests the model and public configuration.
type ChatbotSettings struct {
	Model  ModelSettings  `json:"model"`
	Public PublicSettings `json:"public"`
}

// Chatbot is a configured conversational agent owned by an account.
// The auth backend is its system of record; this service only reads it.
type Chatbot struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Name      string          `json:"name"`
	Settings  ChatbotSettings `json:"settings"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SelectionRepository persists the per-account selected chatbot. The
// selection is a weak reference: only the relation is owned here, not
// the chatbot itself.
type SelectionRepository interface {
	Set(ctx context.Context, userID, chatbotID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")
