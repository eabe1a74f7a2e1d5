package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// APIToken is an account-scoped access token for the public API. Only
// a bcrypt hash of the secret is stored; the plaintext is shown once at
// creation.
type APIToken struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	Prefix     string    `json:"prefix"`
	CreatedAt  time.Time `json:"created_at"`
}

// APITokenCreate represents token creation data
type APITokenCreate struct {
	Name string `json:"name" validate:"required,max=255"`
}

// APITokenRepository defines the interface for token storage
type APITokenRepository interface {
	Create(ctx context.Context, token *APIToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*APIToken, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]APIToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
