package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenPrefixLen = 11 // "cb_" plus the first 8 secret characters

// APITokenService manages account API tokens. The secret is returned
// exactly once at creation; only its bcrypt hash is stored.
type APITokenService struct {
	tokens domain.APITokenRepository
}

// NewAPITokenService creates a new token service
func NewAPITokenService(tokens domain.APITokenRepository) *APITokenService {
	return &APITokenService{tokens: tokens}
}

// Create mints a new token and returns the record plus the one-time
// plaintext secret.
func (s *APITokenService) Create(ctx context.Context, userID uuid.UUID, name string) (*domain.APIToken, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("failed to generate secret: %w", err)
	}
	secret := "cb_" + base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash secret: %w", err)
	}

	token := &domain.APIToken{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		SecretHash: string(hash),
		Prefix:     secret[:tokenPrefixLen],
		CreatedAt:  time.Now(),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, "", fmt.Errorf("failed to create token: %w", err)
	}

	return token, secret, nil
}

// List returns the account's tokens (hashes are never serialized)
func (s *APITokenService) List(ctx context.Context, userID uuid.UUID) ([]domain.APIToken, error) {
	return s.tokens.ListByUser(ctx, userID)
}

// Delete removes a token after verifying ownership
func (s *APITokenService) Delete(ctx context.Context, userID, tokenID uuid.UUID) error {
	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to load token: %w", err)
	}
	if token.UserID != userID {
		return domain.ErrNotFound
	}
	return s.tokens.Delete(ctx, tokenID)
}

// Verify checks an API token secret against a stored record
func (s *APITokenService) Verify(ctx context.Context, tokenID uuid.UUID, secret string) (bool, error) {
	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(token.SecretHash), []byte(secret)); err != nil {
		return false, nil
	}
	return true, nil
}
