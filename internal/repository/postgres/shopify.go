package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ShopifyConnectionRepository implements domain.ShopifyConnectionRepository
type ShopifyConnectionRepository struct {
	pool *pgxpool.Pool
}

// NewShopifyConnectionRepository creates a new Shopify connection repository
func NewShopifyConnectionRepository(db *DB) *ShopifyConnectionRepository {
	return &ShopifyConnectionRepository{pool: db.Pool}
}

func (r *ShopifyConnectionRepository) Create(ctx context.Context, conn *domain.ShopifyConnection) error {
	query := `
		INSERT INTO shopify_connections (id, chatbot_id, user_id, shop_domain, access_token_encrypted, last_trained_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (chatbot_id) DO UPDATE
		SET shop_domain = EXCLUDED.shop_domain,
		    access_token_encrypted = EXCLUDED.access_token_encrypted,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		conn.ID,
		conn.ChatbotID,
		conn.UserID,
		conn.ShopDomain,
		conn.AccessTokenEncrypted,
		conn.LastTrainedAt,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create shopify connection: %w", err)
	}
	return nil
}

func (r *ShopifyConnectionRepository) GetByChatbot(ctx context.Context, chatbotID uuid.UUID) (*domain.ShopifyConnection, error) {
	query := `
		SELECT id, chatbot_id, user_id, shop_domain, access_token_encrypted, last_trained_at, created_at, updated_at
		FROM shopify_connections
		WHERE chatbot_id = $1
	`
	var c domain.ShopifyConnection
	err := r.pool.QueryRow(ctx, query, chatbotID).Scan(
		&c.ID,
		&c.ChatbotID,
		&c.UserID,
		&c.ShopDomain,
		&c.AccessTokenEncrypted,
		&c.LastTrainedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shopify connection: %w", err)
	}
	return &c, nil
}

func (r *ShopifyConnectionRepository) Touch(ctx context.Context, chatbotID uuid.UUID, trainedAt time.Time) error {
	query := `
		UPDATE shopify_connections
		SET last_trained_at = $1, updated_at = $1
		WHERE chatbot_id = $2
	`
	_, err := r.pool.Exec(ctx, query, trainedAt, chatbotID)
	if err != nil {
		return fmt.Errorf("failed to update shopify connection: %w", err)
	}
	return nil
}

func (r *ShopifyConnectionRepository) Delete(ctx context.Context, chatbotID uuid.UUID) error {
	query := `DELETE FROM shopify_connections WHERE chatbot_id = $1`
	_, err := r.pool.Exec(ctx, query, chatbotID)
	if err != nil {
		return fmt.Errorf("failed to delete shopify connection: %w", err)
	}
	return nil
}
