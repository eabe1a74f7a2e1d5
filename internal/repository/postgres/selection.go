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

// SelectionRepository implements domain.SelectionRepository. The
// primary key on user_id enforces the one-selection-per-account
// invariant at the storage layer.
type SelectionRepository struct {
	pool *pgxpool.Pool
}

// NewSelectionRepository creates a new selection repository
func NewSelectionRepository(db *DB) *SelectionRepository {
	return &SelectionRepository{pool: db.Pool}
}

func (r *SelectionRepository) Set(ctx context.Context, userID, chatbotID uuid.UUID) error {
	query := `
		INSERT INTO chatbot_selections (user_id, chatbot_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET chatbot_id = EXCLUDED.chatbot_id, updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query, userID, chatbotID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set selection: %w", err)
	}
	return nil
}

func (r *SelectionRepository) Get(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	query := `SELECT chatbot_id FROM chatbot_selections WHERE user_id = $1`
	var chatbotID uuid.UUID
	err := r.pool.QueryRow(ctx, query, userID).Scan(&chatbotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, domain.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to get selection: %w", err)
	}
	return chatbotID, nil
}

func (r *SelectionRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM chatbot_selections WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	return nil
}
