package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// APITokenRepository implements domain.APITokenRepository
type APITokenRepository struct {
	pool *pgxpool.Pool
}

// NewAPITokenRepository creates a new API token repository
func NewAPITokenRepository(db *DB) *APITokenRepository {
	return &APITokenRepository{pool: db.Pool}
}

func (r *APITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	query := `
		INSERT INTO api_tokens (id, user_id, name, secret_hash, prefix, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.Name,
		token.SecretHash,
		token.Prefix,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create api token: %w", err)
	}
	return nil
}

func (r *APITokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.APIToken, error) {
	query := `
		SELECT id, user_id, name, secret_hash, prefix, created_at
		FROM api_tokens
		WHERE id = $1
	`
	var t domain.APIToken
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&t.SecretHash,
		&t.Prefix,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get api token: %w", err)
	}
	return &t, nil
}

func (r *APITokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.APIToken, error) {
	query := `
		SELECT id, user_id, name, secret_hash, prefix, created_at
		FROM api_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.APIToken
	for rows.Next() {
		var t domain.APIToken
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Name,
			&t.SecretHash,
			&t.Prefix,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan api token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

func (r *APITokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM api_tokens WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete api token: %w", err)
	}
	return nil
}
