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

// ScrapeJobRepository implements domain.ScrapeJobRepository
type ScrapeJobRepository struct {
	pool *pgxpool.Pool
}

// NewScrapeJobRepository creates a new scrape job repository
func NewScrapeJobRepository(db *DB) *ScrapeJobRepository {
	return &ScrapeJobRepository{pool: db.Pool}
}

func (r *ScrapeJobRepository) Create(ctx context.Context, job *domain.ScrapeJob) error {
	query := `
		INSERT INTO scrape_jobs (id, chatbot_id, url, progress, status, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.ChatbotID,
		job.URL,
		job.Progress,
		job.Status,
		job.State,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scrape job: %w", err)
	}
	return nil
}

func (r *ScrapeJobRepository) Get(ctx context.Context, id string) (*domain.ScrapeJob, error) {
	query := `
		SELECT id, chatbot_id, url, progress, status, state, created_at, updated_at
		FROM scrape_jobs
		WHERE id = $1
	`
	var j domain.ScrapeJob
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&j.ID,
		&j.ChatbotID,
		&j.URL,
		&j.Progress,
		&j.Status,
		&j.State,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scrape job: %w", err)
	}
	return &j, nil
}

func (r *ScrapeJobRepository) UpdateProgress(ctx context.Context, id string, progress int, status string, state domain.ScrapeJobStatus) error {
	query := `
		UPDATE scrape_jobs
		SET progress = $1, status = $2, state = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := r.pool.Exec(ctx, query, progress, status, state, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update scrape job: %w", err)
	}
	return nil
}

func (r *ScrapeJobRepository) ListByChatbot(ctx context.Context, chatbotID uuid.UUID) ([]domain.ScrapeJob, error) {
	query := `
		SELECT id, chatbot_id, url, progress, status, state, created_at, updated_at
		FROM scrape_jobs
		WHERE chatbot_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, chatbotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrape jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.ScrapeJob
	for rows.Next() {
		var j domain.ScrapeJob
		if err := rows.Scan(
			&j.ID,
			&j.ChatbotID,
			&j.URL,
			&j.Progress,
			&j.Status,
			&j.State,
			&j.CreatedAt,
			&j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scrape job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}
