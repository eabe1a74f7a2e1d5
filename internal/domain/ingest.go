package domain

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies one kind of knowledge source a wizard collects.
type SourceType string

const (
	SourceFiles   SourceType = "files"
	SourceLinks   SourceType = "links"
	SourceText    SourceType = "text"
	SourceAudio   SourceType = "audio"
	SourceYouTube SourceType = "youtube"
	SourceWebsite SourceType = "website"
	SourceShopify SourceType = "shopify"
)

// ScrapeJobStatus is the trainer-reported phase of a scrape job.
type ScrapeJobStatus string

const (
	ScrapeRunning   ScrapeJobStatus = "running"
	ScrapeCompleted ScrapeJobStatus = "completed"
	ScrapeFailed    ScrapeJobStatus = "failed"
)

// ScrapeJob tracks an in-flight URL scraping operation. The job id is
// issued by the trainer; progress events are applied in arrival order.
type ScrapeJob struct {
	ID        string          `json:"id"`
	ChatbotID uuid.UUID       `json:"chatbot_id"`
	URL       string          `json:"url"`
	Progress  int             `json:"progress"`
	Status    string          `json:"status"`
	State     ScrapeJobStatus `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Done reports whether the job reached a terminal state.
func (j *ScrapeJob) Done() bool {
	return j.State == ScrapeCompleted || j.State == ScrapeFailed
}

// ScrapeJobRepository persists scrape job progress for the UI stream.
type ScrapeJobRepository interface {
	Create(ctx context.Context, job *ScrapeJob) error
	Get(ctx context.Context, id string) (*ScrapeJob, error)
	UpdateProgress(ctx context.Context, id string, progress int, status string, state ScrapeJobStatus) error
	ListByChatbot(ctx context.Context, chatbotID uuid.UUID) ([]ScrapeJob, error)
}

// FilePayload is one document in a training batch.
type FilePayload struct {
	Name string
	Size int64
	Body io.Reader
}

// TextPayload is a title/content pair submitted for training.
type TextPayload struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
}

// ShopifyPayload identifies a connected store whose product catalog is
// submitted for training. The access token is already decrypted.
type ShopifyPayload struct {
	ShopDomain  string
	AccessToken string
}

// TrainRequest is forwarded to the trainer. Exactly one of ScrapeJobID,
// File, Text, or Shopify must be meaningful.
type TrainRequest struct {
	ChatbotID   uuid.UUID
	ScrapeJobID string
	File        *FilePayload
	Text        *TextPayload
	Shopify     *ShopifyPayload
}

// ScrapeEvent is one progress notification from the trainer's stream.
type ScrapeEvent struct {
	JobID    string `json:"job_id"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
	Done     bool   `json:"done"`
	Failed   bool   `json:"failed"`
}

// Trainer is the external training/ingestion API. Training is
// asynchronous server-side: Train returns once the job is accepted.
type Trainer interface {
	Train(ctx context.Context, req TrainRequest) error
	StartScrape(ctx context.Context, chatbotID uuid.UUID, url string) (string, error)
	ScrapeEvents(ctx context.Context, jobID string) (<-chan ScrapeEvent, error)
	TranscribeAudio(ctx context.Context, filename string, body io.Reader, size int64) (string, error)
	TranscribeYouTube(ctx context.Context, url string) (string, error)
}
