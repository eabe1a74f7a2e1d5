package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/aqibaliakbar/chatbuddy/internal/ingest"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// scrapeWatchBudget bounds the background progress consumer for one
// scrape job.
const scrapeWatchBudget = 30 * time.Minute

// ChatbotService is the single source of truth for the chatbot list
// and for driving knowledge ingestion against the trainer.
type ChatbotService struct {
	backend    domain.AuthBackend
	trainer    domain.Trainer
	jobs       domain.ScrapeJobRepository
	selections domain.SelectionRepository

	maxBatchFiles int
	maxAudioBytes int64

	// scanned is the per-user set of URLs submitted for scraping but
	// not yet trained. Purely local: removal never contacts the
	// trainer.
	mu      sync.Mutex
	scanned map[uuid.UUID]map[string]struct{}
}

// NewChatbotService creates a new chatbot service
func NewChatbotService(
	backend domain.AuthBackend,
	trainer domain.Trainer,
	jobs domain.ScrapeJobRepository,
	selections domain.SelectionRepository,
	maxBatchFiles int,
	maxAudioBytes int64,
) *ChatbotService {
	return &ChatbotService{
		backend:       backend,
		trainer:       trainer,
		jobs:          jobs,
		selections:    selections,
		maxBatchFiles: maxBatchFiles,
		maxAudioBytes: maxAudioBytes,
		scanned:       make(map[uuid.UUID]map[string]struct{}),
	}
}

// GetChatbots fetches and replaces the chatbot list for an account.
// Idempotent; called after every successful training action. A
// selection pointing at a chatbot no longer in the list is cleared so
// later ingestion calls fail with a no-selection error instead of
// targeting a deleted chatbot.
func (s *ChatbotService) GetChatbots(ctx context.Context, userID uuid.UUID) ([]domain.Chatbot, error) {
	bots, err := s.backend.ListChatbots(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chatbots: %w", err)
	}
	s.pruneSelection(ctx, userID, bots)
	return bots, nil
}

func (s *ChatbotService) pruneSelection(ctx context.Context, userID uuid.UUID, bots []domain.Chatbot) {
	selected, err := s.selections.Get(ctx, userID)
	if err != nil {
		return
	}
	for _, bot := range bots {
		if bot.ID == selected {
			return
		}
	}
	if err := s.selections.Clear(ctx, userID); err != nil {
		log.Warn().Err(err).Str("chatbot_id", selected.String()).Msg("Failed to clear stale selection")
	}
}

// SelectChatbot marks one chatbot as the account's active selection
// after verifying ownership.
func (s *ChatbotService) SelectChatbot(ctx context.Context, userID, chatbotID uuid.UUID) error {
	bot, err := s.backend.GetChatbot(ctx, chatbotID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("chatbot %s not found", chatbotID)
		}
		return fmt.Errorf("failed to fetch chatbot: %w", err)
	}
	if bot.OwnerID != userID {
		return fmt.Errorf("chatbot %s is not owned by this account", chatbotID)
	}
	return s.selections.Set(ctx, userID, chatbotID)
}

// SelectedChatbot returns the account's selected chatbot id, or
// domain.ErrNoChatbotSelected.
func (s *ChatbotService) SelectedChatbot(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, err := s.selections.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, domain.ErrNoChatbotSelected
		}
		return uuid.Nil, fmt.Errorf("failed to load selection: %w", err)
	}
	return id, nil
}

// TrainChatbot submits one knowledge source for the selected chatbot.
// Exactly one of scrapeJobID, file, or text must be provided; the
// operation fails fast, without a network call, otherwise. The trainer
// trains asynchronously — this returns once the job is accepted.
func (s *ChatbotService) TrainChatbot(ctx context.Context, userID uuid.UUID, scrapeJobID string, file *domain.FilePayload, text *domain.TextPayload) error {
	chatbotID, err := s.SelectedChatbot(ctx, userID)
	if err != nil {
		return err
	}

	payloads := 0
	if scrapeJobID != "" {
		payloads++
	}
	if file != nil {
		payloads++
	}
	if text != nil {
		if text.Title == "" || text.Content == "" {
			return fmt.Errorf("text training requires both a title and content")
		}
		payloads++
	}
	if payloads == 0 {
		return fmt.Errorf("nothing to train: provide a scrape job, a file, or text content")
	}
	if payloads > 1 {
		return fmt.Errorf("ambiguous training request: provide exactly one payload")
	}

	req := domain.TrainRequest{
		ChatbotID:   chatbotID,
		ScrapeJobID: scrapeJobID,
		File:        file,
		Text:        text,
	}
	if err := s.trainer.Train(ctx, req); err != nil {
		return fmt.Errorf("training submission failed: %w", err)
	}

	if scrapeJobID != "" {
		s.clearScanned(userID)
	}
	return nil
}

// TrainFiles trains a batch of documents strictly sequentially, one
// file in flight at a time, so a mid-batch failure reports the exact
// count of already-trained files. onProgress is invoked after each
// completed file.
func (s *ChatbotService) TrainFiles(ctx context.Context, userID uuid.UUID, files []domain.FilePayload, onProgress func(trained, total int)) (int, error) {
	chatbotID, err := s.SelectedChatbot(ctx, userID)
	if err != nil {
		return 0, err
	}

	desc, _ := ingest.ForType(domain.SourceFiles)
	if s.maxBatchFiles > 0 {
		desc.MaxFiles = s.maxBatchFiles
	}
	if err := desc.ValidateBatch(len(files)); err != nil {
		return 0, err
	}
	for _, f := range files {
		if err := desc.ValidateFile(f.Name, f.Size); err != nil {
			return 0, err
		}
	}

	trained := 0
	for i := range files {
		f := files[i]
		req := domain.TrainRequest{ChatbotID: chatbotID, File: &f}
		if err := s.trainer.Train(ctx, req); err != nil {
			return trained, fmt.Errorf("failed to train %q (%d of %d trained): %w", f.Name, trained, len(files), err)
		}
		trained++
		if onProgress != nil {
			onProgress(trained, len(files))
		}
	}
	return trained, nil
}

// ScrapeURL validates the URL, starts a scrape job with the trainer,
// records it, and consumes progress events in the background in
// arrival order.
func (s *ChatbotService) ScrapeURL(ctx context.Context, userID uuid.UUID, rawURL string) (*domain.ScrapeJob, error) {
	chatbotID, err := s.SelectedChatbot(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := ingest.ValidateScrapeURL(rawURL); err != nil {
		return nil, err
	}

	jobID, err := s.trainer.StartScrape(ctx, chatbotID, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to start scraping: %w", err)
	}

	now := time.Now()
	job := &domain.ScrapeJob{
		ID:        jobID,
		ChatbotID: chatbotID,
		URL:       rawURL,
		Progress:  0,
		Status:    "starting",
		State:     domain.ScrapeRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record scrape job: %w", err)
	}

	s.addScanned(userID, rawURL)

	go s.watchScrape(jobID)

	return job, nil
}

// watchScrape applies trainer progress events to the job record until
// the job terminates or the budget runs out.
func (s *ChatbotService) watchScrape(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), scrapeWatchBudget)
	defer cancel()

	events, err := s.trainer.ScrapeEvents(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to subscribe to scrape progress")
		if uerr := s.jobs.UpdateProgress(ctx, jobID, 0, "progress stream unavailable", domain.ScrapeFailed); uerr != nil {
			log.Error().Err(uerr).Str("job_id", jobID).Msg("Failed to mark scrape job failed")
		}
		return
	}

	for ev := range events {
		state := domain.ScrapeRunning
		if ev.Failed {
			state = domain.ScrapeFailed
		} else if ev.Done {
			state = domain.ScrapeCompleted
		}
		if err := s.jobs.UpdateProgress(ctx, jobID, ev.Progress, ev.Status, state); err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("Failed to record scrape progress")
		}
	}
}

// ScrapeJob returns the current state of a scrape job
func (s *ChatbotService) ScrapeJob(ctx context.Context, jobID string) (*domain.ScrapeJob, error) {
	return s.jobs.Get(ctx, jobID)
}

// ScannedURLs lists the account's locally tracked scanned URLs
func (s *ChatbotService) ScannedURLs(userID uuid.UUID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make([]string, 0, len(s.scanned[userID]))
	for u := range s.scanned[userID] {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// RemoveURL retracts a URL from the scanned set before training.
// Purely local; the trainer is not contacted.
func (s *ChatbotService) RemoveURL(userID uuid.UUID, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scanned[userID], url)
}

func (s *ChatbotService) addScanned(userID uuid.UUID, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanned[userID] == nil {
		s.scanned[userID] = make(map[string]struct{})
	}
	s.scanned[userID][url] = struct{}{}
}

func (s *ChatbotService) clearScanned(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scanned, userID)
}

// GenerateTranscript submits an audio file for transcription and
// returns the transcript text. The endpoint's error is surfaced
// verbatim.
func (s *ChatbotService) GenerateTranscript(ctx context.Context, filename string, body io.Reader, size int64) (string, error) {
	if s.maxAudioBytes > 0 && size > s.maxAudioBytes {
		return "", fmt.Errorf("audio file exceeds the %dMB limit", s.maxAudioBytes>>20)
	}
	desc, _ := ingest.ForType(domain.SourceAudio)
	if err := desc.ValidateFile(filename, size); err != nil {
		return "", err
	}
	return s.trainer.TranscribeAudio(ctx, filename, body, size)
}

// GenerateYouTubeTranscript fetches the transcript for a YouTube URL
func (s *ChatbotService) GenerateYouTubeTranscript(ctx context.Context, url string) (string, error) {
	if err := ingest.ValidateYouTubeURL(url); err != nil {
		return "", err
	}
	return s.trainer.TranscribeYouTube(ctx, url)
}
