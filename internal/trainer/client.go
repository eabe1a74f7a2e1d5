// Package trainer is the HTTP client for the external chatbot
// training/ingestion API. Training is asynchronous server-side: the
// client only confirms a job was accepted.
package trainer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/config"
	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Client implements domain.Trainer
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	// streamClient has no overall timeout; progress streams are bounded
	// by the caller's context instead.
	streamClient *http.Client
}

// New creates a new trainer client
func New(cfg config.TrainerConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		client:       &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
	}
}

type trainerError struct {
	Message string `json:"message"`
}

// Train submits one knowledge source for training. The trainer accepts
// file form-data, a scrape-job id, a title/content pair, or a
// connected store's credentials.
func (c *Client) Train(ctx context.Context, req domain.TrainRequest) error {
	switch {
	case req.File != nil:
		return c.trainFile(ctx, req.ChatbotID, req.File)
	case req.ScrapeJobID != "":
		body := map[string]string{
			"chatbot_id":    req.ChatbotID.String(),
			"scrape_job_id": req.ScrapeJobID,
		}
		return c.postJSON(ctx, "/v1/train", body, nil)
	case req.Text != nil:
		body := map[string]string{
			"chatbot_id": req.ChatbotID.String(),
			"title":      req.Text.Title,
			"content":    req.Text.Content,
		}
		return c.postJSON(ctx, "/v1/train", body, nil)
	case req.Shopify != nil:
		body := map[string]string{
			"chatbot_id":   req.ChatbotID.String(),
			"shop_domain":  req.Shopify.ShopDomain,
			"access_token": req.Shopify.AccessToken,
		}
		return c.postJSON(ctx, "/v1/train", body, nil)
	default:
		return fmt.Errorf("empty training request")
	}
}

func (c *Client) trainFile(ctx context.Context, chatbotID uuid.UUID, file *domain.FilePayload) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("chatbot_id", chatbotID.String()); err != nil {
		return fmt.Errorf("failed to write form field: %w", err)
	}
	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/train", &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// StartScrape submits a URL for scraping and returns the job id
func (c *Client) StartScrape(ctx context.Context, chatbotID uuid.UUID, url string) (string, error) {
	body := map[string]string{
		"chatbot_id": chatbotID.String(),
		"url":        url,
	}
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := c.postJSON(ctx, "/v1/scrape", body, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", fmt.Errorf("trainer returned no job id")
	}
	return out.JobID, nil
}

// ScrapeEvents subscribes to the progress stream for a scrape job. The
// channel is closed when the job reaches a terminal state or the
// context is cancelled. Events are delivered in arrival order.
func (c *Client) ScrapeEvents(ctx context.Context, jobID string) (<-chan domain.ScrapeEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/scrape/"+jobID+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("trainer returned status %d", resp.StatusCode)
	}

	events := make(chan domain.ScrapeEvent)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				continue
			}

			var ev domain.ScrapeEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				log.Warn().Err(err).Str("job_id", jobID).Msg("Skipping malformed scrape event")
				continue
			}
			ev.JobID = jobID

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Done || ev.Failed {
				return
			}
		}
	}()

	return events, nil
}

// TranscribeAudio submits an audio file and returns the transcript text
func (c *Client) TranscribeAudio(ctx context.Context, filename string, body io.Reader, size int64) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transcripts/audio", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var out struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Transcript, nil
}

// TranscribeYouTube fetches the transcript for a YouTube video URL
func (c *Client) TranscribeYouTube(ctx context.Context, url string) (string, error) {
	body := map[string]string{"url": url}
	var out struct {
		Transcript string `json:"transcript"`
	}
	if err := c.postJSON(ctx, "/v1/transcripts/youtube", body, &out); err != nil {
		return "", err
	}
	return out.Transcript, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var apiErr trainerError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Message != "" {
		return fmt.Errorf("trainer returned status %d: %s", resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("trainer returned status %d", resp.StatusCode)
}
