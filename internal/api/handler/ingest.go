package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/api/middleware"
	"github.com/aqibaliakbar/chatbuddy/internal/api/response"
	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/aqibaliakbar/chatbuddy/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// multipartMemoryLimit caps the in-memory portion of multipart parsing.
const multipartMemoryLimit = 32 << 20

// IngestHandler handles the knowledge-ingestion wizard endpoints
type IngestHandler struct {
	chatbotService *service.ChatbotService
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(chatbotService *service.ChatbotService) *IngestHandler {
	return &IngestHandler{chatbotService: chatbotService}
}

func ingestError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, domain.ErrNoChatbotSelected) {
		response.BadRequest(w, err.Error())
		return
	}
	log.Error().Err(err).Msg(fallback)
	response.BadRequest(w, fallback)
}

// TrainFiles trains a batch of uploaded documents sequentially
func (h *IngestHandler) TrainFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	headers := r.MultipartForm.File["files"]
	files := make([]domain.FilePayload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(w, fmt.Sprintf("could not read file %q", fh.Filename))
			return
		}
		defer f.Close()
		files = append(files, domain.FilePayload{Name: fh.Filename, Size: fh.Size, Body: f})
	}

	trained, err := h.chatbotService.TrainFiles(r.Context(), userID, files, func(done, total int) {
		log.Info().Int("trained", done).Int("total", total).Msg("Training batch progress")
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoChatbotSelected) {
			response.BadRequest(w, err.Error())
			return
		}
		log.Error().Err(err).Int("trained", trained).Msg("Batch training stopped")
		response.Error(w, http.StatusBadGateway, map[string]any{
			"message": err.Error(),
			"trained": trained,
			"total":   len(files),
		})
		return
	}

	response.OK(w, map[string]any{
		"trained": trained,
		"total":   len(files),
	})
}

// Train submits a scrape job or a title/content pair for training
func (h *IngestHandler) Train(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input struct {
		ScrapeJobID string `json:"scrape_job_id"`
		Title       string `json:"title"`
		Content     string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	var text *domain.TextPayload
	if input.Title != "" || input.Content != "" {
		text = &domain.TextPayload{Title: input.Title, Content: input.Content}
	}

	if err := h.chatbotService.TrainChatbot(r.Context(), userID, input.ScrapeJobID, nil, text); err != nil {
		ingestError(w, err, "training submission failed")
		return
	}
	response.OK(w, map[string]string{"message": "training started"})
}

// ScrapeURL starts a scrape job for a URL
func (h *IngestHandler) ScrapeURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input struct {
		URL string `json:"url" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	job, err := h.chatbotService.ScrapeURL(r.Context(), userID, input.URL)
	if err != nil {
		ingestError(w, err, "could not start scraping")
		return
	}
	response.Created(w, job)
}

// ScannedURLs lists the locally tracked scanned URLs
func (h *IngestHandler) ScannedURLs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	response.OK(w, h.chatbotService.ScannedURLs(userID))
}

// RemoveURL retracts a URL from the scanned set without contacting the
// trainer.
func (h *IngestHandler) RemoveURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input struct {
		URL string `json:"url" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	h.chatbotService.RemoveURL(userID, input.URL)
	response.OK(w, h.chatbotService.ScannedURLs(userID))
}

// ScrapeJob returns the current state of a scrape job
func (h *IngestHandler) ScrapeJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := h.chatbotService.ScrapeJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "scrape job not found")
			return
		}
		response.InternalError(w, "could not load scrape job")
		return
	}
	response.OK(w, job)
}

// ScrapeEvents streams scrape progress as server-sent events until the
// job terminates or the client disconnects.
func (h *IngestHandler) ScrapeEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastProgress := -1
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			job, err := h.chatbotService.ScrapeJob(r.Context(), jobID)
			if err != nil {
				fmt.Fprintf(w, "event: error\ndata: {\"message\":\"scrape job unavailable\"}\n\n")
				flusher.Flush()
				return
			}
			if job.Progress != lastProgress || job.Done() {
				payload, _ := json.Marshal(job)
				fmt.Fprintf(w, "data: %s\n\n", payload)
				flusher.Flush()
				lastProgress = job.Progress
			}
			if job.Done() {
				return
			}
		}
	}
}

// AudioTranscript transcribes an uploaded audio file
func (h *IngestHandler) AudioTranscript(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close()

	transcript, err := h.chatbotService.GenerateTranscript(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	response.OK(w, map[string]string{"transcript": transcript})
}

// YouTubeTranscript fetches the transcript for a YouTube URL
func (h *IngestHandler) YouTubeTranscript(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input struct {
		URL string `json:"url" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	transcript, err := h.chatbotService.GenerateYouTubeTranscript(r.Context(), input.URL)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	response.OK(w, map[string]string{"transcript": transcript})
}
