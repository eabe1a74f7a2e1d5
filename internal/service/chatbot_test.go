package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestChatbotService(backend *MockAuthBackend, trainer *MockTrainer, jobs *MockScrapeJobRepository, selections *MockSelectionRepository) *ChatbotService {
	return NewChatbotService(backend, trainer, jobs, selections, 10, 100<<20)
}

func TestChatbotService_SelectChatbot(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	chatbotID := uuid.New()

	t.Run("success", func(t *testing.T) {
		mockBackend := new(MockAuthBackend)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(mockBackend, new(MockTrainer), new(MockScrapeJobRepository), mockSelections)

		bot := &domain.Chatbot{ID: chatbotID, OwnerID: userID, Name: "Support"}
		mockBackend.On("GetChatbot", ctx, chatbotID).Return(bot, nil)
		mockSelections.On("Set", ctx, userID, chatbotID).Return(nil)

		err := svc.SelectChatbot(ctx, userID, chatbotID)
		assert.NoError(t, err)
		mockSelections.AssertExpectations(t)
	})

	t.Run("rejects chatbot owned by another account", func(t *testing.T) {
		mockBackend := new(MockAuthBackend)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(mockBackend, new(MockTrainer), new(MockScrapeJobRepository), mockSelections)

		bot := &domain.Chatbot{ID: chatbotID, OwnerID: uuid.New(), Name: "Someone else's"}
		mockBackend.On("GetChatbot", ctx, chatbotID).Return(bot, nil)

		err := svc.SelectChatbot(ctx, userID, chatbotID)
		assert.Error(t, err)
		mockSelections.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestChatbotService_TrainChatbot(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	chatbotID := uuid.New()

	t.Run("no selection fails before any network call", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), mockSelections)

		mockSelections.On("Get", ctx, userID).Return(uuid.Nil, domain.ErrNotFound)

		err := svc.TrainChatbot(ctx, userID, "job-1", nil, nil)
		assert.ErrorIs(t, err, domain.ErrNoChatbotSelected)
		mockTrainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
	})

	t.Run("rejects empty request without a network call", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)

		err := svc.TrainChatbot(ctx, userID, "", nil, nil)
		assert.Error(t, err)
		mockTrainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
	})

	t.Run("rejects ambiguous request with two payloads", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)

		text := &domain.TextPayload{Title: "FAQ", Content: "Hello"}
		err := svc.TrainChatbot(ctx, userID, "job-1", nil, text)
		assert.Error(t, err)
		mockTrainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
	})

	t.Run("text training requires title and content", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)

		err := svc.TrainChatbot(ctx, userID, "", nil, &domain.TextPayload{Title: "FAQ"})
		assert.Error(t, err)
		mockTrainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
	})

	t.Run("scrape job training clears the scanned set", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), mockSelections)

		svc.addScanned(userID, "https://example.com/docs")
		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockTrainer.On("Train", ctx, mock.AnythingOfType("domain.TrainRequest")).Return(nil)

		err := svc.TrainChatbot(ctx, userID, "job-1", nil, nil)
		assert.NoError(t, err)
		assert.Empty(t, svc.ScannedURLs(userID))
	})
}

func TestChatbotService_TrainFiles(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	chatbotID := uuid.New()

	batch := func(names ...string) []domain.FilePayload {
		files := make([]domain.FilePayload, 0, len(names))
		for _, n := range names {
			files = append(files, domain.FilePayload{Name: n, Size: 1024, Body: strings.NewReader("doc")})
		}
		return files
	}

	t.Run("trains strictly sequentially and reports all trained", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockTrainer.On("Train", ctx, mock.AnythingOfType("domain.TrainRequest")).Return(nil).Times(3)

		var progress []int
		trained, err := svc.TrainFiles(ctx, userID, batch("a.pdf", "b.txt", "c.md"), func(done, total int) {
			progress = append(progress, done)
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, trained)
		assert.Equal(t, []int{1, 2, 3}, progress)
		mockTrainer.AssertExpectations(t)
	})

	t.Run("mid-batch failure reports exact trained count", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockTrainer.On("Train", ctx, mock.AnythingOfType("domain.TrainRequest")).Return(nil).Twice()
		mockTrainer.On("Train", ctx, mock.AnythingOfType("domain.TrainRequest")).Return(errors.New("trainer rejected file")).Once()

		trained, err := svc.TrainFiles(ctx, userID, batch("a.pdf", "b.txt", "c.md"), nil)
		assert.Error(t, err)
		assert.Equal(t, 2, trained)
		assert.Contains(t, err.Error(), `"c.md"`)
		assert.Contains(t, err.Error(), "2 of 3 trained")
		// The failing file stops the batch; nothing after it is sent.
		mockTrainer.AssertNumberOfCalls(t, "Train", 3)
	})

	t.Run("oversized batch fails upfront with zero trained", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)

		names := make([]string, 11)
		for i := range names {
			names[i] = "doc.pdf"
		}
		trained, err := svc.TrainFiles(ctx, userID, batch(names...), nil)
		assert.Error(t, err)
		assert.Zero(t, trained)
		mockTrainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
	})

	t.Run("unsupported extension fails upfront", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)

		trained, err := svc.TrainFiles(ctx, userID, batch("a.pdf", "malware.exe"), nil)
		assert.Error(t, err)
		assert.Zero(t, trained)
		mockTrainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
	})
}

func TestChatbotService_ScrapeURL(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	chatbotID := uuid.New()

	t.Run("rejects non-http schemes before any network call", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)

		for _, raw := range []string{"ftp://example.com", "javascript:alert(1)", "not a url"} {
			job, err := svc.ScrapeURL(ctx, userID, raw)
			assert.Error(t, err)
			assert.Nil(t, job)
		}
		mockTrainer.AssertNotCalled(t, "StartScrape", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("records the job and tracks the URL locally", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		mockJobs := new(MockScrapeJobRepository)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, mockJobs, mockSelections)

		events := make(chan domain.ScrapeEvent)
		close(events)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockTrainer.On("StartScrape", ctx, chatbotID, "https://example.com/docs").Return("job-42", nil)
		mockJobs.On("Create", ctx, mock.AnythingOfType("*domain.ScrapeJob")).Return(nil)
		mockTrainer.On("ScrapeEvents", mock.Anything, "job-42").Return((<-chan domain.ScrapeEvent)(events), nil)

		job, err := svc.ScrapeURL(ctx, userID, "https://example.com/docs")
		assert.NoError(t, err)
		assert.Equal(t, "job-42", job.ID)
		assert.Equal(t, domain.ScrapeRunning, job.State)
		assert.Equal(t, []string{"https://example.com/docs"}, svc.ScannedURLs(userID))
	})
}

func TestChatbotService_RemoveURL(t *testing.T) {
	userID := uuid.New()

	t.Run("removal is local and keeps the rest sorted", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), new(MockSelectionRepository))

		svc.addScanned(userID, "https://example.com/b")
		svc.addScanned(userID, "https://example.com/a")
		svc.addScanned(userID, "https://example.com/c")

		svc.RemoveURL(userID, "https://example.com/b")

		assert.Equal(t, []string{"https://example.com/a", "https://example.com/c"}, svc.ScannedURLs(userID))
		mockTrainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
		mockTrainer.AssertNotCalled(t, "StartScrape", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("removing an unknown URL is a no-op", func(t *testing.T) {
		svc := newTestChatbotService(new(MockAuthBackend), new(MockTrainer), new(MockScrapeJobRepository), new(MockSelectionRepository))
		svc.RemoveURL(userID, "https://example.com/never-added")
		assert.Empty(t, svc.ScannedURLs(userID))
	})
}

func TestChatbotService_GenerateTranscript(t *testing.T) {
	ctx := context.Background()

	t.Run("oversized audio fails before upload", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), new(MockSelectionRepository))

		_, err := svc.GenerateTranscript(ctx, "talk.mp3", strings.NewReader(""), 101<<20)
		assert.Error(t, err)
		mockTrainer.AssertNotCalled(t, "TranscribeAudio", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unsupported format fails before upload", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), new(MockSelectionRepository))

		_, err := svc.GenerateTranscript(ctx, "talk.mov", strings.NewReader(""), 1024)
		assert.Error(t, err)
		mockTrainer.AssertNotCalled(t, "TranscribeAudio", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("valid audio reaches the trainer", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), new(MockSelectionRepository))

		body := strings.NewReader("audio-bytes")
		mockTrainer.On("TranscribeAudio", ctx, "talk.mp3", body, int64(1024)).Return("the transcript", nil)

		text, err := svc.GenerateTranscript(ctx, "talk.mp3", body, 1024)
		assert.NoError(t, err)
		assert.Equal(t, "the transcript", text)
	})
}

func TestChatbotService_GenerateYouTubeTranscript(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-youtube hosts", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), new(MockSelectionRepository))

		_, err := svc.GenerateYouTubeTranscript(ctx, "https://vimeo.com/12345")
		assert.Error(t, err)
		mockTrainer.AssertNotCalled(t, "TranscribeYouTube", mock.Anything, mock.Anything)
	})

	t.Run("accepts youtu.be short links", func(t *testing.T) {
		mockTrainer := new(MockTrainer)
		svc := newTestChatbotService(new(MockAuthBackend), mockTrainer, new(MockScrapeJobRepository), new(MockSelectionRepository))

		mockTrainer.On("TranscribeYouTube", ctx, "https://youtu.be/dQw4w9WgXcQ").Return("never gonna", nil)

		text, err := svc.GenerateYouTubeTranscript(ctx, "https://youtu.be/dQw4w9WgXcQ")
		assert.NoError(t, err)
		assert.Equal(t, "never gonna", text)
	})
}

func TestChatbotService_GetChatbots(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	chatbotID := uuid.New()

	t.Run("clears a selection pointing at a vanished chatbot", func(t *testing.T) {
		mockBackend := new(MockAuthBackend)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(mockBackend, new(MockTrainer), new(MockScrapeJobRepository), mockSelections)

		remaining := []domain.Chatbot{{ID: uuid.New(), OwnerID: userID, Name: "Survivor"}}
		mockBackend.On("ListChatbots", ctx, userID).Return(remaining, nil)
		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockSelections.On("Clear", ctx, userID).Return(nil)

		bots, err := svc.GetChatbots(ctx, userID)
		assert.NoError(t, err)
		assert.Len(t, bots, 1)
		mockSelections.AssertExpectations(t)
	})

	t.Run("keeps a selection still present in the list", func(t *testing.T) {
		mockBackend := new(MockAuthBackend)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(mockBackend, new(MockTrainer), new(MockScrapeJobRepository), mockSelections)

		bots := []domain.Chatbot{{ID: chatbotID, OwnerID: userID, Name: "Support"}}
		mockBackend.On("ListChatbots", ctx, userID).Return(bots, nil)
		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)

		_, err := svc.GetChatbots(ctx, userID)
		assert.NoError(t, err)
		mockSelections.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})

	t.Run("no selection leaves nothing to prune", func(t *testing.T) {
		mockBackend := new(MockAuthBackend)
		mockSelections := new(MockSelectionRepository)
		svc := newTestChatbotService(mockBackend, new(MockTrainer), new(MockScrapeJobRepository), mockSelections)

		mockBackend.On("ListChatbots", ctx, userID).Return([]domain.Chatbot{}, nil)
		mockSelections.On("Get", ctx, userID).Return(uuid.Nil, domain.ErrNotFound)

		_, err := svc.GetChatbots(ctx, userID)
		assert.NoError(t, err)
		mockSelections.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})
}
