package service

import (
	"context"
	"io"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockAuthBackend mocks the AuthBackend interface
type MockAuthBackend struct {
	mock.Mock
}

func (m *MockAuthBackend) SignUp(ctx context.Context, input domain.SignUpInput) (*domain.Session, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockAuthBackend) SignIn(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockAuthBackend) GoogleAuthURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockAuthBackend) ExchangeGoogleCode(ctx context.Context, code string) (*domain.Session, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockAuthBackend) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockAuthBackend) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockAuthBackend) ResetPassword(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAuthBackend) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	args := m.Called(ctx, accessToken, newPassword)
	return args.Error(0)
}

func (m *MockAuthBackend) GetSession(ctx context.Context, accessToken string) (*domain.Session, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockAuthBackend) ListChatbots(ctx context.Context, ownerID uuid.UUID) ([]domain.Chatbot, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chatbot), args.Error(1)
}

func (m *MockAuthBackend) GetChatbot(ctx context.Context, id uuid.UUID) (*domain.Chatbot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chatbot), args.Error(1)
}

// MockTrainer mocks the Trainer interface
type MockTrainer struct {
	mock.Mock
}

func (m *MockTrainer) Train(ctx context.Context, req domain.TrainRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockTrainer) StartScrape(ctx context.Context, chatbotID uuid.UUID, url string) (string, error) {
	args := m.Called(ctx, chatbotID, url)
	return args.String(0), args.Error(1)
}

func (m *MockTrainer) ScrapeEvents(ctx context.Context, jobID string) (<-chan domain.ScrapeEvent, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan domain.ScrapeEvent), args.Error(1)
}

func (m *MockTrainer) TranscribeAudio(ctx context.Context, filename string, body io.Reader, size int64) (string, error) {
	args := m.Called(ctx, filename, body, size)
	return args.String(0), args.Error(1)
}

func (m *MockTrainer) TranscribeYouTube(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

// MockScrapeJobRepository mocks the ScrapeJobRepository interface
type MockScrapeJobRepository struct {
	mock.Mock
}

func (m *MockScrapeJobRepository) Create(ctx context.Context, job *domain.ScrapeJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockScrapeJobRepository) Get(ctx context.Context, id string) (*domain.ScrapeJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScrapeJob), args.Error(1)
}

func (m *MockScrapeJobRepository) UpdateProgress(ctx context.Context, id string, progress int, status string, state domain.ScrapeJobStatus) error {
	args := m.Called(ctx, id, progress, status, state)
	return args.Error(0)
}

func (m *MockScrapeJobRepository) ListByChatbot(ctx context.Context, chatbotID uuid.UUID) ([]domain.ScrapeJob, error) {
	args := m.Called(ctx, chatbotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScrapeJob), args.Error(1)
}

// MockSelectionRepository mocks the SelectionRepository interface
type MockSelectionRepository struct {
	mock.Mock
}

func (m *MockSelectionRepository) Set(ctx context.Context, userID, chatbotID uuid.UUID) error {
	args := m.Called(ctx, userID, chatbotID)
	return args.Error(0)
}

func (m *MockSelectionRepository) Get(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockSelectionRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockAPITokenRepository mocks the APITokenRepository interface
type MockAPITokenRepository struct {
	mock.Mock
}

func (m *MockAPITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAPITokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.APIToken, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIToken), args.Error(1)
}

func (m *MockAPITokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.APIToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.APIToken), args.Error(1)
}

func (m *MockAPITokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockShopifyConnectionRepository mocks the ShopifyConnectionRepository interface
type MockShopifyConnectionRepository struct {
	mock.Mock
}

func (m *MockShopifyConnectionRepository) Create(ctx context.Context, conn *domain.ShopifyConnection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockShopifyConnectionRepository) GetByChatbot(ctx context.Context, chatbotID uuid.UUID) (*domain.ShopifyConnection, error) {
	args := m.Called(ctx, chatbotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShopifyConnection), args.Error(1)
}

func (m *MockShopifyConnectionRepository) Touch(ctx context.Context, chatbotID uuid.UUID, trainedAt time.Time) error {
	args := m.Called(ctx, chatbotID, trainedAt)
	return args.Error(0)
}

func (m *MockShopifyConnectionRepository) Delete(ctx context.Context, chatbotID uuid.UUID) error {
	args := m.Called(ctx, chatbotID)
	return args.Error(0)
}

// MockOAuthExchanger mocks the OAuthExchanger interface
type MockOAuthExchanger struct {
	mock.Mock
}

func (m *MockOAuthExchanger) AuthURL(shop, state string) (string, error) {
	args := m.Called(shop, state)
	return args.String(0), args.Error(1)
}

func (m *MockOAuthExchanger) ExchangeCode(ctx context.Context, shop, code string) (string, error) {
	args := m.Called(ctx, shop, code)
	return args.String(0), args.Error(1)
}
