package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/aqibaliakbar/chatbuddy/internal/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestShopifyService(oauth *MockOAuthExchanger, conns *MockShopifyConnectionRepository, selections *MockSelectionRepository) *ShopifyService {
	encryptor, _ := security.NewEncryptor([]byte("12345678901234567890123456789012"))
	return NewShopifyService(oauth, conns, selections, encryptor, new(MockTrainer))
}

func TestShopifyService_GetAuthURL(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	chatbotID := uuid.New()

	t.Run("state carries the selected chatbot id", func(t *testing.T) {
		mockOAuth := new(MockOAuthExchanger)
		mockSelections := new(MockSelectionRepository)
		svc := newTestShopifyService(mockOAuth, new(MockShopifyConnectionRepository), mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockOAuth.On("AuthURL", "acme.myshopify.com", chatbotID.String()).
			Return("https://acme.myshopify.com/admin/oauth/authorize?state="+chatbotID.String(), nil)

		url, err := svc.GetAuthURL(ctx, userID, "acme.myshopify.com")
		assert.NoError(t, err)
		assert.Contains(t, url, chatbotID.String())
	})

	t.Run("requires a selected chatbot", func(t *testing.T) {
		mockOAuth := new(MockOAuthExchanger)
		mockSelections := new(MockSelectionRepository)
		svc := newTestShopifyService(mockOAuth, new(MockShopifyConnectionRepository), mockSelections)

		mockSelections.On("Get", ctx, userID).Return(uuid.Nil, domain.ErrNotFound)

		_, err := svc.GetAuthURL(ctx, userID, "acme.myshopify.com")
		assert.ErrorIs(t, err, domain.ErrNoChatbotSelected)
		mockOAuth.AssertNotCalled(t, "AuthURL", mock.Anything, mock.Anything)
	})
}

func TestShopifyService_ConnectWithCode(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	chatbotID := uuid.New()

	t.Run("persists an encrypted access token", func(t *testing.T) {
		mockOAuth := new(MockOAuthExchanger)
		mockConns := new(MockShopifyConnectionRepository)
		svc := newTestShopifyService(mockOAuth, mockConns, new(MockSelectionRepository))

		mockOAuth.On("ExchangeCode", ctx, "acme.myshopify.com", "auth-code").Return("shpat_plaintext", nil)

		var stored *domain.ShopifyConnection
		mockConns.On("Create", ctx, mock.AnythingOfType("*domain.ShopifyConnection")).Run(func(args mock.Arguments) {
			stored = args.Get(1).(*domain.ShopifyConnection)
		}).Return(nil)

		conn, err := svc.ConnectWithCode(ctx, userID, "acme.myshopify.com", "auth-code", chatbotID.String())
		assert.NoError(t, err)
		assert.Equal(t, chatbotID, conn.ChatbotID)
		assert.Equal(t, "acme.myshopify.com", conn.ShopDomain)
		assert.NotEqual(t, "shpat_plaintext", stored.AccessTokenEncrypted)
		assert.NotContains(t, stored.AccessTokenEncrypted, "shpat_plaintext")
	})

	t.Run("rejects a garbled state parameter", func(t *testing.T) {
		mockOAuth := new(MockOAuthExchanger)
		svc := newTestShopifyService(mockOAuth, new(MockShopifyConnectionRepository), new(MockSelectionRepository))

		_, err := svc.ConnectWithCode(ctx, userID, "acme.myshopify.com", "auth-code", "not-a-uuid")
		assert.Error(t, err)
		mockOAuth.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestShopifyService_Status(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	chatbotID := uuid.New()

	t.Run("no connection reads as disconnected", func(t *testing.T) {
		mockConns := new(MockShopifyConnectionRepository)
		mockSelections := new(MockSelectionRepository)
		svc := newTestShopifyService(new(MockOAuthExchanger), mockConns, mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockConns.On("GetByChatbot", ctx, chatbotID).Return(nil, domain.ErrNotFound)

		status, err := svc.Status(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, domain.ShopifyDisconnected, status.State)
		assert.Empty(t, status.ShopDomain)
	})

	t.Run("existing connection reads as connected", func(t *testing.T) {
		mockConns := new(MockShopifyConnectionRepository)
		mockSelections := new(MockSelectionRepository)
		svc := newTestShopifyService(new(MockOAuthExchanger), mockConns, mockSelections)

		trainedAt := time.Now().Add(-time.Hour)
		conn := &domain.ShopifyConnection{
			ChatbotID:     chatbotID,
			ShopDomain:    "acme.myshopify.com",
			LastTrainedAt: &trainedAt,
		}
		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockConns.On("GetByChatbot", ctx, chatbotID).Return(conn, nil)

		status, err := svc.Status(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, domain.ShopifyConnected, status.State)
		assert.Equal(t, "acme.myshopify.com", status.ShopDomain)
		assert.Equal(t, &trainedAt, status.LastTrainedAt)
	})
}

func TestShopifyService_Disconnect(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	chatbotID := uuid.New()

	t.Run("removes the selected chatbot's connection", func(t *testing.T) {
		mockConns := new(MockShopifyConnectionRepository)
		mockSelections := new(MockSelectionRepository)
		svc := newTestShopifyService(new(MockOAuthExchanger), mockConns, mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockConns.On("Delete", ctx, chatbotID).Return(nil)

		assert.NoError(t, svc.Disconnect(ctx, userID))
		mockConns.AssertExpectations(t)
	})
}

func TestShopifyService_AuthorizingState(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	chatbotID := uuid.New()

	t.Run("started OAuth flow reads as authorizing", func(t *testing.T) {
		mockOAuth := new(MockOAuthExchanger)
		mockConns := new(MockShopifyConnectionRepository)
		mockSelections := new(MockSelectionRepository)
		svc := newTestShopifyService(mockOAuth, mockConns, mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockOAuth.On("AuthURL", "acme.myshopify.com", chatbotID.String()).Return("https://acme.myshopify.com/admin/oauth/authorize", nil)
		mockConns.On("GetByChatbot", ctx, chatbotID).Return(nil, domain.ErrNotFound)

		_, err := svc.GetAuthURL(ctx, userID, "acme.myshopify.com")
		assert.NoError(t, err)

		status, err := svc.Status(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, domain.ShopifyAuthorizing, status.State)
	})

	t.Run("completing the flow leaves authorizing behind", func(t *testing.T) {
		mockOAuth := new(MockOAuthExchanger)
		mockConns := new(MockShopifyConnectionRepository)
		mockSelections := new(MockSelectionRepository)
		svc := newTestShopifyService(mockOAuth, mockConns, mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockOAuth.On("AuthURL", "acme.myshopify.com", chatbotID.String()).Return("https://acme.myshopify.com/admin/oauth/authorize", nil)
		mockOAuth.On("ExchangeCode", ctx, "acme.myshopify.com", "auth-code").Return("shpat_plaintext", nil)
		mockConns.On("Create", ctx, mock.AnythingOfType("*domain.ShopifyConnection")).Return(nil)
		mockConns.On("GetByChatbot", ctx, chatbotID).Return(&domain.ShopifyConnection{
			ChatbotID:  chatbotID,
			ShopDomain: "acme.myshopify.com",
		}, nil)

		_, err := svc.GetAuthURL(ctx, userID, "acme.myshopify.com")
		assert.NoError(t, err)
		_, err = svc.ConnectWithCode(ctx, userID, "acme.myshopify.com", "auth-code", chatbotID.String())
		assert.NoError(t, err)

		status, err := svc.Status(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, domain.ShopifyConnected, status.State)
	})

	t.Run("abandoned flow decays back to disconnected", func(t *testing.T) {
		mockConns := new(MockShopifyConnectionRepository)
		mockSelections := new(MockSelectionRepository)
		svc := newTestShopifyService(new(MockOAuthExchanger), mockConns, mockSelections)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockConns.On("GetByChatbot", ctx, chatbotID).Return(nil, domain.ErrNotFound)

		svc.mu.Lock()
		svc.pending[chatbotID] = time.Now().Add(-authorizingWindow - time.Minute)
		svc.mu.Unlock()

		status, err := svc.Status(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, domain.ShopifyDisconnected, status.State)
	})
}

func TestShopifyService_TrainProducts(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	chatbotID := uuid.New()

	t.Run("trains the store catalog and records the run", func(t *testing.T) {
		encryptor, _ := security.NewEncryptor([]byte("12345678901234567890123456789012"))
		encrypted, err := encryptor.EncryptString("shpat_plaintext")
		assert.NoError(t, err)

		mockConns := new(MockShopifyConnectionRepository)
		mockSelections := new(MockSelectionRepository)
		mockTrainer := new(MockTrainer)
		svc := NewShopifyService(new(MockOAuthExchanger), mockConns, mockSelections, encryptor, mockTrainer)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockConns.On("GetByChatbot", ctx, chatbotID).Return(&domain.ShopifyConnection{
			ChatbotID:            chatbotID,
			ShopDomain:           "acme.myshopify.com",
			AccessTokenEncrypted: encrypted,
		}, nil)

		var trained domain.TrainRequest
		mockTrainer.On("Train", ctx, mock.AnythingOfType("domain.TrainRequest")).Run(func(args mock.Arguments) {
			trained = args.Get(1).(domain.TrainRequest)
		}).Return(nil)
		mockConns.On("Touch", ctx, chatbotID, mock.AnythingOfType("time.Time")).Return(nil)

		assert.NoError(t, svc.TrainProducts(ctx, userID))
		assert.Equal(t, chatbotID, trained.ChatbotID)
		if assert.NotNil(t, trained.Shopify) {
			assert.Equal(t, "acme.myshopify.com", trained.Shopify.ShopDomain)
			assert.Equal(t, "shpat_plaintext", trained.Shopify.AccessToken)
		}
		mockConns.AssertExpectations(t)
	})

	t.Run("requires a connected store", func(t *testing.T) {
		mockConns := new(MockShopifyConnectionRepository)
		mockSelections := new(MockSelectionRepository)
		mockTrainer := new(MockTrainer)
		encryptor, _ := security.NewEncryptor([]byte("12345678901234567890123456789012"))
		svc := NewShopifyService(new(MockOAuthExchanger), mockConns, mockSelections, encryptor, mockTrainer)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockConns.On("GetByChatbot", ctx, chatbotID).Return(nil, domain.ErrNotFound)

		err := svc.TrainProducts(ctx, userID)
		assert.Error(t, err)
		mockTrainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
		mockConns.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a failed training run is not recorded", func(t *testing.T) {
		encryptor, _ := security.NewEncryptor([]byte("12345678901234567890123456789012"))
		encrypted, err := encryptor.EncryptString("shpat_plaintext")
		assert.NoError(t, err)

		mockConns := new(MockShopifyConnectionRepository)
		mockSelections := new(MockSelectionRepository)
		mockTrainer := new(MockTrainer)
		svc := NewShopifyService(new(MockOAuthExchanger), mockConns, mockSelections, encryptor, mockTrainer)

		mockSelections.On("Get", ctx, userID).Return(chatbotID, nil)
		mockConns.On("GetByChatbot", ctx, chatbotID).Return(&domain.ShopifyConnection{
			ChatbotID:            chatbotID,
			ShopDomain:           "acme.myshopify.com",
			AccessTokenEncrypted: encrypted,
		}, nil)
		mockTrainer.On("Train", ctx, mock.AnythingOfType("domain.TrainRequest")).Return(errors.New("trainer unavailable"))

		err = svc.TrainProducts(ctx, userID)
		assert.Error(t, err)
		mockConns.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything)
	})
}
