package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/aqibaliakbar/chatbuddy/internal/security"
	"github.com/google/uuid"
)

// authorizingWindow bounds how long a started OAuth flow is reported
// as authorizing before it decays back to disconnected.
const authorizingWindow = 10 * time.Minute

// OAuthExchanger performs the Shopify authorization flow
type OAuthExchanger interface {
	AuthURL(shop, state string) (string, error)
	ExchangeCode(ctx context.Context, shop, code string) (string, error)
}

// ShopifyStatus is returned to the integration wizard.
type ShopifyStatus struct {
	State         domain.ShopifyState `json:"state"`
	ShopDomain    string              `json:"shop_domain,omitempty"`
	LastTrainedAt *time.Time          `json:"last_trained_at,omitempty"`
}

// ShopifyService models the per-chatbot store integration:
// disconnected → authorizing (awaiting OAuth redirect) → connected.
type ShopifyService struct {
	oauth      OAuthExchanger
	conns      domain.ShopifyConnectionRepository
	selections domain.SelectionRepository
	encryptor  *security.Encryptor
	trainer    domain.Trainer

	mu      sync.Mutex
	pending map[uuid.UUID]time.Time
}

// NewShopifyService creates a new Shopify service
func NewShopifyService(
	oauth OAuthExchanger,
	conns domain.ShopifyConnectionRepository,
	selections domain.SelectionRepository,
	encryptor *security.Encryptor,
	trainer domain.Trainer,
) *ShopifyService {
	return &ShopifyService{
		oauth:      oauth,
		conns:      conns,
		selections: selections,
		encryptor:  encryptor,
		trainer:    trainer,
		pending:    make(map[uuid.UUID]time.Time),
	}
}

func (s *ShopifyService) markAuthorizing(chatbotID uuid.UUID) {
	s.mu.Lock()
	s.pending[chatbotID] = time.Now()
	s.mu.Unlock()
}

func (s *ShopifyService) clearAuthorizing(chatbotID uuid.UUID) {
	s.mu.Lock()
	delete(s.pending, chatbotID)
	s.mu.Unlock()
}

func (s *ShopifyService) isAuthorizing(chatbotID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	started, ok := s.pending[chatbotID]
	if !ok {
		return false
	}
	if time.Since(started) > authorizingWindow {
		delete(s.pending, chatbotID)
		return false
	}
	return true
}

func (s *ShopifyService) selectedChatbot(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, err := s.selections.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, domain.ErrNoChatbotSelected
		}
		return uuid.Nil, fmt.Errorf("failed to load selection: %w", err)
	}
	return id, nil
}

// GetAuthURL starts the OAuth flow for the selected chatbot. The state
// parameter carries the chatbot id for the callback.
func (s *ShopifyService) GetAuthURL(ctx context.Context, userID uuid.UUID, shop string) (string, error) {
	chatbotID, err := s.selectedChatbot(ctx, userID)
	if err != nil {
		return "", err
	}
	authURL, err := s.oauth.AuthURL(shop, chatbotID.String())
	if err != nil {
		return "", err
	}
	s.markAuthorizing(chatbotID)
	return authURL, nil
}

// ConnectWithCode exchanges an OAuth callback code for a persisted
// connection scoped to the chatbot carried in state.
func (s *ShopifyService) ConnectWithCode(ctx context.Context, userID uuid.UUID, shop, code, state string) (*domain.ShopifyConnection, error) {
	chatbotID, err := uuid.Parse(state)
	if err != nil {
		return nil, fmt.Errorf("invalid OAuth state: %w", err)
	}

	accessToken, err := s.oauth.ExchangeCode(ctx, shop, code)
	if err != nil {
		return nil, fmt.Errorf("shopify authorization failed: %w", err)
	}

	encrypted, err := s.encryptor.EncryptString(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to protect store credentials: %w", err)
	}

	now := time.Now()
	conn := &domain.ShopifyConnection{
		ID:                   uuid.New(),
		ChatbotID:            chatbotID,
		UserID:               userID,
		ShopDomain:           shop,
		AccessTokenEncrypted: encrypted,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.conns.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to persist connection: %w", err)
	}
	s.clearAuthorizing(chatbotID)
	return conn, nil
}

// Disconnect removes the selected chatbot's store connection. Direct
// and synchronous, no intermediate state.
func (s *ShopifyService) Disconnect(ctx context.Context, userID uuid.UUID) error {
	chatbotID, err := s.selectedChatbot(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.conns.Delete(ctx, chatbotID); err != nil {
		return fmt.Errorf("failed to disconnect store: %w", err)
	}
	s.clearAuthorizing(chatbotID)
	return nil
}

// Status reports the connection state for the selected chatbot
func (s *ShopifyService) Status(ctx context.Context, userID uuid.UUID) (*ShopifyStatus, error) {
	chatbotID, err := s.selectedChatbot(ctx, userID)
	if err != nil {
		return nil, err
	}

	conn, err := s.conns.GetByChatbot(ctx, chatbotID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if s.isAuthorizing(chatbotID) {
				return &ShopifyStatus{State: domain.ShopifyAuthorizing}, nil
			}
			return &ShopifyStatus{State: domain.ShopifyDisconnected}, nil
		}
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}

	return &ShopifyStatus{
		State:         domain.ShopifyConnected,
		ShopDomain:    conn.ShopDomain,
		LastTrainedAt: conn.LastTrainedAt,
	}, nil
}

// TrainProducts submits the connected store's product catalog to the
// trainer, then records the run on the connection.
func (s *ShopifyService) TrainProducts(ctx context.Context, userID uuid.UUID) error {
	chatbotID, err := s.selectedChatbot(ctx, userID)
	if err != nil {
		return err
	}

	conn, err := s.conns.GetByChatbot(ctx, chatbotID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no store connected for this chatbot")
		}
		return fmt.Errorf("failed to load connection: %w", err)
	}

	accessToken, err := s.encryptor.DecryptString(conn.AccessTokenEncrypted)
	if err != nil {
		return fmt.Errorf("failed to read store credentials: %w", err)
	}

	req := domain.TrainRequest{
		ChatbotID: chatbotID,
		Shopify: &domain.ShopifyPayload{
			ShopDomain:  conn.ShopDomain,
			AccessToken: accessToken,
		},
	}
	if err := s.trainer.Train(ctx, req); err != nil {
		return fmt.Errorf("product training failed: %w", err)
	}

	return s.MarkTrained(ctx, chatbotID)
}

// MarkTrained records a successful product training run
func (s *ShopifyService) MarkTrained(ctx context.Context, chatbotID uuid.UUID) error {
	return s.conns.Touch(ctx, chatbotID, time.Now())
}
