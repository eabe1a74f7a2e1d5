// Package backend is the HTTP client for the external
// authentication-and-database service that is the system of record for
// accounts and chatbots.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/config"
	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/google/uuid"
)

// Client implements domain.AuthBackend
type Client struct {
	baseURL           string
	apiKey            string
	googleRedirectURL string
	client            *http.Client
}

// New creates a new auth backend client
func New(cfg config.AuthConfig) *Client {
	return &Client{
		baseURL:           cfg.BackendURL,
		apiKey:            cfg.BackendKey,
		googleRedirectURL: cfg.GoogleRedirectURL,
		client:            &http.Client{Timeout: 30 * time.Second},
	}
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID        string  `json:"id"`
		Email     string  `json:"email"`
		Name      *string `json:"name"`
		AvatarURL *string `json:"avatar_url"`
	} `json:"user"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (r sessionResponse) toSession() (*domain.Session, error) {
	userID, err := uuid.Parse(r.User.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in session: %w", err)
	}
	return &domain.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(r.ExpiresIn) * time.Second),
		User: domain.User{
			ID:        userID,
			Email:     r.User.Email,
			Name:      r.User.Name,
			AvatarURL: r.User.AvatarURL,
		},
	}, nil
}

// SignUp registers a new account
func (c *Client) SignUp(ctx context.Context, input domain.SignUpInput) (*domain.Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", input, &resp); err != nil {
		return nil, err
	}
	return resp.toSession()
}

// SignIn exchanges credentials for a session
func (c *Client) SignIn(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", creds, &resp); err != nil {
		return nil, err
	}
	return resp.toSession()
}

// GoogleAuthURL returns the backend's OAuth authorization URL
func (c *Client) GoogleAuthURL(state string) string {
	q := url.Values{}
	q.Set("provider", "google")
	q.Set("redirect_to", c.googleRedirectURL)
	q.Set("state", state)
	return c.baseURL + "/auth/v1/authorize?" + q.Encode()
}

// ExchangeGoogleCode exchanges an OAuth authorization code for a session
func (c *Client) ExchangeGoogleCode(ctx context.Context, code string) (*domain.Session, error) {
	body := map[string]string{"auth_code": code}
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=pkce", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.toSession()
}

// RefreshSession exchanges a refresh token for fresh session material
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.toSession()
}

// SignOut revokes the backend session
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

// ResetPassword triggers a password recovery email
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/v1/recover", "", body, nil)
}

// UpdatePassword sets a new password for the session's account
func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	body := map[string]string{"password": newPassword}
	return c.do(ctx, http.MethodPut, "/auth/v1/user", accessToken, body, nil)
}

// GetSession fetches the session for an access token, or nil if the
// token no longer maps to one.
func (c *Client) GetSession(ctx context.Context, accessToken string) (*domain.Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, err
	}
	if resp.User.ID == "" {
		return nil, nil
	}
	resp.AccessToken = accessToken
	return resp.toSession()
}

// ListChatbots fetches all chatbots owned by an account
func (c *Client) ListChatbots(ctx context.Context, ownerID uuid.UUID) ([]domain.Chatbot, error) {
	path := "/rest/v1/chatbots?owner_id=" + url.QueryEscape(ownerID.String())
	var bots []domain.Chatbot
	if err := c.do(ctx, http.MethodGet, path, "", nil, &bots); err != nil {
		return nil, err
	}
	return bots, nil
}

// GetChatbot fetches a single chatbot by id
func (c *Client) GetChatbot(ctx context.Context, id uuid.UUID) (*domain.Chatbot, error) {
	path := "/rest/v1/chatbots/" + url.PathEscape(id.String())
	var bot domain.Chatbot
	err := c.do(ctx, http.MethodGet, path, "", nil, &bot)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &bot, nil
}

// APIError carries the backend's status and message
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth backend returned status %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
