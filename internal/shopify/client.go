// Package shopify handles the OAuth exchange with Shopify for the
// per-chatbot store integration.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/config"
)

var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.com$`)

// Client performs the Shopify OAuth flow
type Client struct {
	clientID     string
	clientSecret string
	redirectURL  string
	scopes       string
	client       *http.Client
}

// New creates a new Shopify client
func New(cfg config.ShopifyConfig) *Client {
	scopes := cfg.Scopes
	if scopes == "" {
		scopes = "read_products"
	}
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
		scopes:       scopes,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// ValidShopDomain reports whether shop is a well-formed
// *.myshopify.com domain.
func ValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}

// AuthURL builds the authorization URL the user is redirected to.
// State carries the chatbot id so the callback can scope the connection.
func (c *Client) AuthURL(shop, state string) (string, error) {
	if !ValidShopDomain(shop) {
		return "", fmt.Errorf("invalid shop domain: %s", shop)
	}

	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("scope", c.scopes)
	q.Set("redirect_uri", c.redirectURL)
	q.Set("state", state)

	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode()), nil
}

// ExchangeCode exchanges an authorization code for a store access token
func (c *Client) ExchangeCode(ctx context.Context, shop, code string) (string, error) {
	if !ValidShopDomain(shop) {
		return "", fmt.Errorf("invalid shop domain: %s", shop)
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"code":          code,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shopify returned status %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("shopify returned no access token")
	}
	return out.AccessToken, nil
}
