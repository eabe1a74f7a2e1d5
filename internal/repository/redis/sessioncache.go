package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
)

const (
	sessionCachePrefix = "session:"
	sessionCacheTTL    = 60 * time.Second
)

// SessionCache keeps recently verified backend sessions so the route
// guard's direct re-checks don't hammer the auth backend. Entries are
// keyed by a hash of the access token, never the token itself.
type SessionCache struct {
	client *Client
}

// NewSessionCache creates a new session cache
func NewSessionCache(client *Client) *SessionCache {
	return &SessionCache{client: client}
}

func cacheKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return sessionCachePrefix + hex.EncodeToString(sum[:])
}

// Get retrieves a cached session for an access token
func (c *SessionCache) Get(ctx context.Context, accessToken string) (*domain.Session, error) {
	data, err := c.client.rdb.Get(ctx, cacheKey(accessToken)).Bytes()
	if err != nil {
		return nil, nil // Cache miss
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// Set caches a verified session
func (c *SessionCache) Set(ctx context.Context, accessToken string, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return c.client.rdb.Set(ctx, cacheKey(accessToken), data, sessionCacheTTL).Err()
}

// Invalidate drops a cached session, used on sign-out
func (c *SessionCache) Invalidate(ctx context.Context, accessToken string) error {
	return c.client.rdb.Del(ctx, cacheKey(accessToken)).Err()
}
