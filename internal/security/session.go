package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims wrap a backend session in a locally signed token so the
// edge middleware can check requests without a backend round trip.
type SessionClaims struct {
	UserID       uuid.UUID `json:"sub"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"bat"`
	RefreshToken string    `json:"brt,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager signs and validates session cookies
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionManager creates a new session manager
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue signs a cookie token for a backend session
func (m *SessionManager) Issue(sess *domain.Session) (string, error) {
	now := time.Now()
	expires := now.Add(m.ttl)
	if !sess.ExpiresAt.IsZero() && sess.ExpiresAt.Before(expires) {
		expires = sess.ExpiresAt
	}

	claims := SessionClaims{
		UserID:       sess.User.ID,
		Email:        sess.User.Email,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "chatbuddy",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate parses a cookie token and returns its claims
func (m *SessionManager) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid session token")
	}

	return claims, nil
}

// Session rebuilds a domain session from validated claims.
func (c *SessionClaims) Session() *domain.Session {
	return &domain.Session{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		ExpiresAt:    c.ExpiresAt.Time,
		User: domain.User{
			ID:    c.UserID,
			Email: c.Email,
		},
	}
}

// TTL returns the configured session lifetime
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}
