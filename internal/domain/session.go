package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoSession is returned when an operation requires an authenticated
// session and none is present.
var ErrNoSession = errors.New("no active session")

// User is the profile embedded in a session, as reported by the auth
// backend.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

// Session holds the token material and user profile for an
// authenticated account. It is replaced wholesale on every auth-state
// change and cleared on sign-out.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Credentials represents an email/password sign-in
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpInput represents account registration data
type SignUpInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"omitempty,max=255"`
}

// SessionEventType classifies session change notifications.
type SessionEventType string

const (
	SessionSignedIn  SessionEventType = "signed_in"
	SessionSignedOut SessionEventType = "signed_out"
	SessionRefreshed SessionEventType = "refreshed"
)

// SessionEvent is one entry in the session change feed. Seq increases
// monotonically so a late bootstrap fetch can be reconciled against
// events that raced it.
type SessionEvent struct {
	Seq     uint64           `json:"seq"`
	Type    SessionEventType `json:"type"`
	Session *Session         `json:"session,omitempty"`
}

// AuthBackend is the external authentication-and-database service. Wire
// format is the backend's concern; the client surfaces its errors
// verbatim.
type AuthBackend interface {
	SignUp(ctx context.Context, input SignUpInput) (*Session, error)
	SignIn(ctx context.Context, creds Credentials) (*Session, error)
	GoogleAuthURL(state string) string
	ExchangeGoogleCode(ctx context.Context, code string) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	ResetPassword(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
	GetSession(ctx context.Context, accessToken string) (*Session, error)
	ListChatbots(ctx context.Context, ownerID uuid.UUID) ([]Chatbot, error)
	GetChatbot(ctx context.Context, id uuid.UUID) (*Chatbot, error)
}
