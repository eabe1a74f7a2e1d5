package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aqibaliakbar/chatbuddy/internal/domain"
	"github.com/aqibaliakbar/chatbuddy/internal/security"
	"github.com/rs/zerolog/log"
)

// ErrPasswordTooShort is returned locally, before any network call.
var ErrPasswordTooShort = errors.New("Password must be at least 8 characters")

// SessionCache is the verification cache consulted before re-querying
// the auth backend.
type SessionCache interface {
	Get(ctx context.Context, accessToken string) (*domain.Session, error)
	Set(ctx context.Context, accessToken string, sess *domain.Session) error
	Invalidate(ctx context.Context, accessToken string) error
}

// SessionService owns the authenticated session: it delegates
// credential exchange to the auth backend, wraps backend sessions in a
// signed cookie, and publishes every session change on a sequenced
// event feed.
type SessionService struct {
	backend  domain.AuthBackend
	sessions *security.SessionManager
	cache    SessionCache

	mu      sync.Mutex
	seq     uint64
	last    *domain.SessionEvent
	nextSub int
	subs    map[int]chan domain.SessionEvent
}

// NewSessionService creates a new session service
func NewSessionService(backend domain.AuthBackend, sessions *security.SessionManager, cache SessionCache) *SessionService {
	return &SessionService{
		backend:  backend,
		sessions: sessions,
		cache:    cache,
		subs:     make(map[int]chan domain.SessionEvent),
	}
}

// SignUp registers a new account and returns the session plus its
// signed cookie token.
func (s *SessionService) SignUp(ctx context.Context, input domain.SignUpInput) (*domain.Session, string, error) {
	sess, err := s.backend.SignUp(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("sign-up failed: %w", err)
	}
	return s.establish(sess)
}

// SignIn exchanges credentials for a session
func (s *SessionService) SignIn(ctx context.Context, creds domain.Credentials) (*domain.Session, string, error) {
	sess, err := s.backend.SignIn(ctx, creds)
	if err != nil {
		return nil, "", fmt.Errorf("sign-in failed: %w", err)
	}
	return s.establish(sess)
}

// GoogleAuthURL returns the OAuth authorization URL for Google sign-in
func (s *SessionService) GoogleAuthURL(state string) string {
	return s.backend.GoogleAuthURL(state)
}

// CompleteGoogle exchanges an OAuth callback code for a session
func (s *SessionService) CompleteGoogle(ctx context.Context, code string) (*domain.Session, string, error) {
	sess, err := s.backend.ExchangeGoogleCode(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("google sign-in failed: %w", err)
	}
	return s.establish(sess)
}

func (s *SessionService) establish(sess *domain.Session) (*domain.Session, string, error) {
	cookie, err := s.sessions.Issue(sess)
	if err != nil {
		return nil, "", err
	}
	s.publish(domain.SessionSignedIn, sess)
	return sess, cookie, nil
}

// Refresh exchanges the cookie's refresh token for fresh session
// material, reissues the cookie, and publishes a refreshed event. The
// old access token's cache entry is dropped so stale material cannot
// outlive the rotation.
func (s *SessionService) Refresh(ctx context.Context, cookieToken string) (*domain.Session, string, error) {
	if cookieToken == "" {
		return nil, "", domain.ErrNoSession
	}
	claims, err := s.sessions.Validate(cookieToken)
	if err != nil || claims.RefreshToken == "" {
		return nil, "", domain.ErrNoSession
	}

	sess, err := s.backend.RefreshSession(ctx, claims.RefreshToken)
	if err != nil {
		return nil, "", fmt.Errorf("session refresh failed: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, claims.AccessToken); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate session cache")
		}
	}

	cookie, err := s.sessions.Issue(sess)
	if err != nil {
		return nil, "", err
	}
	s.publish(domain.SessionRefreshed, sess)
	return sess, cookie, nil
}

// SignOut revokes the backend session and clears local state. The
// local session is cleared even when the backend call fails so a
// subsequent guard evaluation redirects.
func (s *SessionService) SignOut(ctx context.Context, accessToken string) error {
	if err := s.backend.SignOut(ctx, accessToken); err != nil {
		log.Warn().Err(err).Msg("Backend sign-out failed, clearing local session anyway")
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, accessToken); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate session cache")
		}
	}
	s.publish(domain.SessionSignedOut, nil)
	return nil
}

// ResetPassword triggers a password recovery email
func (s *SessionService) ResetPassword(ctx context.Context, email string) error {
	if err := s.backend.ResetPassword(ctx, email); err != nil {
		return fmt.Errorf("password reset failed: %w", err)
	}
	return nil
}

// UpdatePassword sets a new password. Length is checked locally before
// any network call.
func (s *SessionService) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrPasswordTooShort
	}
	if err := s.backend.UpdatePassword(ctx, accessToken, newPassword); err != nil {
		return fmt.Errorf("password update failed: %w", err)
	}
	return nil
}

// Verify resolves a cookie token to a live session. Returns (nil, nil)
// when the token does not map to a session. The verification cache is
// consulted before the backend.
func (s *SessionService) Verify(ctx context.Context, cookieToken string) (*domain.Session, error) {
	if cookieToken == "" {
		return nil, nil
	}

	claims, err := s.sessions.Validate(cookieToken)
	if err != nil {
		return nil, nil // expired or malformed cookie, treat as signed out
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, claims.AccessToken); err == nil && cached != nil {
			return cached, nil
		}
	}

	sess, err := s.backend.GetSession(ctx, claims.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("session check failed: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, claims.AccessToken, sess); err != nil {
			log.Warn().Err(err).Msg("Failed to cache session")
		}
	}
	return sess, nil
}

// Bootstrap performs the one startup session fetch, reconciled against
// the change feed by sequence number: if a change event lands while the
// fetch is in flight, the later event wins instead of being
// overwritten by the fetch result.
func (s *SessionService) Bootstrap(ctx context.Context, cookieToken string) (*domain.Session, error) {
	s.mu.Lock()
	startSeq := s.seq
	s.mu.Unlock()

	sess, err := s.Verify(ctx, cookieToken)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && s.last.Seq > startSeq {
		return s.last.Session, nil
	}
	return sess, nil
}

// Subscribe registers a listener on the session change feed and
// returns the channel plus a disposer that must be called to release
// it.
func (s *SessionService) Subscribe(buffer int) (<-chan domain.SessionEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan domain.SessionEvent, buffer)
	s.subs[id] = ch

	dispose := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, dispose
}

func (s *SessionService) publish(eventType domain.SessionEventType, sess *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	ev := domain.SessionEvent{Seq: s.seq, Type: eventType, Session: sess}
	s.last = &ev

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber, drop rather than block sign-in
		}
	}
}
