package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
)

// Service issues single-use refresh tokens: every Rotate consumes the
// presented token and hands out a fresh one.
type Service struct {
	repo Repository
	now  func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(r Repository, opts ...Option) *Service {
	s := &Service{repo: r, now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open starts a session for username and returns the raw refresh token.
func (s *Service) Open(ctx context.Context, username string, ttl time.Duration) (string, *Session, error) {
	raw, err := newToken()
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	sess := &Session{TokenHash: digest(raw), Username: username, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("store session for %s: %w", username, err)
	}
	return raw, sess, nil
}

// Lookup resolves a raw refresh token. Expired sessions are removed and
// reported as ErrSessionExpired.
func (s *Service) Lookup(ctx context.Context, raw string) (*Session, error) {
	sess, err := s.repo.Get(ctx, digest(raw))
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		if err := s.repo.Delete(ctx, sess.TokenHash); err != nil {
			logger.Warnf("sessions: dropping expired session of %s: %v", sess.Username, err)
		}
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Rotate consumes raw and opens a replacement session for the same user.
// A token that was already rotated yields ErrSessionNotFound.
func (s *Service) Rotate(ctx context.Context, raw string, ttl time.Duration) (string, *Session, error) {
	old, err := s.Lookup(ctx, raw)
	if err != nil {
		return "", nil, err
	}
	if err := s.repo.Delete(ctx, old.TokenHash); err != nil {
		return "", nil, err
	}
	return s.Open(ctx, old.Username, ttl)
}

// Close ends the session; closing an unknown token is not an error.
func (s *Service) Close(ctx context.Context, raw string) error {
	err := s.repo.Delete(ctx, digest(raw))
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
