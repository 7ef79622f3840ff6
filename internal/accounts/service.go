// Package accounts owns the per-user profile documents in the user bucket
// together with their avatar blobs.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wikifun/wikifun/backend/go-services/internal/credentials"
	"github.com/wikifun/wikifun/backend/go-services/internal/docstore"
	"github.com/wikifun/wikifun/backend/go-services/internal/models"
	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
)

const (
	// AvatarSuffix is appended to the username to form the avatar key.
	AvatarSuffix = ".jpg"
	// DefaultHistoryLimit bounds wiki_history when no limit is configured.
	DefaultHistoryLimit = 10
)

var (
	ErrInvalidUsername   = errors.New("invalid username")
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrMalformedAccount  = errors.New("malformed account")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrAvatarConflict    = errors.New("avatar upload conflict")
	ErrImageNotFound     = errors.New("image not found")
)

// Service is the account engine.
type Service struct {
	docs         *docstore.Store
	now          func() time.Time
	historyLimit int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHistoryLimit bounds wiki_history; values below 1 keep the default.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

func NewService(docs *docstore.Store, opts ...Option) *Service {
	s := &Service{docs: docs, now: time.Now, historyLimit: DefaultHistoryLimit}
	for _, o := range opts {
		o(s)
	}
	return s
}

// HistoryLimit returns the configured wiki_history bound.
func (s *Service) HistoryLimit() int { return s.historyLimit }

// ValidateUsername rejects names that cannot be stored as account keys.
func ValidateUsername(username string) error {
	switch {
	case username == "", strings.TrimSpace(username) != username:
		return fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	case strings.Contains(username, "/"):
		return fmt.Errorf("%w: %q contains '/'", ErrInvalidUsername, username)
	case strings.HasSuffix(username, AvatarSuffix):
		return fmt.Errorf("%w: %q ends in %s", ErrInvalidUsername, username, AvatarSuffix)
	}
	return nil
}

// CreateAccount stores a new profile. A taken username yields ErrAccountExists
// and leaves the stored account untouched.
func (s *Service) CreateAccount(ctx context.Context, username, password string) (*models.AccountDocument, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	exists, err := s.Exists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, username)
	}
	hash, err := credentials.Hash(username, password)
	if err != nil {
		return nil, err
	}
	doc := models.NewAccountDocument(hash, s.now())
	if err := s.docs.Create(ctx, username, doc, true); err != nil {
		if errors.Is(err, docstore.ErrExists) {
			return nil, fmt.Errorf("%w: %s", ErrAccountExists, username)
		}
		return nil, err
	}
	logger.Infof("accounts: created %s", username)
	return doc, nil
}

// Authenticate returns the account when password matches. ErrAccountNotFound
// and ErrInvalidCredential are distinct; callers should not reveal which.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.AccountDocument, error) {
	if ValidateUsername(username) != nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, username)
	}
	doc, err := s.GetAccount(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := credentials.Verify(username, password, doc.HashedPassword); err != nil {
		if errors.Is(err, credentials.ErrMismatch) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	return doc, nil
}

func (s *Service) GetAccount(ctx context.Context, username string) (*models.AccountDocument, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	doc := &models.AccountDocument{}
	if _, err := s.docs.Load(ctx, username, doc); err != nil {
		return nil, accountErr(err)
	}
	return doc, nil
}

// Exists reports whether an account document is stored for username.
func (s *Service) Exists(ctx context.Context, username string) (bool, error) {
	if ValidateUsername(username) != nil {
		return false, nil
	}
	return s.docs.Objects().Exists(ctx, username)
}

// RecordView moves page to the end of wiki_history, evicting the oldest
// entry once the history is full.
func (s *Service) RecordView(ctx context.Context, username, page string) (*models.AccountDocument, error) {
	return s.update(ctx, username, func(doc *models.AccountDocument) {
		doc.WikiHistory = pushHistory(doc.WikiHistory, page, s.historyLimit)
	})
}

func (s *Service) RecordUpload(ctx context.Context, username, page string) (*models.AccountDocument, error) {
	return s.update(ctx, username, func(doc *models.AccountDocument) {
		doc.WikisUploaded = append(doc.WikisUploaded, page)
	})
}

func (s *Service) UpdateBio(ctx context.Context, username, bio string) (*models.AccountDocument, error) {
	return s.update(ctx, username, func(doc *models.AccountDocument) {
		doc.AboutMe = bio
	})
}

func (s *Service) update(ctx context.Context, username string, fn func(*models.AccountDocument)) (*models.AccountDocument, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	doc := &models.AccountDocument{}
	err := s.docs.Update(ctx, username, doc, func() error {
		fn(doc)
		return nil
	})
	if err != nil {
		return nil, accountErr(err)
	}
	return doc, nil
}

func pushHistory(history []string, page string, limit int) []string {
	for i, p := range history {
		if p == page {
			history = append(history[:i], history[i+1:]...)
			break
		}
	}
	for len(history) >= limit {
		history = history[1:]
	}
	return append(history, page)
}

func accountErr(err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrAccountNotFound, err)
	case errors.Is(err, docstore.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrMalformedAccount, err)
	}
	return err
}
