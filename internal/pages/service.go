// Package pages owns the page document lifecycle in the info bucket:
// creation, fetch, listing, votes and comments.
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wikifun/wikifun/backend/go-services/internal/docstore"
	"github.com/wikifun/wikifun/backend/go-services/internal/models"
	"github.com/wikifun/wikifun/backend/go-services/internal/storage"
	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
	"github.com/wikifun/wikifun/backend/go-services/pkg/metrics"
)

// Suffix marks page documents among the other blobs of the info bucket.
const Suffix = ".txt"

var (
	ErrInvalidName      = errors.New("invalid page name")
	ErrPageNotFound     = errors.New("page not found")
	ErrMalformedPage    = errors.New("malformed page")
	ErrImageNotFound    = errors.New("image not found")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrUnknownActor     = errors.New("unknown user")
	ErrInvalidDirection = errors.New("invalid vote direction")
)

// ActorValidator reports whether a username belongs to a registered account.
type ActorValidator interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// Summary is one row of the page listing.
type Summary struct {
	Name      string `json:"name"`
	Upvotes   int    `json:"upvotes"`
	Downvotes int    `json:"downvotes"`
}

// Service is the page engine.
type Service struct {
	docs      *docstore.Store
	now       func() time.Time
	validator ActorValidator
}

type Option func(*Service)

// WithClock overrides the clock used for date_created.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithActorValidator rejects votes and comments from unregistered users.
func WithActorValidator(v ActorValidator) Option {
	return func(s *Service) { s.validator = v }
}

func NewService(docs *docstore.Store, opts ...Option) *Service {
	s := &Service{docs: docs, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Key maps a page name to its storage key: "Alpha" and "Alpha.txt" both give "Alpha.txt".
func Key(name string) (string, error) {
	name = strings.TrimSpace(name)
	base := strings.TrimSuffix(name, Suffix)
	if base == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base + Suffix, nil
}

// DisplayName strips the page suffix from a storage key.
func DisplayName(key string) string { return strings.TrimSuffix(key, Suffix) }

// CreatePage writes a fresh document for name, replacing any existing page.
func (s *Service) CreatePage(ctx context.Context, name, content string) (*models.PageDocument, error) {
	key, err := Key(name)
	if err != nil {
		return nil, err
	}
	doc := models.NewPageDocument(key, content, s.now())
	if err := s.docs.Create(ctx, key, doc, false); err != nil {
		return nil, err
	}
	logger.Debugf("pages: created %s", key)
	return doc, nil
}

// UploadPage is CreatePage on behalf of a, subject to the same actor policy
// as votes and comments.
func (s *Service) UploadPage(ctx context.Context, a models.Actor, name, content string) (*models.PageDocument, error) {
	if err := s.checkActor(ctx, a); err != nil {
		return nil, err
	}
	return s.CreatePage(ctx, name, content)
}

// FetchPage returns ErrPageNotFound or ErrMalformedPage for expected failures.
func (s *Service) FetchPage(ctx context.Context, name string) (*models.PageDocument, error) {
	key, err := Key(name)
	if err != nil {
		return nil, err
	}
	doc := &models.PageDocument{}
	if _, err := s.docs.Load(ctx, key, doc); err != nil {
		return nil, pageErr(err)
	}
	return doc, nil
}

// ListPageNames lists every page with its vote counts, in key order.
// Pages that vanish or fail to parse mid-listing are skipped.
func (s *Service) ListPageNames(ctx context.Context) ([]Summary, error) {
	keys, err := s.docs.Objects().List(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, Suffix) {
			continue
		}
		doc := &models.PageDocument{}
		if _, err := s.docs.Load(ctx, key, doc); err != nil {
			if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrMalformed) {
				logger.WithFields(logger.Fields{"key": key, "err": err}).Warn("pages: skipping unreadable page")
				continue
			}
			return nil, err
		}
		out = append(out, Summary{Name: DisplayName(key), Upvotes: doc.Upvotes, Downvotes: doc.Downvotes})
	}
	return out, nil
}

// RecordVote toggles voter's vote on the page and returns the saved document.
func (s *Service) RecordVote(ctx context.Context, dir Direction, voter models.Actor, name string) (*models.PageDocument, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	if err := s.checkActor(ctx, voter); err != nil {
		return nil, err
	}
	key, err := Key(name)
	if err != nil {
		return nil, err
	}
	doc := &models.PageDocument{}
	var tr Transition
	err = s.docs.Update(ctx, key, doc, func() error {
		tr = applyVote(doc, dir, voter.Username())
		return nil
	})
	if err != nil {
		return nil, pageErr(err)
	}
	metrics.Votes.WithLabelValues(string(dir), string(tr)).Inc()
	return doc, nil
}

// AppendComment adds {commenter: text} to the page thread. A missing page is a no-op.
func (s *Service) AppendComment(ctx context.Context, name string, commenter models.Actor, text string) error {
	if err := s.checkActor(ctx, commenter); err != nil {
		return err
	}
	key, err := Key(name)
	if err != nil {
		return err
	}
	doc := &models.PageDocument{}
	err = s.docs.Update(ctx, key, doc, func() error {
		doc.Comments = append(doc.Comments, models.Comment{Author: commenter.Username(), Text: text})
		return nil
	})
	if errors.Is(err, docstore.ErrNotFound) {
		logger.Debugf("pages: comment on missing page %s dropped", key)
		return nil
	}
	if err != nil {
		return pageErr(err)
	}
	metrics.Comments.Inc()
	return nil
}

// GetImage returns a raw image blob stored next to the pages.
func (s *Service) GetImage(ctx context.Context, name string) (*storage.Object, error) {
	if name == "" || strings.Contains(name, "/") || strings.HasSuffix(name, Suffix) {
		return nil, fmt.Errorf("%w: %q", ErrImageNotFound, name)
	}
	obj, err := s.docs.Objects().Get(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	return obj, err
}

// ListImages returns the keys of the non-page blobs in the info bucket.
func (s *Service) ListImages(ctx context.Context) ([]string, error) {
	keys, err := s.docs.Objects().List(ctx, "")
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if !strings.HasSuffix(k, Suffix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Service) checkActor(ctx context.Context, a models.Actor) error {
	if !a.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if s.validator == nil {
		return nil
	}
	ok, err := s.validator.Exists(ctx, a.Username())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActor, a.Username())
	}
	return nil
}

func pageErr(err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrPageNotFound, err)
	case errors.Is(err, docstore.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrMalformedPage, err)
	}
	return err
}
