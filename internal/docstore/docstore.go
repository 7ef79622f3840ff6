// Package docstore reads and writes JSON documents stored as blobs.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wikifun/wikifun/backend/go-services/internal/locks"
	"github.com/wikifun/wikifun/backend/go-services/internal/storage"
	"github.com/wikifun/wikifun/backend/go-services/pkg/metrics"
)

const contentType = "application/json"

var (
	// ErrNotFound: the blob does not exist or is empty.
	ErrNotFound = errors.New("document not found")
	// ErrMalformed: the blob exists but is not a valid document.
	ErrMalformed = errors.New("malformed document")
	// ErrExists: an exclusive create found the key taken.
	ErrExists = errors.New("document already exists")
	// ErrConflict: a strict write lost a race with another writer; retry.
	ErrConflict = errors.New("document changed concurrently")
)

// Document is implemented by the stored document types.
type Document interface {
	Validate() error
	Normalize()
}

// Store is a JSON document view over one bucket.
type Store struct {
	objects storage.Store
	locker  locks.Locker
	strict  bool
}

// Option configures a Store.
type Option func(*Store)

// WithLocker serializes Update calls per key.
func WithLocker(l locks.Locker) Option {
	return func(s *Store) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithStrictWrites makes Update write with the ETag it read, so a
// concurrent writer produces ErrConflict instead of a lost update.
func WithStrictWrites(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

func New(objects storage.Store, opts ...Option) *Store {
	s := &Store{objects: objects, locker: locks.Nop{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Objects exposes the underlying blob store for non-JSON blobs.
func (s *Store) Objects() storage.Store { return s.objects }

// Load decodes the document at key into doc and returns its ETag.
func (s *Store) Load(ctx context.Context, key string, doc Document) (string, error) {
	obj, err := s.objects.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.DocumentReads.WithLabelValues(s.objects.Bucket(), "not_found").Inc()
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		metrics.DocumentReads.WithLabelValues(s.objects.Bucket(), "error").Inc()
		return "", err
	}
	if len(bytes.TrimSpace(obj.Data)) == 0 {
		metrics.DocumentReads.WithLabelValues(s.objects.Bucket(), "not_found").Inc()
		return "", fmt.Errorf("%w: %s is empty", ErrNotFound, key)
	}
	if err := decode(obj.Data, doc); err != nil {
		metrics.DocumentReads.WithLabelValues(s.objects.Bucket(), "malformed").Inc()
		return "", fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	doc.Normalize()
	metrics.DocumentReads.WithLabelValues(s.objects.Bucket(), "ok").Inc()
	return obj.ETag, nil
}

// Create writes doc at key. With exclusive set, an existing key yields ErrExists
// and nothing is written; otherwise the blob is overwritten unconditionally.
func (s *Store) Create(ctx context.Context, key string, doc Document, exclusive bool) error {
	return s.save(ctx, key, doc, storage.PutOptions{ContentType: contentType, IfNoneMatch: exclusive})
}

// Update runs the read-modify-write cycle for key: load, mutate, save.
// mutate sees the decoded document in doc and may change it in place.
func (s *Store) Update(ctx context.Context, key string, doc Document, mutate func() error) error {
	unlock, err := s.locker.Lock(ctx, s.objects.Bucket()+"/"+key)
	if err != nil {
		return err
	}
	defer unlock()

	etag, err := s.Load(ctx, key, doc)
	if err != nil {
		return err
	}
	if err := mutate(); err != nil {
		return err
	}
	opts := storage.PutOptions{ContentType: contentType}
	if s.strict {
		opts.IfMatch = etag
	}
	return s.save(ctx, key, doc, opts)
}

func (s *Store) save(ctx context.Context, key string, doc Document, opts storage.PutOptions) error {
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := s.objects.Put(ctx, key, b, opts); err != nil {
		if errors.Is(err, storage.ErrPreconditionFailed) {
			metrics.DocumentWrites.WithLabelValues(s.objects.Bucket(), "conflict").Inc()
			if opts.IfNoneMatch {
				return fmt.Errorf("%w: %s", ErrExists, key)
			}
			return fmt.Errorf("%w: %s", ErrConflict, key)
		}
		metrics.DocumentWrites.WithLabelValues(s.objects.Bucket(), "error").Inc()
		return err
	}
	metrics.DocumentWrites.WithLabelValues(s.objects.Bucket(), "ok").Inc()
	return nil
}

func decode(b []byte, doc Document) error {
	b = bytes.TrimSpace(b)
	// pages from the first releases were raw text, not JSON
	if len(b) == 0 || b[0] != '{' {
		return errors.New("not a JSON object")
	}
	if err := json.Unmarshal(b, doc); err != nil {
		return err
	}
	return doc.Validate()
}
