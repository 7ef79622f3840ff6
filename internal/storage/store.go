// Package storage is the object store client used by the wiki engines.
// Every Store instance addresses one flat bucket of key-addressed blobs.
package storage

import (
	"context"
	"errors"

	"github.com/zeebo/errs"
)

var (
	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrPreconditionFailed is returned when a conditional Put is rejected.
	ErrPreconditionFailed = errors.New("object precondition failed")

	// Error wraps unexpected backend failures.
	Error = errs.Class("storage")
)

// Object is a blob read from a bucket.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
	ETag        string
}

// PutOptions controls a single write.
// IfNoneMatch requires the key to be absent; IfMatch requires the stored
// ETag to equal the given value. Both unset means unconditional overwrite.
type PutOptions struct {
	ContentType string
	IfNoneMatch bool
	IfMatch     string
}

// Store is the minimal blob API the engines depend on.
// Implementations: MinIOStorage, MongoStorage, MemoryStorage.
type Store interface {
	Get(ctx context.Context, key string) (*Object, error)
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix in lexicographic order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Bucket names the bucket for logs and metrics.
	Bucket() string
}
