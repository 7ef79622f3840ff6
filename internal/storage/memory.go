package storage

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
	generation  int64
}

// MemoryStorage is an in-memory Store used by tests and single-process
// development runs. ETags are per-bucket generation numbers.
type MemoryStorage struct {
	mu         sync.RWMutex
	bucket     string
	objects    map[string]*memoryObject
	generation int64
}

func NewMemoryStorage(bucket string) *MemoryStorage {
	return &MemoryStorage{bucket: bucket, objects: make(map[string]*memoryObject)}
}

func (m *MemoryStorage) Bucket() string { return m.bucket }

func (m *MemoryStorage) Get(_ context.Context, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	data := make([]byte, len(o.data))
	copy(data, o.data)
	return &Object{Key: key, Data: data, ContentType: o.contentType, ETag: etagOf(o.generation)}, nil
}

func (m *MemoryStorage) Put(_ context.Context, key string, data []byte, opts PutOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, exists := m.objects[key]
	if opts.IfNoneMatch && exists {
		return "", ErrPreconditionFailed
	}
	if opts.IfMatch != "" && (!exists || etagOf(cur.generation) != opts.IfMatch) {
		return "", ErrPreconditionFailed
	}
	m.generation++
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = &memoryObject{data: buf, contentType: opts.ContentType, generation: m.generation}
	return etagOf(m.generation), nil
}

func (m *MemoryStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryStorage) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func etagOf(generation int64) string {
	return strconv.FormatInt(generation, 10)
}
