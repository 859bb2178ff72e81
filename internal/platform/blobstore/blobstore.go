// Package blobstore keeps export manifests and other generated files. The
// MinIO backend is used when an endpoint is configured; MemoryStore covers
// tests and single-process development.
package blobstore

import (
	"context"
	"errors"
	"sync"
)

// ErrBlobNotFound is returned by Get for unknown keys.
var ErrBlobNotFound = errors.New("blob not found")

// Blob is a stored object.
type Blob struct {
	Key         string
	ContentType string
	Body        []byte
}

// Store is implemented by every backend.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Get(ctx context.Context, key string) (*Blob, error)
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]Blob)}
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, body []byte) error {
	cp := make([]byte, len(body))
	copy(cp, body)

	s.mu.Lock()
	s.blobs[key] = Blob{Key: key, ContentType: contentType, Body: cp}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Blob, error) {
	s.mu.RLock()
	b, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return &b, nil
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
