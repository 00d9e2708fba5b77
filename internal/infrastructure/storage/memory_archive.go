package storage

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	batchapp "github.com/consorcio/backend/internal/application/batch"
)

var _ batchapp.ArchiveStore = (*MemoryArchiveStore)(nil)

// MemoryArchiveStore keeps archived objects in memory. It serves development
// setups without object storage and tests.
type MemoryArchiveStore struct {
	// BaseURL prefixes generated download URLs
	BaseURL string

	mu      sync.RWMutex
	objects map[string]StoredObject
}

// StoredObject is an archived object
type StoredObject struct {
	Data        []byte
	ContentType string
}

// NewMemoryArchiveStore creates an empty store
func NewMemoryArchiveStore() *MemoryArchiveStore {
	return &MemoryArchiveStore{
		BaseURL: "memory://archive",
		objects: make(map[string]StoredObject),
	}
}

// Upload stores a copy of data
func (s *MemoryArchiveStore) Upload(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = StoredObject{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

// GenerateDownloadURL returns a fake URL for an existing object
func (s *MemoryArchiveStore) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", time.Time{}, errors.New("object not found: " + key)
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/" + url.PathEscape(key) + "?expires=" + expiresAt.UTC().Format(time.RFC3339), expiresAt, nil
}

// Get returns a stored object
func (s *MemoryArchiveStore) Get(key string) (StoredObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len returns the number of stored objects
func (s *MemoryArchiveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
