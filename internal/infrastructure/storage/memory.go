package storage

import (
	"context"
	"sync"

	"github.com/rewindlauncher/backend/internal/domain"
)

// MemoryStore is a thread-safe in-memory key-value store. Data does not
// survive a restart; use it for tests and ephemeral runs.
type MemoryStore struct {
	data  map[string]string
	mutex sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

// Get retrieves a value from the store
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	value, exists := s.data[key]
	if !exists {
		return "", domain.ErrKeyNotFound
	}
	return value, nil
}

// GetMany reads every key under a single read lock
func (s *MemoryStore) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, exists := s.data[key]; exists {
			values[key] = value
		}
	}
	return values, nil
}

// Commit applies all writes and deletes under a single lock
func (s *MemoryStore) Commit(ctx context.Context, set map[string]string, remove ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key, value := range set {
		s.data[key] = value
	}
	for _, key := range remove {
		delete(s.data, key)
	}
	return nil
}

// Delete removes keys from the store
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	return s.Commit(ctx, nil, keys...)
}

// Size returns the current number of keys (for debugging/monitoring)
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) Close() error {
	return nil
}
