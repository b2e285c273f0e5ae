package store

import (
	"context"
	"sync"

	"github.com/brizzai/mobsq/internal/auth/models"
)

// MemoryStore keeps profiles in process. Used by tests and store.driver=memory.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]models.Profile)}
}

func (s *MemoryStore) Insert(ctx context.Context, profile models.Profile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := NewID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[id] = profile.Clone()
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return profile.Clone(), nil
}

// Delete removes a profile. Nothing in the request path deletes; tests use it
// to orphan a session identifier.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
}

// Len returns the number of stored profiles.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

func (s *MemoryStore) Close() error { return nil }
