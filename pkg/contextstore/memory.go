package contextstore

import (
	"context"
	"sync"
	"time"

	"github.com/zigral/zigral/pkg/models"
)

// MemoryStore keeps entries in process memory. Suitable for tests and
// single-instance development deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*models.ContextEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*models.ContextEntry),
	}
}

func (s *MemoryStore) Create(_ context.Context, entry *models.ContextEntry) (*models.ContextEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.JobID]; exists {
		return nil, ErrAlreadyExists
	}

	stored := entry.Clone()
	stored.Version = 1
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	s.entries[entry.JobID] = stored

	return stored.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (*models.ContextEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.entries[jobID]
	if !ok {
		return nil, ErrNotFound
	}

	return stored.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, jobID string, entry *models.ContextEntry) (*models.ContextEntry, error) {
	if jobID != entry.JobID {
		return nil, ErrJobIDMismatch
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.entries[jobID]
	if !ok {
		return nil, ErrNotFound
	}

	if entry.Version != 0 && entry.Version != stored.Version {
		return nil, ErrVersionConflict
	}

	updated := entry.Clone()
	updated.Version = stored.Version + 1
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	s.entries[jobID] = updated

	return updated.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[jobID]; !ok {
		return ErrNotFound
	}

	delete(s.entries, jobID)

	return nil
}

func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}
