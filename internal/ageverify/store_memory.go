package ageverify

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
)

// MemoryStore keeps verification records in memory. Records are immutable
// once written; there is no update path.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[uuid.UUID]Result
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[uuid.UUID]Result)}
}

func (s *MemoryStore) Create(_ context.Context, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[result.ID]; exists {
		return sentinel.ErrImmutable
	}
	s.results[result.ID] = result
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[id]; ok {
		return r, nil
	}
	return Result{}, sentinel.ErrNotFound
}
