package product

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
)

// MemoryStore is a read-mostly in-memory catalog for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]Product
}

func NewMemoryStore(products ...Product) *MemoryStore {
	s := &MemoryStore{products: make(map[uuid.UUID]Product, len(products))}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *MemoryStore) Add(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// FindByIDs returns the products for the given IDs, erroring if any is missing.
func (s *MemoryStore) FindByIDs(_ context.Context, ids []uuid.UUID) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		p, ok := s.products[id]
		if !ok {
			return nil, sentinel.ErrNotFound
		}
		out = append(out, p)
	}
	return out, nil
}
