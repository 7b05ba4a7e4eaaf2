package order

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
)

// MemoryStore keeps orders in memory for unit tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[uuid.UUID]Order)}
}

func (s *MemoryStore) Create(_ context.Context, ord Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[ord.ID]; exists {
		return sentinel.ErrConflict
	}
	s.orders[ord.ID] = cloneOrder(ord)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ord, ok := s.orders[id]; ok {
		return cloneOrder(ord), nil
	}
	return Order{}, sentinel.ErrNotFound
}

// UpdateStatus moves an order from one status to another. The from guard
// mirrors the SQL store's compare-and-set so concurrent resolutions cannot
// both win.
func (s *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ord, ok := s.orders[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if ord.Status != from {
		return sentinel.ErrInvalidState
	}
	ord.Status = to
	ord.UpdatedAt = at
	s.orders[id] = ord
	return nil
}

func cloneOrder(ord Order) Order {
	out := ord
	out.Items = make([]LineItem, len(ord.Items))
	copy(out.Items, ord.Items)
	return out
}
