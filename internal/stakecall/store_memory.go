package stakecall

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
)

// MemoryStore keeps stake call records in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	calls map[uuid.UUID]StakeCall
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{calls: make(map[uuid.UUID]StakeCall)}
}

func (s *MemoryStore) Create(_ context.Context, call StakeCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.calls[call.ID]; exists {
		return sentinel.ErrConflict
	}
	s.calls[call.ID] = call
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (StakeCall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.calls[id]; ok {
		return c, nil
	}
	return StakeCall{}, sentinel.ErrNotFound
}

// FindLatestByOrder returns the most recent stake call for an order.
func (s *MemoryStore) FindLatestByOrder(_ context.Context, orderID uuid.UUID) (StakeCall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest StakeCall
		found  bool
	)
	for _, c := range s.calls {
		if c.OrderID != orderID {
			continue
		}
		if !found || c.InvokedAt.After(latest.InvokedAt) {
			latest = c
			found = true
		}
	}
	if !found {
		return StakeCall{}, sentinel.ErrNotFound
	}
	return latest, nil
}

// Resolve finalizes a pending record. A record may only be resolved once.
func (s *MemoryStore) Resolve(_ context.Context, id uuid.UUID, result Result, reasonCode string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	call, ok := s.calls[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if call.Result != ResultPending {
		return sentinel.ErrInvalidState
	}
	call.Result = result
	call.ReasonCode = reasonCode
	call.ResolvedAt = &at
	s.calls[id] = call
	return nil
}
