package compliance

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
)

// MemoryStore keeps snapshots in memory. Write-once: a second write for the
// same order (or snapshot ID) is rejected, and reads return copies so
// callers cannot mutate the stored record.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]Snapshot
	byOrder   map[uuid.UUID]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[uuid.UUID]Snapshot),
		byOrder:   make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *MemoryStore) Create(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.snapshots[snap.ID]; exists {
		return sentinel.ErrImmutable
	}
	if _, exists := s.byOrder[snap.OrderID]; exists {
		return sentinel.ErrImmutable
	}
	s.snapshots[snap.ID] = cloneSnapshot(snap)
	s.byOrder[snap.OrderID] = snap.ID
	return nil
}

func (s *MemoryStore) FindByOrder(_ context.Context, orderID uuid.UUID) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOrder[orderID]
	if !ok {
		return Snapshot{}, sentinel.ErrNotFound
	}
	return cloneSnapshot(s.snapshots[id]), nil
}

func cloneSnapshot(snap Snapshot) Snapshot {
	out := snap
	out.ProductFlags = make([]ProductFlags, len(snap.ProductFlags))
	copy(out.ProductFlags, snap.ProductFlags)
	return out
}
