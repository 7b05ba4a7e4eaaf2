package address

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
)

// MemoryStore keeps addresses in memory for unit tests and local runs.
type MemoryStore struct {
	mu        sync.RWMutex
	addresses map[uuid.UUID]Address
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{addresses: make(map[uuid.UUID]Address)}
}

func (s *MemoryStore) Create(_ context.Context, addr Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.addresses[addr.ID]; exists {
		return sentinel.ErrConflict
	}
	if addr.IsDefault {
		s.clearDefaultLocked(addr.AccountID)
	}
	s.addresses[addr.ID] = addr
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if addr, ok := s.addresses[id]; ok {
		return addr, nil
	}
	return Address{}, sentinel.ErrNotFound
}

// SetDefault clears any existing default for the account and marks the given
// address, mirroring the single-transaction behavior of the SQL store.
func (s *MemoryStore) SetDefault(_ context.Context, accountID uuid.UUID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr, ok := s.addresses[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if addr.AccountID == nil || *addr.AccountID != accountID {
		return sentinel.ErrInvalidState
	}

	s.clearDefaultLocked(&accountID)
	addr.IsDefault = true
	s.addresses[id] = addr
	return nil
}

func (s *MemoryStore) clearDefaultLocked(accountID *uuid.UUID) {
	if accountID == nil {
		return
	}
	for id, a := range s.addresses {
		if a.AccountID != nil && *a.AccountID == *accountID && a.IsDefault {
			a.IsDefault = false
			s.addresses[id] = a
		}
	}
}
