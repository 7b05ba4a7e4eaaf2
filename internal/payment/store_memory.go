package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
)

// MemoryStore keeps transactions in memory.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transactions: make(map[uuid.UUID]Transaction)}
}

// Create inserts a transaction. Idempotent on the transaction id, matching
// the SQL store: a retried checkout may re-persist a cached transaction.
func (s *MemoryStore) Create(_ context.Context, txn Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[txn.ID] = txn
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if txn, ok := s.transactions[id]; ok {
		return txn, nil
	}
	return Transaction{}, sentinel.ErrNotFound
}
