package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore remembers the transaction produced for a caller-supplied
// idempotency token so a retried identical request reuses, rather than
// repeats, a prior authorization.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*Transaction, error)
	Put(ctx context.Context, key string, txn Transaction) error
}

// idempotencyKey hashes the caller token so raw tokens never appear in the
// cache keyspace.
func idempotencyKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "payment:idem:" + hex.EncodeToString(sum[:])
}

// RedisIdempotencyStore backs the cache with Redis and a TTL.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*Transaction, error) {
	raw, err := s.client.Get(ctx, idempotencyKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	var txn Transaction
	if err := json.Unmarshal(raw, &txn); err != nil {
		return nil, fmt.Errorf("unmarshal idempotency record: %w", err)
	}
	return &txn, nil
}

func (s *RedisIdempotencyStore) Put(ctx context.Context, key string, txn Transaction) error {
	raw, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, idempotencyKey(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency record: %w", err)
	}
	return nil
}

// MemoryIdempotencyStore is the in-process fallback when Redis is not
// configured, and the test double.
type MemoryIdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]Transaction
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{records: make(map[string]Transaction)}
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if txn, ok := s.records[idempotencyKey(key)]; ok {
		return &txn, nil
	}
	return nil, nil
}

func (s *MemoryIdempotencyStore) Put(_ context.Context, key string, txn Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[idempotencyKey(key)] = txn
	return nil
}
