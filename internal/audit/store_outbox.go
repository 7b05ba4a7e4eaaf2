package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "ordergate/pkg/platform/tx"
)

// OutboxStore implements Store using the transactional outbox pattern.
// Events are written to the audit_outbox table and published to Kafka by the
// relay. Writing through the transaction in context makes the audit entry
// atomic with the order commit.
type OutboxStore struct {
	db *sql.DB
}

func NewOutboxStore(db *sql.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

func (s *OutboxStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	aggregateID := event.OrderID
	if aggregateID == "" {
		aggregateID = event.ID.String()
	}

	query := `
		INSERT INTO audit_outbox (id, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, 'PENDING', $5)
	`
	var execer interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	} = s.db
	if tx, ok := txcontext.From(ctx); ok {
		execer = tx
	}
	if _, err := execer.ExecContext(ctx, query,
		uuid.New(), aggregateID, event.Action, payload, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// OutboxEntry is one pending row awaiting publication.
type OutboxEntry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
}

// FetchPending locks and returns up to limit pending entries, oldest first.
// FOR UPDATE SKIP LOCKED lets multiple relays run without double-publishing.
func (s *OutboxStore) FetchPending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload
		FROM audit_outbox
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	var querier interface {
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	} = s.db
	if tx, ok := txcontext.From(ctx); ok {
		querier = tx
	}
	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkPublished flips entries to SENT after a successful publish.
func (s *OutboxStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE audit_outbox
		SET status = 'SENT', published_at = $2
		WHERE id = ANY($1)
	`
	var execer interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	} = s.db
	if tx, ok := txcontext.From(ctx); ok {
		execer = tx
	}
	if _, err := execer.ExecContext(ctx, query, ids, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}

// DB exposes the pool so the relay can run fetch+publish+mark in one
// transaction.
func (s *OutboxStore) DB() *sql.DB { return s.db }
