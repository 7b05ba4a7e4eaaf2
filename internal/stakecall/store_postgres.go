package stakecall

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
	txcontext "ordergate/pkg/platform/tx"
)

// PostgresStore persists stake call records.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, call StakeCall) error {
	query := `
		INSERT INTO stake_calls (id, order_id, result, reason_code, invoked_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		call.ID, call.OrderID, string(call.Result), call.ReasonCode, call.InvokedAt, call.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stake call: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (StakeCall, error) {
	query := `
		SELECT id, order_id, result, reason_code, invoked_at, resolved_at
		FROM stake_calls
		WHERE id = $1
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, id))
}

// FindLatestByOrder returns the most recent stake call for an order.
func (s *PostgresStore) FindLatestByOrder(ctx context.Context, orderID uuid.UUID) (StakeCall, error) {
	query := `
		SELECT id, order_id, result, reason_code, invoked_at, resolved_at
		FROM stake_calls
		WHERE order_id = $1
		ORDER BY invoked_at DESC
		LIMIT 1
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, orderID))
}

// Resolve finalizes a pending record. The WHERE clause guards against
// resolving twice; a zero row count means the record was missing or already
// resolved.
func (s *PostgresStore) Resolve(ctx context.Context, id uuid.UUID, result Result, reasonCode string, at time.Time) error {
	query := `
		UPDATE stake_calls
		SET result = $2, reason_code = $3, resolved_at = $4
		WHERE id = $1 AND result = 'PENDING'
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, id, string(result), reasonCode, at)
	if err != nil {
		return fmt.Errorf("resolve stake call: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (StakeCall, error) {
	var (
		call   StakeCall
		result string
	)
	err := row.Scan(&call.ID, &call.OrderID, &result, &call.ReasonCode, &call.InvokedAt, &call.ResolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StakeCall{}, sentinel.ErrNotFound
		}
		return StakeCall{}, fmt.Errorf("scan stake call: %w", err)
	}
	call.Result = Result(result)
	return call, nil
}
