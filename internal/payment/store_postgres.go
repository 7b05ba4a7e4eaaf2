package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
	txcontext "ordergate/pkg/platform/tx"
)

// PostgresStore persists transactions. The schema has no column for the raw
// instrument; only gateway transaction id, status, and last4 are stored.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a transaction. The insert is idempotent on the transaction
// id: a checkout retried with the same idempotency token reuses the cached
// transaction, which may already have been persisted by the prior attempt.
func (s *PostgresStore) Create(ctx context.Context, txn Transaction) error {
	query := `
		INSERT INTO payment_transactions (id, gateway_txn_id, amount_cents, status, response_code, card_last4, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	var execer interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	} = s.db
	if tx, ok := txcontext.From(ctx); ok {
		execer = tx
	}
	_, err := execer.ExecContext(ctx, query,
		txn.ID, txn.GatewayTxnID, txn.AmountCents, string(txn.Status), txn.ResponseCode, txn.CardLast4, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Transaction, error) {
	query := `
		SELECT id, gateway_txn_id, amount_cents, status, response_code, card_last4, created_at
		FROM payment_transactions
		WHERE id = $1
	`
	var (
		txn    Transaction
		status string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&txn.ID, &txn.GatewayTxnID, &txn.AmountCents, &status, &txn.ResponseCode, &txn.CardLast4, &txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, sentinel.ErrNotFound
		}
		return Transaction{}, fmt.Errorf("get payment transaction: %w", err)
	}
	txn.Status = Status(status)
	return txn, nil
}
