package order

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

// PostgresStore persists orders and their line items.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Create inserts the order and its items. Call it inside the pipeline
// transaction so referenced records commit together.
func (s *PostgresStore) Create(ctx context.Context, ord Order) error {
	query := `
		INSERT INTO orders (
			id, account_id, status, shipping_address_id, billing_address_id,
			age_verification_id, stake_call_id, payment_txn_id,
			total_cents, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	ex := s.execer(ctx)
	_, err := ex.ExecContext(ctx, query,
		ord.ID, ord.AccountID, string(ord.Status),
		ord.ShippingAddressID, ord.BillingAddressID,
		nullableUUID(ord.AgeVerificationID), ord.StakeCallID, ord.PaymentTransactionID,
		ord.TotalCents, ord.CreatedAt, ord.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents)
		VALUES ($1, $2, $3, $4)
	`
	for _, item := range ord.Items {
		if _, err := ex.ExecContext(ctx, itemQuery,
			ord.ID, item.ProductID, item.Quantity, item.UnitPriceCents,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Order, error) {
	query := `
		SELECT id, account_id, status, shipping_address_id, billing_address_id,
		       age_verification_id, stake_call_id, payment_txn_id,
		       total_cents, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	ex := s.execer(ctx)

	var (
		ord               Order
		status            string
		ageVerificationID *uuid.UUID
	)
	err := ex.QueryRowContext(ctx, query, id).Scan(
		&ord.ID, &ord.AccountID, &status,
		&ord.ShippingAddressID, &ord.BillingAddressID,
		&ageVerificationID, &ord.StakeCallID, &ord.PaymentTransactionID,
		&ord.TotalCents, &ord.CreatedAt, &ord.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, sentinel.ErrNotFound
		}
		return Order{}, fmt.Errorf("scan order: %w", err)
	}
	ord.Status = Status(status)
	if ageVerificationID != nil {
		ord.AgeVerificationID = *ageVerificationID
	}

	itemQuery := `
		SELECT product_id, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = $1
	`
	rows, err := ex.QueryContext(ctx, itemQuery, id)
	if err != nil {
		return Order{}, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return Order{}, fmt.Errorf("scan order item: %w", err)
		}
		ord.Items = append(ord.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("iterate order items: %w", err)
	}
	return ord, nil
}

// UpdateStatus is a compare-and-set on the status column so only one of two
// concurrent transitions can win.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) error {
	query := `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, id, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
