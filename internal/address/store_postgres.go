package address

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
	txcontext "ordergate/pkg/platform/tx"
)

// PostgresStore persists addresses. Pure I/O; eligibility policy lives in
// the Validator.
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

func (s *PostgresStore) Create(ctx context.Context, addr Address) error {
	query := `
		INSERT INTO addresses (id, account_id, recipient_name, line1, line2, city, region, postal_code, country, is_po_box, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		addr.ID, addr.AccountID, addr.RecipientName,
		addr.Line1, addr.Line2, addr.City, addr.Region, addr.PostalCode, addr.Country,
		addr.IsPoBox, addr.IsDefault, addr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Address, error) {
	query := `
		SELECT id, account_id, recipient_name, line1, line2, city, region, postal_code, country, is_po_box, is_default, created_at
		FROM addresses
		WHERE id = $1
	`
	var addr Address
	err := s.execer(ctx).QueryRowContext(ctx, query, id).Scan(
		&addr.ID, &addr.AccountID, &addr.RecipientName,
		&addr.Line1, &addr.Line2, &addr.City, &addr.Region, &addr.PostalCode, &addr.Country,
		&addr.IsPoBox, &addr.IsDefault, &addr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Address{}, sentinel.ErrNotFound
		}
		return Address{}, fmt.Errorf("get address: %w", err)
	}
	return addr, nil
}

// SetDefault enforces the at-most-one-default-per-account invariant: prior
// defaults are cleared and the new one set inside a single transaction.
func (s *PostgresStore) SetDefault(ctx context.Context, accountID uuid.UUID, id uuid.UUID) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		execer := s.execer(ctx)
		if _, err := execer.ExecContext(ctx,
			`UPDATE addresses SET is_default = FALSE WHERE account_id = $1 AND is_default`,
			accountID,
		); err != nil {
			return fmt.Errorf("clear default addresses: %w", err)
		}

		res, err := execer.ExecContext(ctx,
			`UPDATE addresses SET is_default = TRUE WHERE id = $1 AND account_id = $2`,
			id, accountID,
		)
		if err != nil {
			return fmt.Errorf("set default address: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sentinel.ErrNotFound
		}
		return nil
	})
}
