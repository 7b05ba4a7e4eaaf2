package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
	txcontext "ordergate/pkg/platform/tx"
)

// PostgresStore persists snapshots. Insert-only by design: there is no
// update statement in this file, and the table's UNIQUE(order_id) constraint
// enforces exactly one snapshot per order.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, snap Snapshot) error {
	verification, err := json.Marshal(snap.AgeVerification)
	if err != nil {
		return fmt.Errorf("marshal age verification outcome: %w", err)
	}
	eligibility, err := json.Marshal(snap.AddressEligibility)
	if err != nil {
		return fmt.Errorf("marshal address eligibility: %w", err)
	}
	flags, err := json.Marshal(snap.ProductFlags)
	if err != nil {
		return fmt.Errorf("marshal product flags: %w", err)
	}

	query := `
		INSERT INTO compliance_snapshots (id, order_id, age_verification, address_eligibility, product_flags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var execer interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	} = s.db
	if tx, ok := txcontext.From(ctx); ok {
		execer = tx
	}
	if _, err := execer.ExecContext(ctx, query,
		snap.ID, snap.OrderID, verification, eligibility, flags, snap.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert compliance snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByOrder(ctx context.Context, orderID uuid.UUID) (Snapshot, error) {
	query := `
		SELECT id, order_id, age_verification, address_eligibility, product_flags, created_at
		FROM compliance_snapshots
		WHERE order_id = $1
	`
	var (
		snap         Snapshot
		verification []byte
		eligibility  []byte
		flags        []byte
	)
	err := s.db.QueryRowContext(ctx, query, orderID).Scan(
		&snap.ID, &snap.OrderID, &verification, &eligibility, &flags, &snap.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, sentinel.ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("get compliance snapshot: %w", err)
	}
	if err := json.Unmarshal(verification, &snap.AgeVerification); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal age verification outcome: %w", err)
	}
	if err := json.Unmarshal(eligibility, &snap.AddressEligibility); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal address eligibility: %w", err)
	}
	if err := json.Unmarshal(flags, &snap.ProductFlags); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal product flags: %w", err)
	}
	return snap, nil
}
