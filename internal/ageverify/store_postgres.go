package ageverify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
	txcontext "ordergate/pkg/platform/tx"
)

// PostgresStore persists verification records. Insert-only: the table has no
// update path because verification results are immutable once recorded.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, result Result) error {
	query := `
		INSERT INTO age_verifications (id, status, reference_id, reason_code, message, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var execer interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	} = s.db
	if tx, ok := txcontext.From(ctx); ok {
		execer = tx
	}
	_, err := execer.ExecContext(ctx, query,
		result.ID, string(result.Status), result.ReferenceID, result.ReasonCode, result.Message, result.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("insert age verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Result, error) {
	query := `
		SELECT id, status, reference_id, reason_code, message, verified_at
		FROM age_verifications
		WHERE id = $1
	`
	var (
		r      Result
		status string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &status, &r.ReferenceID, &r.ReasonCode, &r.Message, &r.VerifiedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, sentinel.ErrNotFound
		}
		return Result{}, fmt.Errorf("get age verification: %w", err)
	}
	r.Status = Status(status)
	return r, nil
}
