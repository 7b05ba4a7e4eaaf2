package service

import (
	"context"
	"database/sql"

	txcontext "ordergate/pkg/platform/tx"
)

// SQLCommitter runs the pipeline commit inside one database transaction.
// Stores pick the transaction up from the context, so every write in the
// closure commits or rolls back together.
type SQLCommitter struct {
	db *sql.DB
}

func NewSQLCommitter(db *sql.DB) SQLCommitter {
	return SQLCommitter{db: db}
}

func (c SQLCommitter) Commit(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, c.db, fn)
}

// NopCommitter backs memory stores, which apply writes immediately.
type NopCommitter struct{}

func (NopCommitter) Commit(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
