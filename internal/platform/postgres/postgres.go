// Package postgres opens the shared database/sql pool backed by the pgx
// driver. Stores use database/sql so they can join transactions carried in
// context (pkg/platform/tx).
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables this service owns when they are missing.
// Production deployments run migrations instead; this keeps local and test
// environments self-contained.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS addresses (
	id               uuid PRIMARY KEY,
	account_id       uuid,
	recipient_name   text NOT NULL,
	line1            text NOT NULL,
	line2            text NOT NULL DEFAULT '',
	city             text NOT NULL,
	region           text NOT NULL,
	postal_code      text NOT NULL,
	country          text NOT NULL,
	is_po_box        boolean NOT NULL DEFAULT false,
	is_default       boolean NOT NULL DEFAULT false,
	created_at       timestamptz NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS addresses_one_default_per_account
	ON addresses (account_id) WHERE is_default;

CREATE TABLE IF NOT EXISTS products (
	id               uuid PRIMARY KEY,
	name             text NOT NULL,
	nicotine_mg_ml   numeric NOT NULL,
	regulator_approved boolean NOT NULL,
	flavor_restricted  boolean NOT NULL DEFAULT false,
	unit_price_cents bigint NOT NULL
);

CREATE TABLE IF NOT EXISTS age_verifications (
	id           uuid PRIMARY KEY,
	status       text NOT NULL,
	reference_id text NOT NULL DEFAULT '',
	reason_code  text NOT NULL DEFAULT '',
	message      text NOT NULL DEFAULT '',
	verified_at  timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS stake_calls (
	id          uuid PRIMARY KEY,
	order_id    uuid NOT NULL,
	result      text NOT NULL,
	reason_code text NOT NULL DEFAULT '',
	invoked_at  timestamptz NOT NULL,
	resolved_at timestamptz
);

CREATE TABLE IF NOT EXISTS compliance_snapshots (
	id                  uuid PRIMARY KEY,
	order_id            uuid NOT NULL UNIQUE,
	age_verification    jsonb NOT NULL,
	address_eligibility jsonb NOT NULL,
	product_flags       jsonb NOT NULL,
	created_at          timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_transactions (
	id               uuid PRIMARY KEY,
	gateway_txn_id   text NOT NULL,
	amount_cents     bigint NOT NULL,
	status           text NOT NULL,
	response_code    text NOT NULL DEFAULT '',
	card_last4       text NOT NULL DEFAULT '',
	created_at       timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	id                   uuid PRIMARY KEY,
	account_id           uuid,
	status               text NOT NULL,
	shipping_address_id  uuid NOT NULL REFERENCES addresses(id),
	billing_address_id   uuid NOT NULL REFERENCES addresses(id),
	age_verification_id  uuid REFERENCES age_verifications(id),
	stake_call_id        uuid REFERENCES stake_calls(id),
	payment_txn_id       uuid REFERENCES payment_transactions(id),
	total_cents          bigint NOT NULL,
	created_at           timestamptz NOT NULL,
	updated_at           timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
	order_id         uuid NOT NULL REFERENCES orders(id),
	product_id       uuid NOT NULL,
	quantity         int NOT NULL,
	unit_price_cents bigint NOT NULL,
	PRIMARY KEY (order_id, product_id)
);

CREATE TABLE IF NOT EXISTS audit_outbox (
	id           uuid PRIMARY KEY,
	aggregate_id text NOT NULL,
	event_type   text NOT NULL,
	payload      jsonb NOT NULL,
	status       text NOT NULL DEFAULT 'PENDING',
	created_at   timestamptz NOT NULL,
	published_at timestamptz
);
CREATE INDEX IF NOT EXISTS audit_outbox_pending
	ON audit_outbox (created_at) WHERE status = 'PENDING';
`
