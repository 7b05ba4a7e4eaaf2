package product

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
)

// PostgresStore reads products from the catalog tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindByIDs returns the products for the given IDs, erroring if any is missing.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	query := `
		SELECT id, name, nicotine_mg_ml, regulator_approved, flavor_restricted, unit_price_cents
		FROM products
		WHERE id = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.NicotineMgPerML, &p.RegulatorApproved, &p.FlavorRestricted, &p.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, sentinel.ErrNotFound
		}
		out = append(out, p)
	}
	return out, nil
}
