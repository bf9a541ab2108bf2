package rates

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool used for reading rate tables.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ Querier = (*pgxpool.Pool)(nil)

// PgStore reads rate tables from PostgreSQL.
type PgStore struct {
	db Querier
}

// NewPgStore creates a store backed by db.
func NewPgStore(db Querier) *PgStore {
	return &PgStore{db: db}
}

// selectSQL returns the query for a table layout. The table name is quoted
// with pgx.Identifier so it can never inject SQL.
func selectSQL(spec TableSpec) string {
	table := pgx.Identifier{spec.Name}.Sanitize()
	if spec.Layout == LayoutSurcharge {
		return fmt.Sprintf(`SELECT rate_type, COALESCE(weight_slab, 0)::float8, rate::float8, additional_per_kg::float8 FROM %s`, table)
	}
	return fmt.Sprintf(`SELECT zone, COALESCE(slab_weight, 0)::float8, rate::float8, COALESCE(is_per_kg, false) FROM %s`, table)
}

// Load reads the whole table into memory.
func (s *PgStore) Load(ctx context.Context, spec TableSpec) (Book, error) {
	rows, err := s.db.Query(ctx, selectSQL(spec))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", spec.Name, err)
	}
	defer rows.Close()

	book := make(Book)
	for rows.Next() {
		var (
			zone         string
			weight, rate float64
			extra        *float64
			isExtra      bool
		)

		if spec.Layout == LayoutSurcharge {
			err = rows.Scan(&zone, &weight, &rate, &extra)
		} else {
			err = rows.Scan(&zone, &weight, &rate, &isExtra)
		}
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", spec.Name, err)
		}

		book.addRow(spec.Layout, zone, weight, rate, extra, isExtra)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", spec.Name, err)
	}

	return book, nil
}
