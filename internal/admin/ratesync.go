// Package admin provides administrative operations for the rate database.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/courierbill/internal/rates"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SyncTimeout is the maximum duration of one rate sync.
const SyncTimeout = 2 * time.Minute

// TxBeginner starts transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// tableWriter is the part of pgx.Tx used to replace one table.
type tableWriter interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// RateSync replaces rate tables with the contents of a rate file.
type RateSync struct {
	DB TxBeginner
}

// Sync creates missing tables and replaces every table in specs with the
// file's rows. All tables change in one transaction; on any error none do.
// It returns the number of rows written per table.
func (s *RateSync) Sync(ctx context.Context, file *rates.File, specs []rates.TableSpec) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, SyncTimeout)
	defer cancel()

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin rate sync: %w", err)
	}
	defer tx.Rollback(ctx)

	written := make(map[string]int64, len(specs))
	for _, spec := range specs {
		n, err := replaceTable(ctx, tx, file, spec)
		if err != nil {
			return nil, err
		}
		written[spec.Name] = n
		slog.Info("rate table replaced", "table", spec.Name, "layout", spec.Layout.String(), "rows", n)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit rate sync: %w", err)
	}
	return written, nil
}

func replaceTable(ctx context.Context, w tableWriter, file *rates.File, spec rates.TableSpec) (int64, error) {
	rows, err := file.Rows(spec)
	if err != nil {
		return 0, err
	}

	table := pgx.Identifier{spec.Name}
	if _, err := w.Exec(ctx, createSQL(spec)); err != nil {
		return 0, fmt.Errorf("create %s: %w", spec.Name, err)
	}
	if _, err := w.Exec(ctx, "TRUNCATE "+table.Sanitize()); err != nil {
		return 0, fmt.Errorf("truncate %s: %w", spec.Name, err)
	}

	n, err := w.CopyFrom(ctx, table, copyColumns(spec), pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return copyValues(spec, rows[i]), nil
	}))
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", spec.Name, err)
	}
	return n, nil
}

// createSQL returns the DDL for a table in spec's layout.
func createSQL(spec rates.TableSpec) string {
	table := pgx.Identifier{spec.Name}.Sanitize()
	if spec.Layout == rates.LayoutSurcharge {
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id                SERIAL PRIMARY KEY,
	rate_type         TEXT NOT NULL,
	weight_slab       NUMERIC,
	rate              NUMERIC NOT NULL,
	additional_per_kg NUMERIC
)`, table)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          SERIAL PRIMARY KEY,
	zone        TEXT NOT NULL,
	slab_weight NUMERIC,
	rate        NUMERIC NOT NULL,
	is_per_kg   BOOLEAN NOT NULL DEFAULT FALSE
)`, table)
}

func copyColumns(spec rates.TableSpec) []string {
	if spec.Layout == rates.LayoutSurcharge {
		return []string{"rate_type", "weight_slab", "rate", "additional_per_kg"}
	}
	return []string{"zone", "slab_weight", "rate", "is_per_kg"}
}

func copyValues(spec rates.TableSpec, r rates.Row) []any {
	if spec.Layout == rates.LayoutSurcharge {
		return []any{r.Zone, r.Weight, r.Rate, r.Extra}
	}
	return []any{r.Zone, r.Weight, r.Rate, r.IsExtra}
}
