package admin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/courierbill/internal/rates"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const seedYAML = `
tables:
  trackon_hyd_rates:
    HYD:
      extra: 15
      slabs:
        - {weight: 1, rate: 40}
        - {weight: 0.5, rate: 25}
  courier_professional_kolkata_rates:
    within_city:
      extra: 8
      slabs:
        - {weight: 5, rate: 50}
        - {weight: 0.5, rate: 20}
`

// fakeTx records statements and copied rows. Methods it does not override
// panic through the nil embedded interface.
type fakeTx struct {
	pgx.Tx
	execs      []string
	copied     map[string][][]any
	copyErr    error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeTx) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	if f.copied == nil {
		f.copied = make(map[string][][]any)
	}
	var n int64
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return n, err
		}
		if len(values) != len(columns) {
			return n, errors.New("column count mismatch")
		}
		f.copied[table[0]] = append(f.copied[table[0]], values)
		n++
	}
	return n, src.Err()
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeDB struct{ tx *fakeTx }

func (d *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) { return d.tx, nil }

func decode(t *testing.T) *rates.File {
	t.Helper()
	f, err := rates.DecodeFile(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

var specs = []rates.TableSpec{
	{Name: "trackon_hyd_rates", Layout: rates.LayoutFlagged},
	{Name: "courier_professional_kolkata_rates", Layout: rates.LayoutSurcharge},
}

func TestSyncReplacesTables(t *testing.T) {
	tx := &fakeTx{}
	s := &RateSync{DB: &fakeDB{tx: tx}}

	written, err := s.Sync(context.Background(), decode(t), specs)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !tx.committed {
		t.Error("transaction not committed")
	}
	if written["trackon_hyd_rates"] != 3 || written["courier_professional_kolkata_rates"] != 2 {
		t.Errorf("written = %v", written)
	}

	if len(tx.execs) != 4 {
		t.Fatalf("execs = %d, want 4", len(tx.execs))
	}
	if !strings.HasPrefix(tx.execs[0], `CREATE TABLE IF NOT EXISTS "trackon_hyd_rates"`) {
		t.Errorf("exec[0] = %q", tx.execs[0])
	}
	if tx.execs[1] != `TRUNCATE "trackon_hyd_rates"` {
		t.Errorf("exec[1] = %q", tx.execs[1])
	}
	if !strings.Contains(tx.execs[2], "additional_per_kg") {
		t.Errorf("surcharge DDL = %q", tx.execs[2])
	}

	flagged := tx.copied["trackon_hyd_rates"]
	last := flagged[len(flagged)-1]
	if last[0] != "HYD" || last[1].(*float64) != nil || last[2] != 15.0 || last[3] != true {
		t.Errorf("per-kg row = %v", last)
	}

	surcharge := tx.copied["courier_professional_kolkata_rates"]
	heaviest := surcharge[1]
	if w := heaviest[1].(*float64); w == nil || *w != 5 {
		t.Errorf("heaviest slab weight = %v", heaviest[1])
	}
	if extra := heaviest[3].(*float64); extra == nil || *extra != 8 {
		t.Errorf("heaviest slab extra = %v", heaviest[3])
	}
	if extra := surcharge[0][3].(*float64); extra != nil {
		t.Errorf("lighter slab extra = %v, want nil", *extra)
	}
}

func TestSyncRollsBackOnError(t *testing.T) {
	tx := &fakeTx{copyErr: errors.New("copy failed")}
	s := &RateSync{DB: &fakeDB{tx: tx}}

	if _, err := s.Sync(context.Background(), decode(t), specs); err == nil {
		t.Fatal("Sync() expected error")
	}
	if tx.committed || !tx.rolledBack {
		t.Errorf("committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
}

func TestSyncMissingTable(t *testing.T) {
	tx := &fakeTx{}
	s := &RateSync{DB: &fakeDB{tx: tx}}

	_, err := s.Sync(context.Background(), decode(t), []rates.TableSpec{{Name: "franch_rates"}})
	if err == nil || !strings.Contains(err.Error(), "franch_rates") {
		t.Fatalf("err = %v", err)
	}
	if tx.committed {
		t.Error("transaction committed")
	}
}
