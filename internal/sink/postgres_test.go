package sink

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// fakeRow scans vals into dest positionally.
type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.vals[i]))
	}
	return nil
}

type fakeDB struct {
	execs []string
	sql   string
	args  []any
	row   fakeRow
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	f.sql = sql
	f.args = args
	return f.row
}

func TestPostgres_Save(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{vals: []any{pgtype.Timestamptz{Time: created, Valid: true}}}}
	p := NewPostgres(db)

	runID := uuid.New().String()
	saved, err := p.Save(context.Background(), Export{Name: "team", Payload: []byte("a\n"), Records: 3, RunID: runID})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := uuid.Parse(saved.ID); err != nil {
		t.Errorf("Saved.ID = %q is not a uuid", saved.ID)
	}
	if saved.Location != "postgres:chat_exports/"+saved.ID || saved.Name != "team.csv" || !saved.CreatedAt.Equal(created) {
		t.Errorf("Saved = %+v", saved)
	}
	if !strings.Contains(db.sql, "INSERT INTO chat_exports") {
		t.Errorf("sql = %s", db.sql)
	}
	if got := db.args[2].(pgtype.UUID); pgUUIDToString(got) != runID {
		t.Errorf("run_id arg = %v, want %s", got, runID)
	}
	if got := db.args[4].(int32); got != 3 {
		t.Errorf("record_count arg = %d, want 3", got)
	}
}

func TestPostgres_Get(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{vals: []any{
		"team.csv",
		pgtype.UUID{},
		int32(2),
		[]byte("ID\n1\n2\n"),
		pgtype.Timestamptz{Time: created, Valid: true},
	}}}
	p := NewPostgres(db)

	got, err := p.Get(context.Background(), id.String())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != id.String() || got.Records != 2 || got.Bytes != 7 || got.RunID != "" || string(got.Payload) != "ID\n1\n2\n" {
		t.Errorf("Get() = %+v", got)
	}
}

func TestPostgres_GetNotFound(t *testing.T) {
	p := NewPostgres(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})

	for _, id := range []string{uuid.New().String(), "not-a-uuid"} {
		if _, err := p.Get(context.Background(), id); !errors.Is(err, ErrExportNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrExportNotFound", id, err)
		}
	}
}

func TestPostgres_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := NewPostgres(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if len(db.execs) != len(schemaSQL) || !strings.Contains(db.execs[0], "CREATE TABLE IF NOT EXISTS chat_exports") {
		t.Errorf("execs = %v", db.execs)
	}
}

func TestPgUUIDHelpers(t *testing.T) {
	id := uuid.New()
	if got := pgUUIDToString(toPgUUID(id)); got != id.String() {
		t.Errorf("round trip = %q, want %q", got, id)
	}
	if parsePgUUID("").Valid || parsePgUUID("nope").Valid {
		t.Error("parsePgUUID should return NULL for invalid ids")
	}
	if pgUUIDToString(pgtype.UUID{}) != "" {
		t.Error("NULL uuid should render empty")
	}
}

// TestPostgres_Integration runs against a real database when
// CHATMERGE_TEST_DATABASE_URL is set.
func TestPostgres_Integration(t *testing.T) {
	url := os.Getenv("CHATMERGE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CHATMERGE_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	defer pool.Close()

	p := NewPostgres(pool)
	if err := p.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	saved, err := p.Save(ctx, Export{Name: "integration", Payload: []byte("ID\n1\n"), Records: 1})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(ctx, "DELETE FROM chat_exports WHERE id = $1", saved.ID)
	})

	got, err := p.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Payload) != "ID\n1\n" {
		t.Errorf("payload = %q", got.Payload)
	}

	list, err := p.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	found := false
	for _, e := range list {
		if e.ID == saved.ID {
			found = true
			if e.Payload != nil {
				t.Error("List should not load payloads")
			}
		}
	}
	if !found {
		t.Errorf("List() missing %s", saved.ID)
	}
}
