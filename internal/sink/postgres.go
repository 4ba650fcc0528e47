package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS chat_exports (
		id           uuid PRIMARY KEY,
		name         text NOT NULL,
		run_id       uuid,
		payload      bytea NOT NULL,
		record_count integer NOT NULL,
		created_at   timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS chat_exports_created_at_idx ON chat_exports (created_at DESC)`,
}

// Postgres keeps exports in the chat_exports table.
type Postgres struct {
	db DBTX
}

// NewPostgres returns a sink backed by db.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Name() string { return "postgres" }

// EnsureSchema creates the chat_exports table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaSQL {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("export: ensure schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, exp Export) (Saved, error) {
	name, err := CleanName(exp.Name, "merged_logs.csv")
	if err != nil {
		return Saved{}, err
	}

	id := uuid.New()
	var createdAt pgtype.Timestamptz
	err = p.db.QueryRow(ctx,
		`INSERT INTO chat_exports (id, name, run_id, payload, record_count)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		toPgUUID(id), name, parsePgUUID(exp.RunID), exp.Payload, int32(exp.Records),
	).Scan(&createdAt)
	if err != nil {
		return Saved{}, fmt.Errorf("export: insert: %w", err)
	}

	return Saved{
		ID:        id.String(),
		Sink:      p.Name(),
		Location:  "postgres:chat_exports/" + id.String(),
		Name:      name,
		Records:   exp.Records,
		Bytes:     len(exp.Payload),
		CreatedAt: createdAt.Time.UTC(),
	}, nil
}

// StoredExport is one row of chat_exports.
type StoredExport struct {
	Saved
	RunID   string `json:"run_id,omitempty"`
	Payload []byte `json:"-"`
}

// List returns the most recent exports without their payloads.
func (p *Postgres) List(ctx context.Context, limit int) ([]StoredExport, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.db.Query(ctx,
		`SELECT id, name, run_id, record_count, octet_length(payload), created_at
		 FROM chat_exports
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("export: list: %w", err)
	}
	defer rows.Close()

	var out []StoredExport
	for rows.Next() {
		var (
			id        pgtype.UUID
			name      string
			runID     pgtype.UUID
			records   int32
			size      int32
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &name, &runID, &records, &size, &createdAt); err != nil {
			return nil, fmt.Errorf("export: list scan: %w", err)
		}
		out = append(out, p.stored(id, name, runID, records, int(size), createdAt, nil))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export: list: %w", err)
	}
	return out, nil
}

// Get returns one export including its payload.
func (p *Postgres) Get(ctx context.Context, id string) (StoredExport, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return StoredExport{}, fmt.Errorf("%w: %q", ErrExportNotFound, id)
	}

	var (
		name      string
		runID     pgtype.UUID
		records   int32
		payload   []byte
		createdAt pgtype.Timestamptz
	)
	err = p.db.QueryRow(ctx,
		`SELECT name, run_id, record_count, payload, created_at
		 FROM chat_exports WHERE id = $1`, toPgUUID(uid),
	).Scan(&name, &runID, &records, &payload, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredExport{}, fmt.Errorf("%w: %s", ErrExportNotFound, id)
	}
	if err != nil {
		return StoredExport{}, fmt.Errorf("export: get: %w", err)
	}

	return p.stored(toPgUUID(uid), name, runID, records, len(payload), createdAt, payload), nil
}

func (p *Postgres) stored(id pgtype.UUID, name string, runID pgtype.UUID, records int32, size int, createdAt pgtype.Timestamptz, payload []byte) StoredExport {
	s := StoredExport{
		Saved: Saved{
			ID:        pgUUIDToString(id),
			Sink:      p.Name(),
			Location:  "postgres:chat_exports/" + pgUUIDToString(id),
			Name:      name,
			Records:   int(records),
			Bytes:     size,
			CreatedAt: createdAt.Time.UTC(),
		},
		RunID:   pgUUIDToString(runID),
		Payload: payload,
	}
	if !createdAt.Valid {
		s.CreatedAt = time.Time{}
	}
	return s
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// parsePgUUID returns a NULL uuid for an empty or malformed id.
func parsePgUUID(s string) pgtype.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}
	}
	return toPgUUID(id)
}

func pgUUIDToString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
