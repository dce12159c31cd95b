package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS activity_events (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	session_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	filename   TEXT NOT NULL DEFAULT '',
	rows_in    INTEGER NOT NULL DEFAULT 0,
	rows_out   INTEGER NOT NULL DEFAULT 0,
	spec       JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_activity_events_session ON activity_events(session_id);
CREATE INDEX IF NOT EXISTS idx_activity_events_kind ON activity_events(kind);
CREATE INDEX IF NOT EXISTS idx_activity_events_created_at ON activity_events(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event Event) (*Event, error) {
	event.ID = uuid.New().String()
	event.CreatedAt = time.Now().UTC()

	spec := event.Spec
	if spec == "" {
		spec = "{}"
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO activity_events (id, session_id, kind, filename, rows_in, rows_out, spec, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.SessionID, string(event.Kind), event.Filename,
		event.RowsIn, event.RowsOut, spec, event.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert event")
	}
	return &event, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, q Query) ([]Event, error) {
	query := `SELECT id, session_id, kind, filename, rows_in, rows_out, spec::text, created_at
	          FROM activity_events WHERE 1=1`
	var args []any

	if q.SessionID != "" {
		args = append(args, q.SessionID)
		query += ` AND session_id = $1`
	}
	if q.Kind != "" {
		args = append(args, string(q.Kind))
		query += placeholder(` AND kind = `, len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += placeholder(` LIMIT `, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.ID, &e.SessionID, &kind, &e.Filename,
			&e.RowsIn, &e.RowsOut, &e.Spec, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		e.Kind = EventKind(kind)
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list events iterate")
}

func placeholder(prefix string, n int) string {
	return fmt.Sprintf("%s$%d", prefix, n)
}
