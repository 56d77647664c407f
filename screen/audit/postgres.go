package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table PostgresAuditor writes to when none is given.
const DefaultTable = "screen_violations"

// execer is the subset of *pgxpool.Pool the auditor needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresAuditor inserts one row per event. Expected schema:
//
//	CREATE TABLE screen_violations (
//	  id bigserial PRIMARY KEY,
//	  at timestamptz NOT NULL,
//	  screen text NOT NULL,
//	  context text NOT NULL,
//	  tool text,
//	  categories text[] NOT NULL,
//	  max_confidence double precision NOT NULL,
//	  dry_run boolean NOT NULL
//	);
type PostgresAuditor struct {
	db    execer
	pool  *pgxpool.Pool
	table string
}

// NewPostgresAuditor connects to dsn and creates the table if needed.
func NewPostgresAuditor(ctx context.Context, dsn, table string) (*PostgresAuditor, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}
	a := newPostgresAuditor(pool, table)
	a.pool = pool
	if err := a.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func newPostgresAuditor(db execer, table string) *PostgresAuditor {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresAuditor{db: db, table: table}
}

// EnsureSchema creates the violations table when it does not exist.
func (a *PostgresAuditor) EnsureSchema(ctx context.Context) error {
	_, err := a.db.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id bigserial PRIMARY KEY,
  at timestamptz NOT NULL,
  screen text NOT NULL,
  context text NOT NULL,
  tool text,
  categories text[] NOT NULL,
  max_confidence double precision NOT NULL,
  dry_run boolean NOT NULL
)`, a.table))
	if err != nil {
		return fmt.Errorf("audit: create table: %w", err)
	}
	return nil
}

func (a *PostgresAuditor) Record(ctx context.Context, e Event) error {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	categories := e.Categories
	if categories == nil {
		categories = []string{}
	}
	var tool *string
	if e.Tool != "" {
		tool = &e.Tool
	}
	_, err := a.db.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (at, screen, context, tool, categories, max_confidence, dry_run) VALUES ($1,$2,$3,$4,$5,$6,$7)", a.table),
		at, e.Screen, e.Label, tool, categories, e.MaxConfidence, e.DryRun)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (a *PostgresAuditor) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

var _ Auditor = (*PostgresAuditor)(nil)
