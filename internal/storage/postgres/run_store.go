// Package postgres provides the Postgres-backed run store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/runner"
)

// DefaultTable holds run metadata when no table is configured.
const DefaultTable = "ingestion_runs"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RunStoreConfig controls the Postgres connection pool used for run rows.
type RunStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// RunStore writes run metadata into Postgres.
type RunStore struct {
	pool  pool
	table string
}

// NewRunStore connects a pool using cfg.
func NewRunStore(ctx context.Context, cfg RunStoreConfig) (*RunStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database url is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RunStore{pool: p, table: table}, nil
}

// NewRunStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRunStoreWithPool(p pool, table string) (*RunStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &RunStore{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *RunStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the run table if it does not exist.
func (s *RunStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id           TEXT PRIMARY KEY,
	job          TEXT NOT NULL,
	subject      TEXT NOT NULL DEFAULT '',
	since_days   INTEGER NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ,
	status       TEXT NOT NULL,
	record_count INTEGER NOT NULL DEFAULT 0,
	error_text   TEXT NOT NULL DEFAULT ''
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// StartRun inserts a run row in running status.
func (s *RunStore) StartRun(ctx context.Context, run runner.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	job,
	subject,
	since_days,
	started_at,
	status
) VALUES (
	$1,$2,$3,$4,$5,$6
)`, s.table)

	if _, err := s.pool.Exec(ctx, query,
		run.ID,
		run.Job,
		run.Subject,
		run.SinceDays,
		run.StartedAt,
		string(run.Status),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final status, finish time and counters of a run.
func (s *RunStore) FinishRun(ctx context.Context, run runner.Run) error {
	query := fmt.Sprintf(`
UPDATE %s
SET status = $2, finished_at = $3, record_count = $4, error_text = $5
WHERE id = $1`, s.table)

	tag, err := s.pool.Exec(ctx, query,
		run.ID,
		string(run.Status),
		run.FinishedAt,
		run.RecordCount,
		run.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", runner.ErrRunNotFound, run.ID)
	}
	return nil
}

const selectColumns = `id, job, subject, since_days, started_at, finished_at, status, record_count, error_text`

// GetRun loads a run by ID.
func (s *RunStore) GetRun(ctx context.Context, id string) (runner.Run, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, selectColumns, s.table)
	run, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return runner.Run{}, fmt.Errorf("%w: %s", runner.ErrRunNotFound, id)
	}
	if err != nil {
		return runner.Run{}, fmt.Errorf("select run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. An empty job matches all
// jobs; a non-positive limit returns every match.
func (s *RunStore) ListRuns(ctx context.Context, job string, limit int) ([]runner.Run, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE ($1 = '' OR job = $1) ORDER BY started_at DESC`, selectColumns, s.table)
	args := []any{job}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []runner.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func scanRun(row pgx.Row) (runner.Run, error) {
	var (
		run      runner.Run
		status   string
		finished pgtype.Timestamptz
	)
	if err := row.Scan(
		&run.ID,
		&run.Job,
		&run.Subject,
		&run.SinceDays,
		&run.StartedAt,
		&finished,
		&status,
		&run.RecordCount,
		&run.ErrorText,
	); err != nil {
		return runner.Run{}, err
	}
	run.Status = runner.Status(status)
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return run, nil
}
