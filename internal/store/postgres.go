package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/phylo-tools/strainfilter/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO runs (id, metadata, options, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"complete_run": `UPDATE runs SET status = $1, outcome = $2, completed_at = $3 WHERE id = $4`,
	"fail_run":     `UPDATE runs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
	"get_run":      `SELECT id, metadata, options, status, error, outcome, created_at, completed_at FROM runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	metadata     TEXT NOT NULL,
	options      JSONB,
	status       TEXT NOT NULL DEFAULT 'running',
	error        TEXT NOT NULL DEFAULT '',
	outcome      JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_metadata ON runs(metadata);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, metadata string, options []byte) (*model.FilterRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, metadata, options, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, metadata, options, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.FilterRun{
		ID:        id,
		Metadata:  metadata,
		Options:   options,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, outcome *model.Outcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outcome")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, outcome = $2, completed_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), outcomeJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), cause, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.FilterRun, error) {
	var r model.FilterRun
	var options, outcome []byte
	var completedAt *time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT id, metadata, options, status, error, outcome, created_at, completed_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Metadata, &options, &r.Status, &r.Error, &outcome, &r.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("run not found: %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	r.Options = options
	if outcome != nil {
		r.Outcome = &model.Outcome{}
		if err := json.Unmarshal(outcome, r.Outcome); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal outcome")
		}
	}
	r.CompletedAt = completedAt
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.FilterRun, error) {
	query := `SELECT id, metadata, options, status, error, outcome, created_at, completed_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Metadata != "" {
		query += fmt.Sprintf(` AND metadata = $%d`, argIdx)
		args = append(args, filter.Metadata)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.FilterRun
	for rows.Next() {
		var r model.FilterRun
		var options, outcome []byte
		var completedAt *time.Time

		if err := rows.Scan(&r.ID, &r.Metadata, &options, &r.Status, &r.Error, &outcome, &r.CreatedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Options = options
		if outcome != nil {
			r.Outcome = &model.Outcome{}
			if err := json.Unmarshal(outcome, r.Outcome); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal outcome")
			}
		}
		r.CompletedAt = completedAt
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
