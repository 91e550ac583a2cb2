package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rws-cli/internal/db"
	"github.com/sells-group/rws-cli/internal/model"
)

// PostgresStore implements Store on the same database the PostGIS engine uses.
type PostgresStore struct {
	pool    db.Pool
	clock   clockwork.Clock
	closeFn func()
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with its own connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, opts ...Option) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
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

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	s := NewPostgresFromPool(pool, opts...)
	s.closeFn = pool.Close
	return s, nil
}

// NewPostgresFromPool wraps an existing pool. Close does not close the pool.
func NewPostgresFromPool(pool db.Pool, opts ...Option) *PostgresStore {
	o := buildOptions(opts)
	return &PostgresStore{pool: pool, clock: o.clock}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name           TEXT NOT NULL,
	country        TEXT NOT NULL,
	method         TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'running',
	national_total DOUBLE PRECISION NOT NULL DEFAULT 0,
	coverage       DOUBLE PRECISION NOT NULL DEFAULT 0,
	result         JSONB,
	error          TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_layers (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	layer    TEXT NOT NULL,
	kind     TEXT NOT NULL,
	position SERIAL,
	PRIMARY KEY (run_id, layer)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_country ON runs(lower(country));
CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
`

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

func (s *PostgresStore) CreateRun(ctx context.Context, name, country string, method model.Method) (*model.Run, error) {
	id := uuid.New().String()
	now := s.clock.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, name, country, method, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, name, country, string(method), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Name:      name,
		Country:   country,
		Method:    method,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result *model.Result) error {
	if result == nil {
		return eris.New("postgres: complete run without result")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, country = COALESCE(NULLIF($2, ''), country), national_total = $3, coverage = $4, result = $5, updated_at = $6 WHERE id = $7`,
		string(model.RunStatusComplete), result.Country, result.NationalTotal, result.Coverage, resultJSON,
		s.clock.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), errorText(cause), s.clock.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: get run %s: run not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Country != "" {
		query += fmt.Sprintf(` AND lower(country) = lower($%d)`, argIdx)
		args = append(args, filter.Country)
		argIdx++
	}
	if filter.Name != "" {
		query += fmt.Sprintf(` AND name = $%d`, argIdx)
		args = append(args, filter.Name)
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) AddLayers(ctx context.Context, runID string, layers []model.Layer) error {
	if len(layers) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin add layers")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, l := range layers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO run_layers (run_id, layer, kind) VALUES ($1, $2, $3)
			 ON CONFLICT (run_id, layer) DO UPDATE SET kind = EXCLUDED.kind`,
			runID, l.Name, string(l.Kind),
		); err != nil {
			return eris.Wrapf(err, "postgres: insert layer %s for run %s", l.Name, runID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit add layers")
}

func (s *PostgresStore) Layers(ctx context.Context, runID string) ([]model.Layer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT layer, kind FROM run_layers WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list layers for run %s", runID)
	}
	defer rows.Close()

	var out []model.Layer
	for rows.Next() {
		var l model.Layer
		var kind string
		if err := rows.Scan(&l.Name, &kind); err != nil {
			return nil, eris.Wrap(err, "postgres: scan layer")
		}
		l.Kind = model.LayerKind(kind)
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list layers iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var method, status string
	var resultJSON []byte
	var errText *string

	if err := row.Scan(&r.ID, &r.Name, &r.Country, &method, &status, &r.NationalTotal, &r.Coverage,
		&resultJSON, &errText, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Method = model.Method(method)
	r.Status = model.RunStatus(status)
	if errText != nil {
		r.Error = *errText
	}
	if len(resultJSON) > 0 {
		r.Result = &model.Result{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}
