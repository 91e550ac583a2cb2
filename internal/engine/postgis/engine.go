// Package postgis implements engine.Engine on a PostGIS database. Every layer is
// a table in one schema: feature layers share a fixed column layout, raster
// layers are raster2pgsql-style (rid, rast) tables.
package postgis

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/db"
	"github.com/sells-group/rws-cli/internal/engine"
)

// Config holds workspace settings.
type Config struct {
	Schema           string // target schema; empty uses search_path
	SRID             int    // SRID of imported data, default 4326
	Raster2PgsqlPath string // raster2pgsql binary, default "raster2pgsql"
	TileSize         string // raster tile size, default "256x256"
}

// runner executes an external command and returns its stdout.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Engine is a PostGIS-backed layer workspace.
type Engine struct {
	pool db.Pool
	cfg  Config
	run  runner
	log  *zap.Logger
}

var _ engine.Engine = (*Engine)(nil)

// New creates an Engine. The caller owns pool.
func New(pool db.Pool, cfg Config) *Engine {
	if cfg.SRID == 0 {
		cfg.SRID = 4326
	}
	if cfg.Raster2PgsqlPath == "" {
		cfg.Raster2PgsqlPath = "raster2pgsql"
	}
	if cfg.TileSize == "" {
		cfg.TileSize = "256x256"
	}
	return &Engine{
		pool: pool,
		cfg:  cfg,
		run:  execCommand,
		log:  zap.L().With(zap.String("component", "engine.postgis")),
	}
}

// EnsureSchema creates the workspace schema if it does not exist.
func (e *Engine) EnsureSchema(ctx context.Context) error {
	if e.cfg.Schema == "" {
		return nil
	}
	sql := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{e.cfg.Schema}.Sanitize()
	if _, err := e.pool.Exec(ctx, sql); err != nil {
		return eris.Wrap(err, "postgis: ensure schema")
	}
	return nil
}

// Exists reports whether the layer table exists.
func (e *Engine) Exists(ctx context.Context, layer string) (bool, error) {
	var ok bool
	err := e.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", e.table(layer)).Scan(&ok)
	if err != nil {
		return false, eris.Wrapf(err, "postgis: check layer %s", layer)
	}
	return ok, nil
}

// Drop removes the layer table.
func (e *Engine) Drop(ctx context.Context, layer string) error {
	if _, err := e.pool.Exec(ctx, "DROP TABLE IF EXISTS "+e.table(layer)); err != nil {
		return eris.Wrapf(err, "postgis: drop layer %s", layer)
	}
	return nil
}

// Close is a no-op; the pool belongs to the caller.
func (e *Engine) Close() error { return nil }

// table returns the quoted, schema-qualified table name of a layer.
func (e *Engine) table(layer string) string {
	if e.cfg.Schema == "" {
		return pgx.Identifier{layer}.Sanitize()
	}
	return pgx.Identifier{e.cfg.Schema, layer}.Sanitize()
}

// createFeatureTable (re)creates an empty feature layer.
func (e *Engine) createFeatureTable(ctx context.Context, layer string) error {
	t := e.table(layer)
	stmts := []string{
		"DROP TABLE IF EXISTS " + t,
		fmt.Sprintf(`CREATE TABLE %s (
	id          bigserial PRIMARY KEY,
	name        text,
	zone        integer,
	source_zone integer,
	value       double precision,
	geom        geometry(Geometry, %d)
)`, t, e.cfg.SRID),
		fmt.Sprintf("CREATE INDEX ON %s USING gist (geom)", t),
	}
	for _, s := range stmts {
		if _, err := e.pool.Exec(ctx, s); err != nil {
			return eris.Wrapf(err, "postgis: create layer %s", layer)
		}
	}
	return nil
}

// createRasterTable (re)creates an empty raster layer.
func (e *Engine) createRasterTable(ctx context.Context, layer string) error {
	t := e.table(layer)
	for _, s := range []string{
		"DROP TABLE IF EXISTS " + t,
		fmt.Sprintf("CREATE TABLE %s (rid serial PRIMARY KEY, rast raster)", t),
	} {
		if _, err := e.pool.Exec(ctx, s); err != nil {
			return eris.Wrapf(err, "postgis: create raster layer %s", layer)
		}
	}
	return nil
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "postgis: %s failed: %s", name, stderr.String())
	}
	return stdout.Bytes(), nil
}
