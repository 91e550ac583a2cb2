package postgis

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/db"
	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/shapefile"
)

// ImportFeatures reads a shapefile and COPYs it into a new feature layer.
func (e *Engine) ImportFeatures(ctx context.Context, path string, spec engine.FeatureSpec, out string) (int, error) {
	records, err := shapefile.Read(path, shapefile.Spec{
		NameField: spec.NameField,
		ZoneField: spec.ZoneField,
		SRID:      e.cfg.SRID,
	})
	if err != nil {
		return 0, eris.Wrap(err, "postgis: import features")
	}

	if err := e.createFeatureTable(ctx, out); err != nil {
		return 0, err
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		var name, zone any
		if spec.NameField != "" {
			name = r.Name
		}
		if spec.ZoneField != "" {
			zone = int32(r.Zone)
		}
		rows[i] = []any{name, zone, r.WKB}
	}

	n, err := db.CopyInto(ctx, e.pool, e.cfg.Schema, out, []string{"name", "zone", "geom"}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgis: import features")
	}

	// Shapefile rings are not guaranteed valid; overlays need them to be.
	sql := "UPDATE " + e.table(out) + " SET geom = ST_MakeValid(geom) WHERE NOT ST_IsValid(geom)"
	if _, err := e.pool.Exec(ctx, sql); err != nil {
		return 0, eris.Wrapf(err, "postgis: repair geometries in %s", out)
	}

	e.log.Debug("imported features",
		zap.String("path", path),
		zap.String("layer", out),
		zap.Int64("rows", n),
	)
	return int(n), nil
}

// ImportRaster loads a raster file with raster2pgsql and executes the generated SQL.
func (e *Engine) ImportRaster(ctx context.Context, path, out string) error {
	target := out
	if e.cfg.Schema != "" {
		target = e.cfg.Schema + "." + out
	}
	args := []string{
		"-d",
		"-s", strconv.Itoa(e.cfg.SRID),
		"-t", e.cfg.TileSize,
		"-I",
		"-q",
		path,
		target,
	}
	sql, err := e.run(ctx, e.cfg.Raster2PgsqlPath, args...)
	if err != nil {
		return eris.Wrapf(err, "postgis: import raster %s", path)
	}
	if len(sql) == 0 {
		return eris.Errorf("postgis: raster2pgsql produced no output for %s", path)
	}

	if _, err := e.pool.Exec(ctx, string(sql)); err != nil {
		return eris.Wrapf(err, "postgis: load raster %s", out)
	}

	e.log.Debug("imported raster", zap.String("path", path), zap.String("layer", out))
	return nil
}
