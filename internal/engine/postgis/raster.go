package postgis

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/model"
)

// PolygonToRaster burns polygon zone ids into a 32-bit integer raster aligned
// to the origin. Zone 0 is nodata.
func (e *Engine) PolygonToRaster(ctx context.Context, polygons string, cellSize float64, out string) error {
	if cellSize <= 0 {
		return eris.Errorf("postgis: cell size must be positive, got %v", cellSize)
	}
	if err := e.createRasterTable(ctx, out); err != nil {
		return err
	}
	sql := fmt.Sprintf(`INSERT INTO %s (rast)
SELECT ST_Union(ST_AsRaster(geom, $1::float8, -$1::float8, 0::float8, 0::float8, '32BSI', zone::float8, 0::float8))
FROM %s
WHERE zone IS NOT NULL`, e.table(out), e.table(polygons))

	if _, err := e.pool.Exec(ctx, sql, cellSize); err != nil {
		return eris.Wrapf(err, "postgis: rasterize %s", polygons)
	}
	return nil
}

// RasterToPoints writes one point per cell with data at the cell centre.
func (e *Engine) RasterToPoints(ctx context.Context, raster, out string) (int, error) {
	if err := e.createFeatureTable(ctx, out); err != nil {
		return 0, err
	}
	sql := fmt.Sprintf(`INSERT INTO %s (zone, geom)
SELECT round(px.val)::integer, px.geom
FROM %s r
CROSS JOIN LATERAL ST_PixelAsCentroids(r.rast, 1) AS px
WHERE px.val IS NOT NULL`, e.table(out), e.table(raster))

	tag, err := e.pool.Exec(ctx, sql)
	if err != nil {
		return 0, eris.Wrapf(err, "postgis: raster %s to points", raster)
	}
	return int(tag.RowsAffected()), nil
}

// ExtractValues stores the raster value under each point (0 without data) and
// returns the samples.
func (e *Engine) ExtractValues(ctx context.Context, points, raster string) ([]model.Sample, error) {
	update := fmt.Sprintf(`UPDATE %s p SET value = COALESCE((
	SELECT ST_Value(r.rast, 1, p.geom)
	FROM %s r
	WHERE ST_Intersects(r.rast, p.geom)
	LIMIT 1
), 0)`, e.table(points), e.table(raster))

	if _, err := e.pool.Exec(ctx, update); err != nil {
		return nil, eris.Wrapf(err, "postgis: extract %s at %s", raster, points)
	}

	rows, err := e.pool.Query(ctx, fmt.Sprintf("SELECT zone, value FROM %s ORDER BY id", e.table(points)))
	if err != nil {
		return nil, eris.Wrapf(err, "postgis: read values of %s", points)
	}
	defer rows.Close()

	var samples []model.Sample
	for rows.Next() {
		var s model.Sample
		if err := rows.Scan(&s.Zone, &s.Value); err != nil {
			return nil, eris.Wrap(err, "postgis: scan sample")
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// ZonalSum sums the raster over each polygon with ST_SummaryStats(ST_Clip).
func (e *Engine) ZonalSum(ctx context.Context, polygons, raster string, spec engine.ZonalSpec) ([]model.Sample, error) {
	const stat = "COALESCE(SUM((ST_SummaryStats(ST_Clip(r.rast, 1, z.geom, true))).sum), 0)"

	var (
		sql  string
		args []any
	)
	switch spec.Group {
	case engine.GroupByFeature:
		sql = fmt.Sprintf(`SELECT z.name, z.zone, %s
FROM %s z
JOIN %s r ON ST_Intersects(r.rast, z.geom)
WHERE $1::text[] IS NULL OR z.name = ANY($1)
GROUP BY z.id, z.name, z.zone
ORDER BY z.name, z.id`, stat, e.table(polygons), e.table(raster))
		args = []any{spec.Names}
	default:
		sql = fmt.Sprintf(`SELECT z.zone, %s
FROM %s z
JOIN %s r ON ST_Intersects(r.rast, z.geom)
GROUP BY z.zone
ORDER BY z.zone`, stat, e.table(polygons), e.table(raster))
	}

	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgis: zonal sum of %s over %s", raster, polygons)
	}
	defer rows.Close()

	var samples []model.Sample
	for rows.Next() {
		var s model.Sample
		var err error
		if spec.Group == engine.GroupByFeature {
			err = rows.Scan(&s.Station, &s.Zone, &s.Value)
		} else {
			err = rows.Scan(&s.Zone, &s.Value)
		}
		if err != nil {
			return nil, eris.Wrap(err, "postgis: scan zonal row")
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
