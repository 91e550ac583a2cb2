package postgis

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rws-cli/internal/model"
)

// Countries lists the country polygons that contain at least one point.
func (e *Engine) Countries(ctx context.Context, points, countries string) ([]string, error) {
	sql := fmt.Sprintf(`SELECT DISTINCT c.name
FROM %s c
JOIN %s p ON ST_Intersects(c.geom, p.geom)
WHERE c.name IS NOT NULL
ORDER BY c.name`, e.table(countries), e.table(points))

	rows, err := e.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: query countries")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, eris.Wrap(err, "postgis: scan country")
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// SelectByName copies the rows named name.
func (e *Engine) SelectByName(ctx context.Context, in, name, out string) (int, error) {
	if err := e.createFeatureTable(ctx, out); err != nil {
		return 0, err
	}
	sql := fmt.Sprintf(`INSERT INTO %s (name, zone, source_zone, value, geom)
SELECT name, zone, source_zone, value, geom FROM %s WHERE name = $1`, e.table(out), e.table(in))

	tag, err := e.pool.Exec(ctx, sql, name)
	if err != nil {
		return 0, eris.Wrapf(err, "postgis: select %q from %s", name, in)
	}
	return int(tag.RowsAffected()), nil
}

// Clip intersects in with mask.
func (e *Engine) Clip(ctx context.Context, in, mask, out string) (int, error) {
	if err := e.createFeatureTable(ctx, out); err != nil {
		return 0, err
	}
	sql := fmt.Sprintf(`INSERT INTO %s (name, zone, source_zone, value, geom)
SELECT i.name, i.zone, i.source_zone, i.value, x.geom
FROM %s i
JOIN %s m ON ST_Intersects(i.geom, m.geom)
CROSS JOIN LATERAL (SELECT ST_Intersection(i.geom, m.geom) AS geom) x
WHERE NOT ST_IsEmpty(x.geom)`, e.table(out), e.table(in), e.table(mask))

	tag, err := e.pool.Exec(ctx, sql)
	if err != nil {
		return 0, eris.Wrapf(err, "postgis: clip %s by %s", in, mask)
	}
	return int(tag.RowsAffected()), nil
}

// Overlay pairs every point with each polygon containing it.
func (e *Engine) Overlay(ctx context.Context, points, polygons string) ([]model.Station, error) {
	sql := fmt.Sprintf(`SELECT p.name, z.zone
FROM %s p
JOIN %s z ON ST_Intersects(z.geom, p.geom)
WHERE z.zone IS NOT NULL
ORDER BY p.name, z.zone`, e.table(points), e.table(polygons))

	rows, err := e.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "postgis: overlay %s with %s", points, polygons)
	}
	defer rows.Close()

	var hits []model.Station
	for rows.Next() {
		var s model.Station
		if err := rows.Scan(&s.Name, &s.Zone); err != nil {
			return nil, eris.Wrap(err, "postgis: scan overlay row")
		}
		hits = append(hits, s)
	}
	return hits, rows.Err()
}

// Buffer writes a geodesic buffer around each listed station.
func (e *Engine) Buffer(ctx context.Context, points string, stations []model.Station, radiusKM float64, out string) error {
	if radiusKM <= 0 {
		return eris.Errorf("postgis: buffer radius must be positive, got %v", radiusKM)
	}
	if err := e.createFeatureTable(ctx, out); err != nil {
		return err
	}

	names := make([]string, len(stations))
	zones := make([]int32, len(stations))
	for i, s := range stations {
		names[i] = s.Name
		zones[i] = int32(s.Zone)
	}

	sql := fmt.Sprintf(`INSERT INTO %s (name, source_zone, geom)
SELECT DISTINCT ON (a.name) a.name, a.zone,
	ST_Buffer(p.geom::geography, $1, 'quad_segs=18')::geometry
FROM %s p
JOIN unnest($2::text[], $3::int[]) AS a(name, zone) ON a.name = p.name
ORDER BY a.name, p.id`, e.table(out), e.table(points))

	if _, err := e.pool.Exec(ctx, sql, radiusKM*1000, names, zones); err != nil {
		return eris.Wrapf(err, "postgis: buffer %s", points)
	}
	return nil
}

// Union cuts every disk by the zone polygons under it.
func (e *Engine) Union(ctx context.Context, disks, zones, out string) ([]model.Fragment, error) {
	if err := e.createFeatureTable(ctx, out); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(`INSERT INTO %s (name, source_zone, zone, geom)
SELECT d.name, d.source_zone, z.zone, x.geom
FROM %s d
JOIN %s z ON ST_Intersects(d.geom, z.geom)
CROSS JOIN LATERAL (SELECT ST_Intersection(d.geom, z.geom) AS geom) x
WHERE NOT ST_IsEmpty(x.geom) AND ST_Area(x.geom) > 0
RETURNING id, name, source_zone, zone`, e.table(out), e.table(disks), e.table(zones))

	rows, err := e.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "postgis: union %s with %s", disks, zones)
	}
	defer rows.Close()

	var frags []model.Fragment
	for rows.Next() {
		var f model.Fragment
		if err := rows.Scan(&f.ID, &f.Station, &f.SourceZone, &f.Zone); err != nil {
			return nil, eris.Wrap(err, "postgis: scan fragment")
		}
		frags = append(frags, f)
	}
	return frags, rows.Err()
}

// Dissolve merges the kept fragments into one multipolygon per station.
func (e *Engine) Dissolve(ctx context.Context, fragments string, keep []int64, out string) ([]model.Buffer, error) {
	if err := e.createFeatureTable(ctx, out); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(`INSERT INTO %s (name, zone, geom)
SELECT name, source_zone, ST_Multi(ST_Union(geom))
FROM %s
WHERE id = ANY($1)
GROUP BY name, source_zone
ORDER BY name
RETURNING name, zone`, e.table(out), e.table(fragments))

	rows, err := e.pool.Query(ctx, sql, keep)
	if err != nil {
		return nil, eris.Wrapf(err, "postgis: dissolve %s", fragments)
	}
	defer rows.Close()

	var buffers []model.Buffer
	for rows.Next() {
		var b model.Buffer
		if err := rows.Scan(&b.Station, &b.Zone); err != nil {
			return nil, eris.Wrap(err, "postgis: scan buffer")
		}
		buffers = append(buffers, b)
	}
	return buffers, rows.Err()
}

// PointsInPolygons pairs every point with each polygon containing it.
func (e *Engine) PointsInPolygons(ctx context.Context, points, polygons string) ([]model.Sample, error) {
	sql := fmt.Sprintf(`SELECT b.name, p.zone, COALESCE(p.value, 0)
FROM %s p
JOIN %s b ON ST_Intersects(b.geom, p.geom)
ORDER BY b.name, p.id`, e.table(points), e.table(polygons))

	rows, err := e.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "postgis: points of %s in %s", points, polygons)
	}
	defer rows.Close()

	var samples []model.Sample
	for rows.Next() {
		var s model.Sample
		if err := rows.Scan(&s.Station, &s.Zone, &s.Value); err != nil {
			return nil, eris.Wrap(err, "postgis: scan sample")
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
