package local

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rws-cli/internal/model"
)

// Countries returns the names of the country polygons holding at least one point.
func (e *Engine) Countries(_ context.Context, points, countries string) ([]string, error) {
	pts, err := e.featureLayer(points)
	if err != nil {
		return nil, err
	}
	cs, err := e.featureLayer(countries)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, p := range pts.features {
		for _, c := range cs.search(p.bounds) {
			if c.name != "" && pointIn(p, c) {
				seen[c.name] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// SelectByName copies the features named name into out.
func (e *Engine) SelectByName(_ context.Context, in, name, out string) (int, error) {
	src, err := e.featureLayer(in)
	if err != nil {
		return 0, err
	}
	var sel []*feature
	for _, f := range src.features {
		if f.name == name {
			c := *f
			sel = append(sel, &c)
		}
	}
	e.putFeatures(out, sel)
	return len(sel), nil
}

// Clip keeps the parts of in that fall inside mask. Points are kept whole;
// polygons are cut once per overlapping mask polygon.
func (e *Engine) Clip(ctx context.Context, in, mask, out string) (int, error) {
	src, err := e.featureLayer(in)
	if err != nil {
		return 0, err
	}
	m, err := e.featureLayer(mask)
	if err != nil {
		return 0, err
	}

	var clipped []*feature
	for _, f := range src.features {
		if err := ctx.Err(); err != nil {
			return 0, eris.Wrap(err, "local: clip")
		}
		for _, mf := range m.search(f.bounds) {
			if mf.isPoint() {
				continue
			}
			if f.isPoint() {
				if pointIn(f, mf) {
					c := *f
					clipped = append(clipped, &c)
					break
				}
				continue
			}
			part := f.poly.Intersection(mf.poly)
			if empty(part) {
				continue
			}
			c := newPolygon(part)
			c.name, c.zone, c.sourceZone, c.value = f.name, f.zone, f.sourceZone, f.value
			clipped = append(clipped, c)
		}
	}
	e.putFeatures(out, clipped)
	return len(clipped), nil
}

// Overlay pairs every point with each polygon containing it.
func (e *Engine) Overlay(_ context.Context, points, polygons string) ([]model.Station, error) {
	pts, err := e.featureLayer(points)
	if err != nil {
		return nil, err
	}
	polys, err := e.featureLayer(polygons)
	if err != nil {
		return nil, err
	}

	var hits []model.Station
	for _, p := range pts.features {
		for _, z := range polys.search(p.bounds) {
			if pointIn(p, z) {
				hits = append(hits, model.Station{Name: p.name, Zone: z.zone})
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Name != hits[j].Name {
			return hits[i].Name < hits[j].Name
		}
		return hits[i].Zone < hits[j].Zone
	})
	return hits, nil
}

// PointsInPolygons returns one sample per (point, containing polygon) pair.
func (e *Engine) PointsInPolygons(ctx context.Context, points, polygons string) ([]model.Sample, error) {
	pts, err := e.featureLayer(points)
	if err != nil {
		return nil, err
	}
	polys, err := e.featureLayer(polygons)
	if err != nil {
		return nil, err
	}

	var samples []model.Sample
	for _, p := range pts.features {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "local: points in polygons")
		}
		for _, b := range polys.search(p.bounds) {
			if pointIn(p, b) {
				samples = append(samples, model.Sample{Zone: p.zone, Station: b.name, Value: p.value})
			}
		}
	}
	return samples, nil
}
