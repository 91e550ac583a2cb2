package local

import (
	"context"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/model"
)

// earthRadiusKM is the mean Earth radius used for geodesic disks.
const earthRadiusKM = 6371.0088

// Buffer writes one geodesic disk per listed station.
func (e *Engine) Buffer(_ context.Context, points string, stations []model.Station, radiusKM float64, out string) error {
	if radiusKM <= 0 {
		return eris.Errorf("local: buffer radius must be positive, got %v", radiusKM)
	}
	pts, err := e.featureLayer(points)
	if err != nil {
		return err
	}
	byName := make(map[string]*feature, len(pts.features))
	for _, f := range pts.features {
		if f.isPoint() {
			if _, dup := byName[f.name]; !dup {
				byName[f.name] = f
			}
		}
	}

	disks := make([]*feature, 0, len(stations))
	for _, s := range stations {
		p, ok := byName[s.Name]
		if !ok {
			e.log.Warn("station not found in point layer", zap.String("station", s.Name), zap.String("layer", points))
			continue
		}
		d := newPolygon(disk(*p.point, radiusKM, e.segments))
		d.name = s.Name
		d.sourceZone = s.Zone
		disks = append(disks, d)
	}
	e.putFeatures(out, disks)
	return nil
}

// Union cuts every disk by the zone polygons under it. Only disk/zone
// intersections are emitted; parts of a disk outside every zone are dropped.
func (e *Engine) Union(ctx context.Context, disks, zones, out string) ([]model.Fragment, error) {
	ds, err := e.featureLayer(disks)
	if err != nil {
		return nil, err
	}
	zs, err := e.featureLayer(zones)
	if err != nil {
		return nil, err
	}

	var parts []*feature
	for _, d := range ds.features {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "local: union")
		}
		for _, z := range zs.search(d.bounds) {
			if z.isPoint() {
				continue
			}
			part := d.poly.Intersection(z.poly)
			if empty(part) {
				continue
			}
			f := newPolygon(part)
			f.name, f.sourceZone, f.zone = d.name, d.sourceZone, z.zone
			parts = append(parts, f)
		}
	}
	e.putFeatures(out, parts)

	frags := make([]model.Fragment, len(parts))
	for i, f := range parts {
		frags[i] = model.Fragment{ID: f.id, Station: f.name, SourceZone: f.sourceZone, Zone: f.zone}
	}
	return frags, nil
}

// Dissolve merges the kept fragments into one polygon per station, carrying the
// station's source zone as the buffer zone.
func (e *Engine) Dissolve(_ context.Context, fragments string, keep []int64, out string) ([]model.Buffer, error) {
	fs, err := e.featureLayer(fragments)
	if err != nil {
		return nil, err
	}
	want := make(map[int64]bool, len(keep))
	for _, id := range keep {
		want[id] = true
	}

	merged := make(map[string]*feature)
	for _, f := range fs.features {
		if !want[f.id] || f.isPoint() {
			continue
		}
		acc, ok := merged[f.name]
		if !ok {
			c := newPolygon(f.poly)
			c.name, c.zone = f.name, f.sourceZone
			merged[f.name] = c
			continue
		}
		acc.setPoly(acc.poly.Union(f.poly))
	}

	names := make([]string, 0, len(merged))
	for n := range merged {
		names = append(names, n)
	}
	sort.Strings(names)

	dissolved := make([]*feature, 0, len(names))
	buffers := make([]model.Buffer, 0, len(names))
	for _, n := range names {
		f := merged[n]
		dissolved = append(dissolved, f)
		buffers = append(buffers, model.Buffer{Station: f.name, Zone: f.zone})
	}
	e.putFeatures(out, dissolved)
	return buffers, nil
}

// disk approximates the set of points within radiusKM of center on a sphere.
// The ring is closed and counter-clockwise.
func disk(center geom.Point, radiusKM float64, segments int) geom.Polygon {
	if segments < 8 {
		segments = 8
	}
	lat1 := center.Y * math.Pi / 180
	lon1 := center.X * math.Pi / 180
	delta := radiusKM / earthRadiusKM

	ring := make([]geom.Point, 0, segments+1)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
		lon2 := lon1 + math.Atan2(
			math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
			math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
		)
		ring = append(ring, geom.Point{X: lon2 * 180 / math.Pi, Y: lat2 * 180 / math.Pi})
	}
	// Bearings run clockwise from north; reverse for a counter-clockwise ring.
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
	ring = append(ring, ring[0])
	return geom.Polygon{ring}
}
