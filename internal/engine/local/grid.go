package local

import (
	"context"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/model"
	"github.com/sells-group/rws-cli/internal/raster"
)

// zoneNoData marks cells that no zone polygon covers.
const zoneNoData = -2147483648

// PolygonToRaster burns zone ids into a grid aligned to multiples of cellSize.
// A cell takes the zone of the first polygon containing its centre.
func (e *Engine) PolygonToRaster(ctx context.Context, polygons string, cellSize float64, out string) error {
	if cellSize <= 0 {
		return eris.Errorf("local: cell size must be positive, got %v", cellSize)
	}
	polys, err := e.featureLayer(polygons)
	if err != nil {
		return err
	}
	var ext *geom.Bounds
	for _, f := range polys.features {
		if f.isPoint() {
			continue
		}
		if ext == nil {
			ext = geom.NewBounds()
		}
		ext.Extend(f.bounds)
	}
	if ext == nil {
		return eris.Errorf("local: layer %q has no polygons to rasterize", polygons)
	}

	xmin := math.Floor(ext.Min.X/cellSize) * cellSize
	ymin := math.Floor(ext.Min.Y/cellSize) * cellSize
	cols := int(math.Ceil((ext.Max.X - xmin) / cellSize))
	rows := int(math.Ceil((ext.Max.Y - ymin) / cellSize))
	g, err := raster.New(max(cols, 1), max(rows, 1), xmin, ymin, cellSize, zoneNoData)
	if err != nil {
		return eris.Wrap(err, "local: polygon to raster")
	}

	for row := 0; row < g.Rows; row++ {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "local: polygon to raster")
		}
		for col := 0; col < g.Cols; col++ {
			x, y := g.Center(col, row)
			pt := geom.Point{X: x, Y: y}
			for _, f := range polys.search(pt.Bounds()) {
				if !f.isPoint() && contains(f.poly, pt) {
					g.Set(col, row, float64(f.zone))
					break
				}
			}
		}
	}
	e.putRaster(out, g)
	return nil
}

// RasterToPoints writes a point at the centre of every cell with data.
func (e *Engine) RasterToPoints(_ context.Context, rasterName, out string) (int, error) {
	g, err := e.rasterLayer(rasterName)
	if err != nil {
		return 0, err
	}
	var pts []*feature
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v, ok := g.Get(col, row)
			if !ok {
				continue
			}
			x, y := g.Center(col, row)
			f := newPoint(geom.Point{X: x, Y: y})
			f.zone = int(math.Round(v))
			pts = append(pts, f)
		}
	}
	e.putFeatures(out, pts)
	return len(pts), nil
}

// ExtractValues samples the raster under every point and stores the value on it.
func (e *Engine) ExtractValues(_ context.Context, points, rasterName string) ([]model.Sample, error) {
	pts, err := e.featureLayer(points)
	if err != nil {
		return nil, err
	}
	g, err := e.rasterLayer(rasterName)
	if err != nil {
		return nil, err
	}

	samples := make([]model.Sample, 0, len(pts.features))
	var missing int
	for _, f := range pts.features {
		if !f.isPoint() {
			continue
		}
		v, ok := g.At(f.point.X, f.point.Y)
		if !ok {
			missing++
			v = 0
		}
		f.value = v
		samples = append(samples, model.Sample{Zone: f.zone, Value: v})
	}
	if missing > 0 {
		e.log.Debug("points without raster data", zap.String("layer", points), zap.Int("points", missing))
	}
	return samples, nil
}

// ZonalSum adds the raster cells whose centres fall inside each polygon.
func (e *Engine) ZonalSum(ctx context.Context, polygons, rasterName string, spec engine.ZonalSpec) ([]model.Sample, error) {
	polys, err := e.featureLayer(polygons)
	if err != nil {
		return nil, err
	}
	g, err := e.rasterLayer(rasterName)
	if err != nil {
		return nil, err
	}

	var only map[string]bool
	if spec.Group == engine.GroupByFeature && spec.Names != nil {
		only = make(map[string]bool, len(spec.Names))
		for _, n := range spec.Names {
			only[n] = true
		}
	}

	byZone := make(map[int]float64)
	var perFeature []model.Sample
	for _, f := range polys.features {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "local: zonal sum")
		}
		if f.isPoint() || (only != nil && !only[f.name]) {
			continue
		}
		sum, cells := sumInside(g, f)
		if cells == 0 {
			continue
		}
		switch spec.Group {
		case engine.GroupByFeature:
			perFeature = append(perFeature, model.Sample{Zone: f.zone, Station: f.name, Value: sum})
		default:
			byZone[f.zone] += sum
		}
	}

	if spec.Group == engine.GroupByFeature {
		return perFeature, nil
	}
	zones := make([]int, 0, len(byZone))
	for z := range byZone {
		zones = append(zones, z)
	}
	sort.Ints(zones)
	samples := make([]model.Sample, len(zones))
	for i, z := range zones {
		samples[i] = model.Sample{Zone: z, Value: byZone[z]}
	}
	return samples, nil
}

// sumInside returns the sum over data cells centred in f and how many there were.
func sumInside(g *raster.Grid, f *feature) (float64, int) {
	b := f.bounds
	c0 := clamp(int(math.Floor((b.Min.X-g.XMin)/g.CellSize)), 0, g.Cols-1)
	c1 := clamp(int(math.Floor((b.Max.X-g.XMin)/g.CellSize)), 0, g.Cols-1)
	r0 := clamp(int(math.Floor((g.YMax()-b.Max.Y)/g.CellSize)), 0, g.Rows-1)
	r1 := clamp(int(math.Floor((g.YMax()-b.Min.Y)/g.CellSize)), 0, g.Rows-1)

	var (
		sum   float64
		cells int
	)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			v, ok := g.Get(col, row)
			if !ok {
				continue
			}
			x, y := g.Center(col, row)
			if contains(f.poly, geom.Point{X: x, Y: y}) {
				sum += v
				cells++
			}
		}
	}
	return sum, cells
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
