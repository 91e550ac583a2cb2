package rws

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/model"
)

// PointsStrategy samples the crop raster on a point grid carrying zone ids.
// The grid is derived from the zone polygons, or taken from the official zone
// raster when the run asks for it.
type PointsStrategy struct {
	eng    engine.Engine
	cfg    RunConfig
	in     StrategyLayers
	layers *Layers

	points string
	total  float64
}

func (p *PointsStrategy) Method() model.Method { return model.MethodPoints }

// ZoneShares builds the zone point grid, samples the crop raster on it and
// computes the national total over points in a real zone.
func (p *PointsStrategy) ZoneShares(ctx context.Context) (*ZoneShares, error) {
	pts, err := p.zonePoints(ctx)
	if err != nil {
		return nil, err
	}
	samples, err := p.eng.ExtractValues(ctx, pts, p.in.Crop)
	if err != nil {
		return nil, eris.Wrap(err, "rws: extract crop values")
	}

	zs, err := pointZoneShares(samples, p.cfg.MinZoneID)
	if err != nil {
		return nil, err
	}
	p.points = pts
	p.total = zs.Total
	return zs, nil
}

// BufferShares sums crop at the grid points that fall in a dominant buffer and
// in a dominant zone.
func (p *PointsStrategy) BufferShares(ctx context.Context, buffers []model.Buffer, dominant []model.ZoneShare) ([]model.BufferShare, error) {
	if p.points == "" {
		return nil, eris.New("rws: points strategy: zone shares not computed")
	}
	if len(dominantBuffers(buffers, dominant)) == 0 {
		return nil, nil
	}
	samples, err := p.eng.PointsInPolygons(ctx, p.points, p.in.Buffers)
	if err != nil {
		return nil, eris.Wrap(err, "rws: points in buffers")
	}
	return pointBufferShares(samples, buffers, dominant, p.total), nil
}

func (p *PointsStrategy) zonePoints(ctx context.Context) (string, error) {
	out := p.layers.Temp("zone_points")
	if !p.cfg.officialZoneRaster() {
		grid := p.layers.Temp("zone_grid")
		if err := p.eng.PolygonToRaster(ctx, p.in.Zones, p.cfg.CellSize, grid); err != nil {
			return "", eris.Wrap(err, "rws: rasterize zones")
		}
		if _, err := p.eng.RasterToPoints(ctx, grid, out); err != nil {
			return "", eris.Wrap(err, "rws: zone grid to points")
		}
		return out, nil
	}

	if _, err := EnsureGlobalZonePoints(ctx, p.eng, p.cfg.Inputs.ZoneRaster, p.layers.Temp("zone_raster")); err != nil {
		return "", err
	}
	if _, err := p.eng.Clip(ctx, GlobalZonePoints, p.in.Country, out); err != nil {
		return "", eris.Wrap(err, "rws: clip zone points to country")
	}
	return out, nil
}

// EnsureGlobalZonePoints builds the shared point grid of the official zone
// raster unless it already exists. scratch names the layer the raster is
// imported into. It reports whether the grid was built.
func EnsureGlobalZonePoints(ctx context.Context, eng engine.Engine, rasterPath, scratch string) (bool, error) {
	log := zap.L().With(zap.String("component", "rws.points"))

	ok, err := eng.Exists(ctx, GlobalZonePoints)
	if err != nil {
		return false, eris.Wrap(err, "rws: check global zone points")
	}
	if ok {
		log.Debug("reusing global zone points", zap.String("layer", GlobalZonePoints))
		return false, nil
	}

	log.Info("building global zone points; this is slow the first time", zap.String("raster", rasterPath))
	if err := eng.ImportRaster(ctx, rasterPath, scratch); err != nil {
		return false, eris.Wrap(err, "rws: import zone raster")
	}
	n, err := eng.RasterToPoints(ctx, scratch, GlobalZonePoints)
	if err != nil {
		return false, eris.Wrap(err, "rws: zone raster to points")
	}
	log.Info("global zone points built", zap.Int("points", n))
	return true, nil
}

// pointZoneShares computes shares over points with zone > minZone. Only
// positive crop values count.
func pointZoneShares(samples []model.Sample, minZone int) (*ZoneShares, error) {
	sums := make(map[int]float64)
	var total float64
	for _, s := range samples {
		if s.Zone <= minZone {
			continue
		}
		if _, ok := sums[s.Zone]; !ok {
			sums[s.Zone] = 0
		}
		if s.Value > 0 {
			sums[s.Zone] += s.Value
			total += s.Value
		}
	}
	if !(total > 0) {
		return nil, &ZeroDenominatorError{Stage: StageZoneShares, Total: total}
	}
	return sharesOf(sums, total), nil
}

// pointBufferShares sums positive samples per dominant buffer, counting only
// samples whose own zone is dominant.
func pointBufferShares(samples []model.Sample, buffers []model.Buffer, dominant []model.ZoneShare, total float64) []model.BufferShare {
	owned := dominantBuffers(buffers, dominant)
	dcz := zoneSet(dominant)

	sums := make(map[string]float64, len(owned))
	for name := range owned {
		sums[name] = 0
	}
	for _, s := range samples {
		if _, ok := owned[s.Station]; !ok || !dcz[s.Zone] || !(s.Value > 0) {
			continue
		}
		sums[s.Station] += s.Value
	}

	out := make([]model.BufferShare, 0, len(sums))
	for name, v := range sums {
		out = append(out, model.BufferShare{Station: name, Zone: owned[name], Percent: percent(v, total)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Station < out[j].Station })
	return out
}
