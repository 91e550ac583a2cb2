package rws

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/model"
)

// ZonalStrategy integrates the crop raster over zone and buffer polygons.
type ZonalStrategy struct {
	eng engine.Engine
	in  StrategyLayers

	total float64
}

func (z *ZonalStrategy) Method() model.Method { return model.MethodZonal }

// ZoneShares sums the crop raster per zone id. The national total is the sum
// over all zones.
func (z *ZonalStrategy) ZoneShares(ctx context.Context) (*ZoneShares, error) {
	samples, err := z.eng.ZonalSum(ctx, z.in.Zones, z.in.Crop, engine.ZonalSpec{Group: engine.GroupByZone})
	if err != nil {
		return nil, eris.Wrap(err, "rws: zonal sum per zone")
	}
	zs, err := zonalZoneShares(samples)
	if err != nil {
		return nil, err
	}
	z.total = zs.Total
	return zs, nil
}

// BufferShares sums the crop raster over each buffer lying in a dominant zone.
func (z *ZonalStrategy) BufferShares(ctx context.Context, buffers []model.Buffer, dominant []model.ZoneShare) ([]model.BufferShare, error) {
	if !(z.total > 0) {
		return nil, eris.New("rws: zonal strategy: zone shares not computed")
	}
	owned := dominantBuffers(buffers, dominant)
	if len(owned) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(owned))
	for n := range owned {
		names = append(names, n)
	}
	sort.Strings(names)

	samples, err := z.eng.ZonalSum(ctx, z.in.Buffers, z.in.Crop, engine.ZonalSpec{Group: engine.GroupByFeature, Names: names})
	if err != nil {
		return nil, eris.Wrap(err, "rws: zonal sum per buffer")
	}
	return zonalBufferShares(samples, owned, z.total), nil
}

// zonalZoneShares clamps negative sums to zero before totalling.
func zonalZoneShares(samples []model.Sample) (*ZoneShares, error) {
	sums := make(map[int]float64)
	var total float64
	for _, s := range samples {
		v := max(s.Value, 0)
		sums[s.Zone] += v
		total += v
	}
	if !(total > 0) {
		return nil, &ZeroDenominatorError{Stage: StageZoneShares, Total: total}
	}
	return sharesOf(sums, total), nil
}

// zonalBufferShares keeps one row per sample of an owned buffer; a station
// split over several polygons yields several rows.
func zonalBufferShares(samples []model.Sample, owned map[string]int, total float64) []model.BufferShare {
	out := make([]model.BufferShare, 0, len(samples))
	for _, s := range samples {
		zone, ok := owned[s.Station]
		if !ok {
			continue
		}
		out = append(out, model.BufferShare{Station: s.Station, Zone: zone, Percent: percent(max(s.Value, 0), total)})
	}
	return out
}
