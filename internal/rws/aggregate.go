package rws

import (
	"context"
	"sort"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/model"
)

// ZoneShares is the national crop total and each zone's percentage of it.
type ZoneShares struct {
	Total  float64
	Shares []model.ZoneShare
}

// Strategy aggregates crop area per zone and per buffer. One strategy serves a
// whole run; ZoneShares must be called before BufferShares.
type Strategy interface {
	Method() model.Method
	ZoneShares(ctx context.Context) (*ZoneShares, error)
	// BufferShares returns the share of national crop area inside each buffer
	// whose zone is dominant. Rows for one station may repeat.
	BufferShares(ctx context.Context, buffers []model.Buffer, dominant []model.ZoneShare) ([]model.BufferShare, error)
}

// StrategyLayers are the workspace layers a strategy reads.
type StrategyLayers struct {
	Zones   string // country-clipped zone polygons
	Country string // the selected country polygon
	Crop    string // crop area raster
	Buffers string // dissolved station buffers
}

// NewStrategy returns the strategy for cfg.Method.
func NewStrategy(eng engine.Engine, cfg RunConfig, in StrategyLayers, layers *Layers) Strategy {
	if cfg.Method == model.MethodPoints {
		return &PointsStrategy{eng: eng, cfg: cfg, in: in, layers: layers}
	}
	return &ZonalStrategy{eng: eng, in: in}
}

func percent(v, total float64) float64 {
	return 100 * v / total
}

// sharesOf turns per-zone sums into shares ordered by zone id.
func sharesOf(sums map[int]float64, total float64) *ZoneShares {
	zones := make([]int, 0, len(sums))
	for z := range sums {
		zones = append(zones, z)
	}
	sort.Ints(zones)

	out := &ZoneShares{Total: total, Shares: make([]model.ZoneShare, len(zones))}
	for i, z := range zones {
		out.Shares[i] = model.ZoneShare{Zone: z, Percent: percent(sums[z], total)}
	}
	return out
}

func zoneSet(shares []model.ZoneShare) map[int]bool {
	set := make(map[int]bool, len(shares))
	for _, s := range shares {
		set[s.Zone] = true
	}
	return set
}

// dominantBuffers returns the buffers whose zone is in dominant, keyed by station.
func dominantBuffers(buffers []model.Buffer, dominant []model.ZoneShare) map[string]int {
	dcz := zoneSet(dominant)
	out := make(map[string]int)
	for _, b := range buffers {
		if dcz[b.Zone] {
			out[b.Station] = b.Zone
		}
	}
	return out
}
