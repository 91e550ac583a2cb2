package rws

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/model"
)

// Attribute gives every station inside the zone polygons one zone id. Stations
// outside all polygons are left out. A station on a shared boundary keeps the
// lowest zone id it touches.
func Attribute(ctx context.Context, eng engine.Engine, stations, zones string) ([]model.Station, error) {
	log := zap.L().With(zap.String("component", "rws.attribute"))

	hits, err := eng.Overlay(ctx, stations, zones)
	if err != nil {
		return nil, stageErr(StageAttribute, err)
	}
	return attributeHits(hits, log), nil
}

func attributeHits(hits []model.Station, log *zap.Logger) []model.Station {
	zoneOf := make(map[string]int, len(hits))
	conflicts := make(map[string][]int)
	for _, h := range hits {
		z, ok := zoneOf[h.Name]
		switch {
		case !ok:
			zoneOf[h.Name] = h.Zone
		case z != h.Zone:
			if len(conflicts[h.Name]) == 0 {
				conflicts[h.Name] = []int{z}
			}
			conflicts[h.Name] = append(conflicts[h.Name], h.Zone)
			if h.Zone < z {
				zoneOf[h.Name] = h.Zone
			}
		}
	}

	out := make([]model.Station, 0, len(zoneOf))
	for name, zone := range zoneOf {
		out = append(out, model.Station{Name: name, Zone: zone})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	for _, s := range out {
		if zs, ok := conflicts[s.Name]; ok {
			log.Warn("station touches several zones; keeping the lowest",
				zap.String("station", s.Name),
				zap.Ints("zones", zs),
				zap.Int("zone", s.Zone),
			)
		}
	}
	return out
}
