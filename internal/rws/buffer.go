package rws

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/model"
)

// BufferLayers names the layers BuildBuffers writes.
type BufferLayers struct {
	Disks     string
	Fragments string
	Buffers   string
}

// BuildBuffers draws a disk of radiusKM around each station, keeps the parts of
// it lying in the station's own zone and dissolves them into one buffer per
// station. Stations whose disk never meets their own zone get no buffer.
func BuildBuffers(ctx context.Context, eng engine.Engine, points string, stations []model.Station, zones string, radiusKM float64, out BufferLayers) ([]model.Buffer, error) {
	log := zap.L().With(zap.String("component", "rws.buffer"))

	if len(stations) == 0 {
		return nil, nil
	}
	if err := eng.Buffer(ctx, points, stations, radiusKM, out.Disks); err != nil {
		return nil, stageErr(StageBuffer, err)
	}
	frags, err := eng.Union(ctx, out.Disks, zones, out.Fragments)
	if err != nil {
		return nil, stageErr(StageBuffer, err)
	}

	keep := sameZone(frags)
	log.Debug("buffer fragments",
		zap.Int("fragments", len(frags)),
		zap.Int("kept", len(keep)),
	)

	var buffers []model.Buffer
	if len(keep) > 0 {
		buffers, err = eng.Dissolve(ctx, out.Fragments, keep, out.Buffers)
		if err != nil {
			return nil, stageErr(StageBuffer, err)
		}
	}

	have := make(map[string]bool, len(buffers))
	for _, b := range buffers {
		have[b.Station] = true
	}
	for _, s := range stations {
		if !have[s.Name] {
			log.Info("station has no buffer inside its own zone; excluded",
				zap.String("station", s.Name),
				zap.Int("zone", s.Zone),
			)
		}
	}
	return buffers, nil
}

// sameZone returns the ids of fragments lying in their station's own zone.
func sameZone(frags []model.Fragment) []int64 {
	var ids []int64
	for _, f := range frags {
		if f.Station != "" && f.SourceZone == f.Zone {
			ids = append(ids, f.ID)
		}
	}
	return ids
}
