package rws

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rws-cli/internal/model"
)

func shareSum(shares []model.ZoneShare) float64 {
	var s float64
	for _, z := range shares {
		s += z.Percent
	}
	return s
}

func TestPointZoneShares(t *testing.T) {
	samples := []model.Sample{
		{Zone: 0, Value: 50}, // water
		{Zone: 1, Value: 50}, // no zone
		{Zone: 5003, Value: 30},
		{Zone: 5003, Value: -9}, // ignored
		{Zone: 5003, Value: 10},
		{Zone: 5101, Value: 60},
		{Zone: 6001, Value: 0}, // present, no crop
	}
	zs, err := pointZoneShares(samples, 1)
	require.NoError(t, err)
	assert.Equal(t, 100.0, zs.Total)
	assert.Equal(t, []model.ZoneShare{
		{Zone: 5003, Percent: 40},
		{Zone: 5101, Percent: 60},
		{Zone: 6001, Percent: 0},
	}, zs.Shares)
}

func TestPointZoneShares_ZeroTotal(t *testing.T) {
	tests := []struct {
		name    string
		samples []model.Sample
	}{
		{"no samples", nil},
		{"only no-zone points", []model.Sample{{Zone: 1, Value: 10}, {Zone: 0, Value: 3}}},
		{"non-positive values", []model.Sample{{Zone: 4, Value: 0}, {Zone: 5, Value: -2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pointZoneShares(tt.samples, 1)
			var zde *ZeroDenominatorError
			require.True(t, errors.As(err, &zde), "got %v", err)
			assert.Equal(t, StageZoneShares, zde.Stage)
		})
	}
}

func TestZonalZoneShares(t *testing.T) {
	samples := []model.Sample{
		{Zone: 2, Value: 20},
		{Zone: 3, Value: 60},
		{Zone: 3, Value: 20},
		{Zone: 4, Value: -5},
	}
	zs, err := zonalZoneShares(samples)
	require.NoError(t, err)
	assert.Equal(t, 100.0, zs.Total)
	assert.Equal(t, []model.ZoneShare{{Zone: 2, Percent: 20}, {Zone: 3, Percent: 80}, {Zone: 4, Percent: 0}}, zs.Shares)

	_, err = zonalZoneShares([]model.Sample{{Zone: 2, Value: 0}})
	var zde *ZeroDenominatorError
	assert.True(t, errors.As(err, &zde))
}

func TestZoneShares_SumTo100(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		var samples []model.Sample
		for j := 0; j < 200; j++ {
			samples = append(samples, model.Sample{
				Zone:  rng.Intn(12),
				Value: rng.Float64()*100 - 10,
			})
		}

		pz, err := pointZoneShares(samples, 1)
		require.NoError(t, err)
		assert.InDelta(t, 100, shareSum(pz.Shares), 1e-9)

		zz, err := zonalZoneShares(samples)
		require.NoError(t, err)
		assert.InDelta(t, 100, shareSum(zz.Shares), 1e-9)

		for _, s := range append(pz.Shares, zz.Shares...) {
			assert.GreaterOrEqual(t, s.Percent, 0.0)
		}
	}
}

func TestPointBufferShares(t *testing.T) {
	buffers := []model.Buffer{
		{Station: "A", Zone: 5},
		{Station: "B", Zone: 7},
		{Station: "C", Zone: 9}, // not dominant
	}
	dominant := []model.ZoneShare{{Zone: 5, Percent: 50}, {Zone: 7, Percent: 30}}
	samples := []model.Sample{
		{Station: "A", Zone: 5, Value: 4},
		{Station: "A", Zone: 9, Value: 100}, // point in a non-dominant zone
		{Station: "A", Zone: 5, Value: -1},
		{Station: "B", Zone: 7, Value: 1},
		{Station: "C", Zone: 5, Value: 50},
	}
	got := pointBufferShares(samples, buffers, dominant, 200)
	assert.Equal(t, []model.BufferShare{
		{Station: "A", Zone: 5, Percent: 2},
		{Station: "B", Zone: 7, Percent: 0.5},
	}, got)
}

func TestZonalBufferShares_KeepsDuplicates(t *testing.T) {
	owned := map[string]int{"A": 5}
	samples := []model.Sample{
		{Station: "A", Zone: 5, Value: 0.5},
		{Station: "A", Zone: 5, Value: 0.4},
		{Station: "Z", Zone: 5, Value: 10},
	}
	got := zonalBufferShares(samples, owned, 100)
	require.Len(t, got, 2)

	kept, coverage := SelectRepresentative(got, []model.ZoneShare{{Zone: 5, Percent: 70}}, 0.8)
	require.Len(t, kept, 1)
	assert.InDelta(t, 0.9, kept[0].Percent, 1e-12)
	assert.InDelta(t, 0.9, coverage, 1e-12)
}

func TestZonalStrategy(t *testing.T) {
	ctx := context.Background()
	eng := newFakeEngine()
	eng.zonalByZone = []model.Sample{{Zone: 5, Value: 80}, {Zone: 7, Value: 20}}
	eng.zonalByFeature = []model.Sample{{Station: "A", Zone: 5, Value: 4}}

	s := NewStrategy(eng, RunConfig{Method: model.MethodZonal}, StrategyLayers{Zones: "z", Crop: "c", Buffers: "b"}, NewLayers("r1"))
	assert.Equal(t, model.MethodZonal, s.Method())

	zs, err := s.ZoneShares(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, zs.Total)

	shares, err := s.BufferShares(ctx,
		[]model.Buffer{{Station: "A", Zone: 5}, {Station: "B", Zone: 7}, {Station: "C", Zone: 5}},
		[]model.ZoneShare{{Zone: 5, Percent: 80}})
	require.NoError(t, err)
	assert.Equal(t, []model.BufferShare{{Station: "A", Zone: 5, Percent: 4}}, shares)
	assert.Equal(t, [][]string{{"A", "C"}}, eng.zonalNames)
}

func TestZonalStrategy_NoDominantBuffers(t *testing.T) {
	ctx := context.Background()
	eng := newFakeEngine()
	eng.zonalByZone = []model.Sample{{Zone: 5, Value: 80}}

	s := NewStrategy(eng, RunConfig{Method: model.MethodZonal}, StrategyLayers{}, NewLayers("r1"))
	_, err := s.ZoneShares(ctx)
	require.NoError(t, err)

	shares, err := s.BufferShares(ctx, []model.Buffer{{Station: "A", Zone: 9}}, []model.ZoneShare{{Zone: 5, Percent: 100}})
	require.NoError(t, err)
	assert.Empty(t, shares)
	assert.Empty(t, eng.zonalNames)
}

func TestPointsStrategy_DerivedGrid(t *testing.T) {
	ctx := context.Background()
	eng := newFakeEngine()
	eng.extract = []model.Sample{{Zone: 5, Value: 3}, {Zone: 7, Value: 1}, {Zone: 1, Value: 100}}
	eng.inPolygons = []model.Sample{{Station: "A", Zone: 5, Value: 3}}

	cfg := RunConfig{Method: model.MethodPoints, CellSize: 0.5, MinZoneID: 1}
	s := NewStrategy(eng, cfg, StrategyLayers{Zones: "z", Country: "c", Crop: "crop", Buffers: "b"}, NewLayers("r1"))

	_, err := s.BufferShares(ctx, nil, nil)
	require.Error(t, err)

	zs, err := s.ZoneShares(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4.0, zs.Total)
	assert.True(t, eng.called("PolygonToRaster"))
	assert.False(t, eng.called("Exists"))

	shares, err := s.BufferShares(ctx, []model.Buffer{{Station: "A", Zone: 5}}, []model.ZoneShare{{Zone: 5, Percent: 75}})
	require.NoError(t, err)
	assert.Equal(t, []model.BufferShare{{Station: "A", Zone: 5, Percent: 75}}, shares)
}

func TestPointsStrategy_OfficialRaster(t *testing.T) {
	ctx := context.Background()
	cfg := RunConfig{Method: model.MethodPoints, UseZoneRaster: true, MinZoneID: 1, Inputs: Inputs{ZoneRaster: "/data/gyga.asc"}}

	t.Run("builds missing global points", func(t *testing.T) {
		eng := newFakeEngine()
		eng.extract = []model.Sample{{Zone: 5, Value: 1}}
		s := NewStrategy(eng, cfg, StrategyLayers{Country: "c", Crop: "crop"}, NewLayers("r1"))

		_, err := s.ZoneShares(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Exists:",
			"ImportRaster:r1_zone_raster",
			"RasterToPoints:" + GlobalZonePoints,
			"Clip:r1_zone_points",
			"ExtractValues:",
		}, eng.calls)
	})

	t.Run("reuses existing global points", func(t *testing.T) {
		eng := newFakeEngine()
		eng.layers[GlobalZonePoints] = true
		eng.extract = []model.Sample{{Zone: 5, Value: 1}}
		s := NewStrategy(eng, cfg, StrategyLayers{Country: "c", Crop: "crop"}, NewLayers("r1"))

		_, err := s.ZoneShares(ctx)
		require.NoError(t, err)
		assert.False(t, eng.called("ImportRaster"))
		assert.False(t, eng.called("RasterToPoints"))
		assert.True(t, eng.called("Clip"))
	})
}

func TestEnsureGlobalZonePoints_ExistsError(t *testing.T) {
	eng := newFakeEngine()
	eng.failOn = "Exists"
	_, err := EnsureGlobalZonePoints(context.Background(), eng, "/data/gyga.asc", "scratch")
	require.ErrorIs(t, err, errBoom)
}
