package rws

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var errBoom = errors.New("boom")

// fakeEngine returns canned outputs and records every call as "Method:out".
type fakeEngine struct {
	calls   []string
	layers  map[string]bool
	failOn  string
	dropErr map[string]bool

	imported       map[string]int
	countries      map[string][]string // by points layer
	selectCount    int
	clipCount      int
	overlay        []model.Station
	fragments      []model.Fragment
	extract        []model.Sample
	inPolygons     []model.Sample
	zonalByZone    []model.Sample
	zonalByFeature []model.Sample

	zonalNames [][]string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		layers:      make(map[string]bool),
		dropErr:     make(map[string]bool),
		imported:    make(map[string]int),
		countries:   make(map[string][]string),
		selectCount: 1,
		clipCount:   1,
	}
}

var _ engine.Engine = (*fakeEngine)(nil)

func (f *fakeEngine) record(method, out string) error {
	f.calls = append(f.calls, method+":"+out)
	if f.failOn == method {
		return fmt.Errorf("%s: %w", method, errBoom)
	}
	if out != "" {
		f.layers[out] = true
	}
	return nil
}

func (f *fakeEngine) called(method string) bool {
	for _, c := range f.calls {
		if len(c) > len(method) && c[:len(method)+1] == method+":" {
			return true
		}
	}
	return false
}

func (f *fakeEngine) Exists(_ context.Context, layer string) (bool, error) {
	if err := f.record("Exists", ""); err != nil {
		return false, err
	}
	return f.layers[layer], nil
}

func (f *fakeEngine) Drop(_ context.Context, layer string) error {
	f.calls = append(f.calls, "Drop:"+layer)
	if f.dropErr[layer] {
		return errBoom
	}
	delete(f.layers, layer)
	return nil
}

func (f *fakeEngine) ImportFeatures(_ context.Context, path string, _ engine.FeatureSpec, out string) (int, error) {
	if err := f.record("ImportFeatures", out); err != nil {
		return 0, err
	}
	n, ok := f.imported[path]
	if !ok {
		n = 10
	}
	return n, nil
}

func (f *fakeEngine) ImportRaster(_ context.Context, _ string, out string) error {
	return f.record("ImportRaster", out)
}

func (f *fakeEngine) Countries(_ context.Context, points, _ string) ([]string, error) {
	if err := f.record("Countries", ""); err != nil {
		return nil, err
	}
	if c, ok := f.countries[points]; ok {
		return c, nil
	}
	return []string{"Kenya"}, nil
}

func (f *fakeEngine) SelectByName(_ context.Context, _, _, out string) (int, error) {
	if err := f.record("SelectByName", out); err != nil {
		return 0, err
	}
	return f.selectCount, nil
}

func (f *fakeEngine) Clip(_ context.Context, _, _, out string) (int, error) {
	if err := f.record("Clip", out); err != nil {
		return 0, err
	}
	return f.clipCount, nil
}

func (f *fakeEngine) Overlay(_ context.Context, _, _ string) ([]model.Station, error) {
	if err := f.record("Overlay", ""); err != nil {
		return nil, err
	}
	return f.overlay, nil
}

func (f *fakeEngine) Buffer(_ context.Context, _ string, _ []model.Station, _ float64, out string) error {
	return f.record("Buffer", out)
}

func (f *fakeEngine) Union(_ context.Context, _, _, out string) ([]model.Fragment, error) {
	if err := f.record("Union", out); err != nil {
		return nil, err
	}
	return f.fragments, nil
}

// Dissolve groups the kept canned fragments per station.
func (f *fakeEngine) Dissolve(_ context.Context, _ string, keep []int64, out string) ([]model.Buffer, error) {
	if err := f.record("Dissolve", out); err != nil {
		return nil, err
	}
	want := make(map[int64]bool)
	for _, id := range keep {
		want[id] = true
	}
	zone := make(map[string]int)
	for _, fr := range f.fragments {
		if want[fr.ID] {
			zone[fr.Station] = fr.SourceZone
		}
	}
	var out2 []model.Buffer
	for s, z := range zone {
		out2 = append(out2, model.Buffer{Station: s, Zone: z})
	}
	sort.Slice(out2, func(i, j int) bool { return out2[i].Station < out2[j].Station })
	return out2, nil
}

func (f *fakeEngine) PolygonToRaster(_ context.Context, _ string, _ float64, out string) error {
	return f.record("PolygonToRaster", out)
}

func (f *fakeEngine) RasterToPoints(_ context.Context, _, out string) (int, error) {
	if err := f.record("RasterToPoints", out); err != nil {
		return 0, err
	}
	return len(f.extract), nil
}

func (f *fakeEngine) ExtractValues(_ context.Context, _, _ string) ([]model.Sample, error) {
	if err := f.record("ExtractValues", ""); err != nil {
		return nil, err
	}
	return f.extract, nil
}

func (f *fakeEngine) PointsInPolygons(_ context.Context, _, _ string) ([]model.Sample, error) {
	if err := f.record("PointsInPolygons", ""); err != nil {
		return nil, err
	}
	return f.inPolygons, nil
}

func (f *fakeEngine) ZonalSum(_ context.Context, _, _ string, spec engine.ZonalSpec) ([]model.Sample, error) {
	if err := f.record("ZonalSum", ""); err != nil {
		return nil, err
	}
	if spec.Group == engine.GroupByFeature {
		f.zonalNames = append(f.zonalNames, spec.Names)
		return f.zonalByFeature, nil
	}
	return f.zonalByZone, nil
}

func (f *fakeEngine) Close() error { return nil }
