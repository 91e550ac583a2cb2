// Package local implements engine.Engine in memory on top of ctessum/geom.
//
// Inputs are ESRI shapefiles and ESRI ASCII grids in geographic coordinates
// (WGS84 lon/lat); no reprojection is done.
package local

import (
	"context"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/raster"
)

// DefaultSegments is the vertex count of a buffer disk.
const DefaultSegments = 72

// feature is one row of a feature layer. Exactly one of point or poly is set,
// and the embedded Geom is that geometry so the feature can live in an rtree.
type feature struct {
	geom.Geom
	id         int64
	name       string
	zone       int
	sourceZone int
	value      float64
	point      *geom.Point
	poly       geom.Polygonal
	bounds     *geom.Bounds
}

var _ geom.Geom = (*feature)(nil)

// Bounds returns the cached bounds of the feature geometry.
func (f *feature) Bounds() *geom.Bounds { return f.bounds }

func (f *feature) isPoint() bool { return f.point != nil }

func newPoint(p geom.Point) *feature {
	return &feature{Geom: p, point: &p, bounds: p.Bounds()}
}

func newPolygon(p geom.Polygonal) *feature {
	f := &feature{}
	f.setPoly(p)
	return f
}

// setPoly replaces the feature's polygon geometry.
func (f *feature) setPoly(p geom.Polygonal) {
	f.Geom = p
	f.poly = p
	f.bounds = p.Bounds()
}

type layer struct {
	features []*feature
	tree     *rtree.Rtree
}

func newLayer(features []*feature) *layer {
	for i, f := range features {
		f.id = int64(i + 1)
	}
	return &layer{features: features}
}

// index returns the layer's spatial index, building it on first use.
func (l *layer) index() *rtree.Rtree {
	if l.tree == nil {
		l.tree = rtree.NewTree(25, 50)
		for _, f := range l.features {
			l.tree.Insert(f)
		}
	}
	return l.tree
}

// search returns the features whose bounds intersect b.
func (l *layer) search(b *geom.Bounds) []*feature {
	hits := l.index().SearchIntersect(b)
	out := make([]*feature, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*feature))
	}
	return out
}

// Engine is an in-memory layer workspace. It is not safe for concurrent use.
type Engine struct {
	features map[string]*layer
	rasters  map[string]*raster.Grid
	segments int
	log      *zap.Logger
}

var _ engine.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithSegments sets the number of vertices used to approximate a buffer disk.
func WithSegments(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.segments = n
		}
	}
}

// New returns an empty workspace.
func New(opts ...Option) *Engine {
	e := &Engine{
		features: make(map[string]*layer),
		rasters:  make(map[string]*raster.Grid),
		segments: DefaultSegments,
		log:      zap.L().With(zap.String("component", "engine.local")),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Exists reports whether a feature or raster layer of that name is loaded.
func (e *Engine) Exists(_ context.Context, name string) (bool, error) {
	if _, ok := e.features[name]; ok {
		return true, nil
	}
	_, ok := e.rasters[name]
	return ok, nil
}

// Drop removes a layer.
func (e *Engine) Drop(_ context.Context, name string) error {
	delete(e.features, name)
	delete(e.rasters, name)
	return nil
}

// Close releases every layer.
func (e *Engine) Close() error {
	e.features = make(map[string]*layer)
	e.rasters = make(map[string]*raster.Grid)
	return nil
}

func (e *Engine) featureLayer(name string) (*layer, error) {
	l, ok := e.features[name]
	if !ok {
		return nil, eris.Errorf("local: feature layer %q not found", name)
	}
	return l, nil
}

func (e *Engine) rasterLayer(name string) (*raster.Grid, error) {
	g, ok := e.rasters[name]
	if !ok {
		return nil, eris.Errorf("local: raster layer %q not found", name)
	}
	return g, nil
}

func (e *Engine) putFeatures(name string, features []*feature) {
	if _, ok := e.features[name]; ok {
		e.log.Debug("overwriting layer", zap.String("layer", name))
	}
	delete(e.rasters, name)
	e.features[name] = newLayer(features)
}

func (e *Engine) putRaster(name string, g *raster.Grid) {
	delete(e.features, name)
	e.rasters[name] = g
}

// contains reports whether pt lies inside or on the edge of poly.
func contains(poly geom.Polygonal, pt geom.Point) bool {
	return pt.Within(poly) != geom.Outside
}

// pointIn reports whether a point feature lies in a polygon feature.
func pointIn(pt, poly *feature) bool {
	if !pt.isPoint() || poly.isPoint() {
		return false
	}
	return contains(poly.poly, *pt.point)
}

// empty reports whether an overlay result has no area.
func empty(p geom.Polygonal) bool {
	if p == nil {
		return true
	}
	a := p.Area()
	return a == 0 || math.IsNaN(a)
}
