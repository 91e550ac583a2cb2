// Package engine defines the geometry/raster primitives the RWS pipeline consumes.
//
// An Engine owns a workspace of named layers. Feature layers hold points or polygons
// with four attributes (name, zone, source zone, value); raster layers hold one band.
// Operations read input layers by name and write a new output layer; the caller
// guarantees output names are unique per run and never issues two operations at once.
package engine

import (
	"context"

	"github.com/sells-group/rws-cli/internal/model"
)

// FeatureSpec maps source attributes onto a feature layer's name and zone columns.
// Empty fields are left unset.
type FeatureSpec struct {
	NameField string
	ZoneField string
}

// ZonalGroup selects how ZonalSum aggregates.
type ZonalGroup int

const (
	// GroupByZone returns one sample per zone id, summed over all its polygons.
	GroupByZone ZonalGroup = iota
	// GroupByFeature returns one sample per polygon carrying its name and zone.
	GroupByFeature
)

// ZonalSpec configures ZonalSum. Names restricts GroupByFeature to the listed
// feature names; nil means all.
type ZonalSpec struct {
	Group ZonalGroup
	Names []string
}

// Engine is the geometry/raster primitive provider.
type Engine interface {
	// Exists reports whether a layer is present in the workspace.
	Exists(ctx context.Context, layer string) (bool, error)
	// Drop removes a layer; missing layers are not an error.
	Drop(ctx context.Context, layer string) error

	// ImportFeatures loads a vector dataset into a feature layer and returns the row count.
	ImportFeatures(ctx context.Context, path string, spec FeatureSpec, out string) (int, error)
	// ImportRaster loads a single-band raster dataset.
	ImportRaster(ctx context.Context, path, out string) error

	// Countries returns the sorted distinct names of polygons in countries that
	// contain at least one feature of points.
	Countries(ctx context.Context, points, countries string) ([]string, error)
	// SelectByName copies the features whose name equals name.
	SelectByName(ctx context.Context, in, name, out string) (int, error)
	// Clip intersects every feature of in with the polygons of mask.
	Clip(ctx context.Context, in, mask, out string) (int, error)
	// Overlay returns one row per (point, containing polygon) pair: the point's
	// name with the polygon's zone. Points outside every polygon yield no row.
	Overlay(ctx context.Context, points, polygons string) ([]model.Station, error)
	// Buffer writes a disk of radiusKM around each listed station of points,
	// tagged with the station's name and its zone as source zone.
	Buffer(ctx context.Context, points string, stations []model.Station, radiusKM float64, out string) error
	// Union overlays disks with zone polygons and returns the fragments, each
	// carrying the disk's source zone and the zone underneath.
	Union(ctx context.Context, disks, zones, out string) ([]model.Fragment, error)
	// Dissolve merges the listed fragments into one polygon per station.
	Dissolve(ctx context.Context, fragments string, keep []int64, out string) ([]model.Buffer, error)

	// PolygonToRaster burns polygon zone ids into a grid of cellSize degrees.
	PolygonToRaster(ctx context.Context, polygons string, cellSize float64, out string) error
	// RasterToPoints writes one point per valid cell carrying the cell value as zone.
	RasterToPoints(ctx context.Context, raster, out string) (int, error)
	// ExtractValues samples raster at every point, stores the value on the point
	// and returns the samples. Cells without data sample as 0.
	ExtractValues(ctx context.Context, points, raster string) ([]model.Sample, error)
	// PointsInPolygons returns a sample per (point, containing polygon) pair with
	// the point's zone and value and the polygon's name as station.
	PointsInPolygons(ctx context.Context, points, polygons string) ([]model.Sample, error)
	// ZonalSum integrates raster over polygons.
	ZonalSum(ctx context.Context, polygons, raster string, spec ZonalSpec) ([]model.Sample, error)

	Close() error
}
