// Package rws selects representative weather station buffers for one country
// and one crop: stations are attributed a climate zone, buffered within their
// own zone, and ranked by the share of national crop area their buffers hold
// inside the dominant climate zones.
package rws

import (
	"math"

	"github.com/sells-group/rws-cli/internal/model"
)

// Default analysis parameters.
const (
	DefaultBufferRadiusKM = 100.0
	DefaultCellSize       = 0.083333333
	DefaultDCZThreshold   = 5.0
	DefaultRWSThreshold   = 0.8
	DefaultMinZoneID      = 1
)

// Inputs are the resolved dataset paths and attribute names of a run.
type Inputs struct {
	Stations          string
	Countries         string
	Zones             string
	CropRaster        string
	ZoneRaster        string
	StationNameColumn string
	CountryField      string
	ZoneField         string
}

// Thresholds are percentages of national crop area. Comparisons are strict.
type Thresholds struct {
	DCZ float64
	RWS float64
}

// RunConfig is everything a run needs. It is passed by value and never
// modified once the run starts.
type RunConfig struct {
	Run            string
	Country        string
	Method         model.Method
	UseZoneRaster  bool
	Inputs         Inputs
	BufferRadiusKM float64
	CellSize       float64
	MinZoneID      int
	Thresholds     Thresholds
}

// DefaultThresholds returns the standard 5 % DCZ and 0.8 % RWS thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{DCZ: DefaultDCZThreshold, RWS: DefaultRWSThreshold}
}

// WithDefaults fills unset parameters whose zero value is not meaningful.
// Thresholds are taken as given: zero is a valid threshold, so callers start
// from DefaultThresholds.
func (c RunConfig) WithDefaults() RunConfig {
	if c.BufferRadiusKM == 0 {
		c.BufferRadiusKM = DefaultBufferRadiusKM
	}
	if c.CellSize == 0 {
		c.CellSize = DefaultCellSize
	}
	if c.MinZoneID == 0 {
		c.MinZoneID = DefaultMinZoneID
	}
	if c.Method == "" {
		c.Method = model.MethodZonal
	}
	return c
}

// Validate checks the parameters that do not need the filesystem.
func (c RunConfig) Validate() error {
	bad := func(field, reason string) error {
		return &InputValidationError{Stage: StageInputs, Field: field, Reason: reason}
	}
	switch {
	case c.Run == "":
		return bad("run", "run name is empty")
	case c.Method != model.MethodPoints && c.Method != model.MethodZonal:
		return bad("method", "must be points or zonal")
	case c.Inputs.Stations == "":
		return bad("stations", "path is empty")
	case c.Inputs.Countries == "":
		return bad("countries", "path is empty")
	case c.Inputs.Zones == "":
		return bad("zones", "path is empty")
	case c.Inputs.CropRaster == "":
		return bad("crop_raster", "path is empty")
	case c.UseZoneRaster && c.Method == model.MethodPoints && c.Inputs.ZoneRaster == "":
		return bad("zone_raster", "path is empty but use_zone_raster is set")
	case c.Inputs.StationNameColumn == "":
		return bad("station_name_column", "column name is empty")
	case c.Inputs.CountryField == "":
		return bad("country_field", "column name is empty")
	case c.Inputs.ZoneField == "":
		return bad("zone_field", "column name is empty")
	case !(c.BufferRadiusKM > 0) || math.IsInf(c.BufferRadiusKM, 0):
		return bad("buffer_radius_km", "must be a positive number")
	case c.Method == model.MethodPoints && !(c.CellSize > 0):
		return bad("cell_size", "must be a positive number")
	case c.Thresholds.DCZ < 0 || c.Thresholds.DCZ >= 100 || math.IsNaN(c.Thresholds.DCZ):
		return bad("dcz_threshold", "must be in [0, 100)")
	case c.Thresholds.RWS < 0 || c.Thresholds.RWS >= 100 || math.IsNaN(c.Thresholds.RWS):
		return bad("rws_threshold", "must be in [0, 100)")
	}
	return nil
}

// officialZoneRaster reports whether the point grid comes from the official raster.
func (c RunConfig) officialZoneRaster() bool {
	return c.Method == model.MethodPoints && c.UseZoneRaster
}
