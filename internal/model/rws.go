// Package model holds the domain types shared by the RWS buffer pipeline.
package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Method selects how crop area is aggregated per zone and per buffer.
type Method string

const (
	MethodPoints Method = "points" // point sampling on a rasterized zone grid
	MethodZonal  Method = "zonal"  // zonal statistics over polygons
)

// ParseMethod accepts the long names and the single-letter P/Z shorthands.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "p", "point", "points":
		return MethodPoints, nil
	case "z", "zonal", "zonal_statistics":
		return MethodZonal, nil
	default:
		return "", eris.Errorf("model: unknown aggregation method %q (want points or zonal)", s)
	}
}

// Station is a weather station with the climate zone it was attributed to.
type Station struct {
	Name string `json:"name"`
	Zone int    `json:"zone"`
}

// Buffer is the dissolved, zone-consistent buffer polygon owned by one station.
// Geometry stays in the engine workspace.
type Buffer struct {
	Station string `json:"station"`
	Zone    int    `json:"zone"`
}

// Sample is one crop-area observation: a sampled raster point or a zonal sum.
// Station is empty for samples that are not tied to a buffer.
type Sample struct {
	Zone    int     `json:"zone"`
	Station string  `json:"station,omitempty"`
	Value   float64 `json:"value"`
}

// Fragment is one piece of the buffer/zone overlay. SourceZone is the zone of the
// station that owns the buffer; Zone is the zone underneath the fragment.
type Fragment struct {
	ID         int64  `json:"id"`
	Station    string `json:"station"`
	SourceZone int    `json:"source_zone"`
	Zone       int    `json:"zone"`
}

// ZoneShare is a climate zone's percentage of national crop area.
type ZoneShare struct {
	Zone    int     `json:"zone"`
	Percent float64 `json:"percent"`
}

// BufferShare is the percentage of national crop area inside one station's buffer.
type BufferShare struct {
	Station string  `json:"station"`
	Zone    int     `json:"zone"`
	Percent float64 `json:"percent"`
}

// WarningKind classifies non-fatal run outcomes.
type WarningKind string

const (
	WarningNoDominantZones         WarningKind = "no_dominant_zones"
	WarningNoRepresentativeBuffers WarningKind = "no_representative_buffers"
)

// Warning is a non-fatal condition attached to a completed run.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	Run                string        `json:"run"`
	Country            string        `json:"country"`
	Method             Method        `json:"method"`
	OfficialZoneRaster bool          `json:"official_zone_raster"`
	StationFile        string        `json:"station_file"`
	CropRasterFile     string        `json:"crop_raster_file"`
	Stations           int           `json:"stations"`
	Buffers            int           `json:"buffers"`
	NationalTotal      float64       `json:"national_total"`
	Zones              []ZoneShare   `json:"zones"`
	Dominant           []ZoneShare   `json:"dominant"`
	Representative     []BufferShare `json:"representative"`
	Coverage           float64       `json:"coverage"`
	Warnings           []Warning     `json:"warnings,omitempty"`
	StartedAt          time.Time     `json:"started_at"`
	FinishedAt         time.Time     `json:"finished_at"`
}

// HasWarning reports whether the result carries a warning of the given kind.
func (r *Result) HasWarning(kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
