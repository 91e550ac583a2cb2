package inputs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rws-cli/internal/model"
	"github.com/sells-group/rws-cli/internal/rws"
)

// writePoints creates a one-point shapefile with a single string column.
func writePoints(t *testing.T, dir, name, column string) string {
	t.Helper()
	path := filepath.Join(dir, name+".shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField(column, 32)}))
	row := w.Write(&shp.Point{X: 36.8, Y: -1.3})
	require.NoError(t, w.WriteAttribute(int(row), 0, "value"))
	w.Close()
	return path
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("ncols 1\n"), 0o644))
	return path
}

func validRun(t *testing.T) rws.RunConfig {
	t.Helper()
	dir := t.TempDir()
	return rws.RunConfig{
		Run:     "maize",
		Country: "Kenya",
		Method:  model.MethodZonal,
		Inputs: rws.Inputs{
			Stations:          writePoints(t, dir, "stations", "NAME"),
			Countries:         writePoints(t, dir, "countries", "CNTRY"),
			Zones:             writePoints(t, dir, "zones", "GYGA_CZ"),
			CropRaster:        writeFile(t, dir, "maize.asc"),
			ZoneRaster:        filepath.Join(dir, "missing.asc"),
			StationNameColumn: "name",
			CountryField:      "CNTRY",
			ZoneField:         "GYGA_CZ",
		},
	}.WithDefaults()
}

func requireInvalid(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var ive *rws.InputValidationError
	require.True(t, errors.As(err, &ive), "got %v", err)
	assert.Equal(t, field, ive.Field)
	assert.Equal(t, rws.StageInputs, ive.Stage)
}

func TestCheck_Valid(t *testing.T) {
	assert.NoError(t, Check(validRun(t)))

	cfg := validRun(t)
	cfg.Country = ""
	assert.NoError(t, Check(cfg), "country is resolved from the stations when omitted")
}

func TestCheck_ZoneRasterOnlyForOfficialPoints(t *testing.T) {
	cfg := validRun(t)
	cfg.UseZoneRaster = true
	assert.NoError(t, Check(cfg), "zonal runs ignore the zone raster")

	cfg.Method = model.MethodPoints
	requireInvalid(t, Check(cfg), "zone_raster")

	cfg.Inputs.ZoneRaster = writeFile(t, t.TempDir(), "zones.asc")
	assert.NoError(t, Check(cfg))
}

func TestCheck_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*rws.RunConfig)
		field  string
	}{
		{"missing stations", func(c *rws.RunConfig) { c.Inputs.Stations = "/nope/stations.shp" }, "stations"},
		{"stations is dir", func(c *rws.RunConfig) { c.Inputs.Stations = t.TempDir() }, "stations"},
		{"stations not shp", func(c *rws.RunConfig) { c.Inputs.Stations = c.Inputs.CropRaster }, "stations"},
		{"missing station column", func(c *rws.RunConfig) { c.Inputs.StationNameColumn = "STATION" }, "station_name_column"},
		{"missing country column", func(c *rws.RunConfig) { c.Inputs.CountryField = "ADMIN" }, "country_field"},
		{"missing zone column", func(c *rws.RunConfig) { c.Inputs.ZoneField = "CZ" }, "zone_field"},
		{"missing crop raster", func(c *rws.RunConfig) { c.Inputs.CropRaster = "/nope/maize.asc" }, "crop_raster"},
		{"empty run", func(c *rws.RunConfig) { c.Run = "" }, "run"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validRun(t)
			tt.mutate(&cfg)
			requireInvalid(t, Check(cfg), tt.field)
		})
	}
}
