package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rws-cli/internal/config"
	"github.com/sells-group/rws-cli/internal/rws"
)

// useConfig installs c as the command configuration for the duration of the test.
func useConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

// testConfig returns the defaults config.Load would produce, rooted in a temp workspace.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Workspace: t.TempDir(),
		Engine:    config.EngineConfig{Driver: "local", Schema: "rws", SRID: 4326, Segments: 16},
		Inputs: config.InputsConfig{
			StationNameColumn: "NAME",
			CountryField:      "CNTRY_NAME",
			ZoneField:         "GYGA_CZ",
		},
		Analysis: config.AnalysisConfig{
			Method:         "zonal",
			BufferRadiusKM: rws.DefaultBufferRadiusKM,
			CellSize:       rws.DefaultCellSize,
			DCZThreshold:   rws.DefaultDCZThreshold,
			RWSThreshold:   rws.DefaultRWSThreshold,
			MinZoneID:      rws.DefaultMinZoneID,
		},
		Store: config.StoreConfig{Driver: "sqlite"},
		Log:   config.LogConfig{Level: "info", Format: "json"},
	}
}

// writeStations creates a point shapefile with a NAME column.
func writeStations(t *testing.T, dir string, names []string, pts []shp.Point) string {
	t.Helper()
	path := filepath.Join(dir, "stations.shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("NAME", 32)}))
	for i := range pts {
		row := w.Write(&pts[i])
		require.NoError(t, w.WriteAttribute(int(row), 0, names[i]))
	}
	w.Close()
	return path
}

// writeBoxes creates a polygon shapefile of axis-aligned boxes with one string column.
func writeBoxes(t *testing.T, dir, name, column string, labels []string, boxes [][4]float64) string {
	t.Helper()
	path := filepath.Join(dir, name+".shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField(column, 32)}))
	for i, b := range boxes {
		minX, minY, maxX, maxY := b[0], b[1], b[2], b[3]
		ring := []shp.Point{
			{X: minX, Y: minY}, {X: minX, Y: maxY}, {X: maxX, Y: maxY},
			{X: maxX, Y: minY}, {X: minX, Y: minY},
		}
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring}))
		row := w.Write(&poly)
		require.NoError(t, w.WriteAttribute(int(row), 0, labels[i]))
	}
	w.Close()
	return path
}

// writeInputs fills c.Inputs with a small valid dataset in dir.
func writeInputs(t *testing.T, c *config.Config, dir string) {
	t.Helper()
	c.Inputs.Stations = writeStations(t, dir,
		[]string{"Nairobi", "Kisumu"},
		[]shp.Point{{X: 36.8, Y: -1.3}, {X: 34.7, Y: -0.1}})
	c.Inputs.Countries = writeBoxes(t, dir, "countries", "CNTRY_NAME",
		[]string{"Kenya"}, [][4]float64{{33, -5, 42, 5}})
	c.Inputs.Zones = writeBoxes(t, dir, "zones", "GYGA_CZ",
		[]string{"5001"}, [][4]float64{{33, -5, 42, 5}})
	c.Inputs.CropRaster = filepath.Join(dir, "maize.asc")
	require.NoError(t, os.WriteFile(c.Inputs.CropRaster,
		[]byte("ncols 1\nnrows 1\nxllcorner 33\nyllcorner -5\ncellsize 1\nNODATA_value -9999\n1\n"), 0o644))
}
