package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/model"
	"github.com/sells-group/rws-cli/internal/rws"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Workspace)
	assert.Equal(t, "local", cfg.Engine.Driver)
	assert.Equal(t, "rws", cfg.Engine.Schema)
	assert.Equal(t, 4326, cfg.Engine.SRID)
	assert.Equal(t, "raster2pgsql", cfg.Engine.Raster2PgsqlPath)
	assert.Equal(t, 72, cfg.Engine.Segments)
	assert.Equal(t, "NAME", cfg.Inputs.StationNameColumn)
	assert.Equal(t, "zonal", cfg.Analysis.Method)
	assert.InDelta(t, 100, cfg.Analysis.BufferRadiusKM, 1e-9)
	assert.InDelta(t, 0.083333333, cfg.Analysis.CellSize, 1e-12)
	assert.InDelta(t, 5, cfg.Analysis.DCZThreshold, 1e-9)
	assert.InDelta(t, 0.8, cfg.Analysis.RWSThreshold, 1e-9)
	assert.Equal(t, 1, cfg.Analysis.MinZoneID)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
workspace: /work
engine:
  driver: postgis
  database_url: postgres://localhost/gis
analysis:
  country: Kenya
  method: points
  dcz_threshold: 10
  use_zone_raster: true
output:
  xlsx: true
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/work", cfg.Workspace)
	assert.Equal(t, "postgis", cfg.Engine.Driver)
	assert.Equal(t, "Kenya", cfg.Analysis.Country)
	assert.Equal(t, "points", cfg.Analysis.Method)
	assert.InDelta(t, 10, cfg.Analysis.DCZThreshold, 1e-9)
	assert.True(t, cfg.Analysis.UseZoneRaster)
	assert.True(t, cfg.Output.XLSX)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.8, cfg.Analysis.RWSThreshold, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
analysis:
  country: Kenya
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("RWS_ANALYSIS_COUNTRY", "Ghana")
	t.Setenv("RWS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Ghana", cfg.Analysis.Country)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("RWS_ANALYSIS_RWS_THRESHOLD", "1.5")
	t.Setenv("RWS_INPUTS_STATIONS", "/data/stations.shp")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, cfg.Analysis.RWSThreshold, 1e-9)
	assert.Equal(t, "/data/stations.shp", cfg.Inputs.Stations)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("engine: [oops"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func validDefaults() *Config {
	return &Config{
		Workspace: "/work",
		Engine:    EngineConfig{Driver: "local", Schema: "rws", SRID: 4326},
		Analysis:  AnalysisConfig{Method: "zonal"},
		Store:     StoreConfig{Driver: "sqlite"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown engine", func(c *Config) { c.Engine.Driver = "arcpy" }, "unknown engine.driver"},
		{"postgis without url", func(c *Config) { c.Engine.Driver = "postgis" }, "engine.database_url"},
		{"postgis without schema", func(c *Config) {
			c.Engine.Driver = "postgis"
			c.Engine.DatabaseURL = "postgres://x"
			c.Engine.Schema = ""
		}, "engine.schema"},
		{"postgres store falls back to engine url", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Engine.DatabaseURL = "postgres://x"
		}, ""},
		{"postgres store without url", func(c *Config) { c.Store.Driver = "postgres" }, "store.database_url"},
		{"unknown store", func(c *Config) { c.Store.Driver = "mysql" }, "unknown store.driver"},
		{"bad method", func(c *Config) { c.Analysis.Method = "raster" }, "analysis.method"},
		{"bad srid", func(c *Config) { c.Engine.SRID = 0 }, "engine.srid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPathsDefaultIntoWorkspace(t *testing.T) {
	cfg := validDefaults()
	assert.Equal(t, filepath.Join("/work", "rws.db"), cfg.StorePath())
	assert.Equal(t, "/work", cfg.OutputDir())

	cfg.Store.Path = "/db/runs.db"
	cfg.Output.Dir = "/out"
	assert.Equal(t, "/db/runs.db", cfg.StorePath())
	assert.Equal(t, "/out", cfg.OutputDir())
}

func TestRunConfig(t *testing.T) {
	cfg := validDefaults()
	cfg.Analysis = AnalysisConfig{
		Country: "Kenya", Method: "P", BufferRadiusKM: 50, CellSize: 0.5,
		DCZThreshold: 4, RWSThreshold: 1, MinZoneID: 1, UseZoneRaster: true,
	}
	cfg.Inputs = InputsConfig{Stations: "s.shp", StationNameColumn: "NAME"}

	rc, err := cfg.RunConfig("maize")
	require.NoError(t, err)
	assert.Equal(t, "maize", rc.Run)
	assert.Equal(t, model.MethodPoints, rc.Method)
	assert.True(t, rc.UseZoneRaster)
	assert.Equal(t, "s.shp", rc.Inputs.Stations)
	assert.Equal(t, rws.Thresholds{DCZ: 4, RWS: 1}, rc.Thresholds)
	assert.InDelta(t, 50, rc.BufferRadiusKM, 1e-9)
}

func TestRunConfig_FillsDefaults(t *testing.T) {
	cfg := validDefaults()
	rc, err := cfg.RunConfig("maize")
	require.NoError(t, err)
	assert.InDelta(t, rws.DefaultBufferRadiusKM, rc.BufferRadiusKM, 1e-9)
	assert.Equal(t, rws.DefaultMinZoneID, rc.MinZoneID)
}

func TestRunConfig_ZeroThresholdsKept(t *testing.T) {
	cfg := validDefaults()
	cfg.Analysis.DCZThreshold = 0
	cfg.Analysis.RWSThreshold = 0

	rc, err := cfg.RunConfig("maize")
	require.NoError(t, err)
	assert.Equal(t, rws.Thresholds{}, rc.Thresholds)
}

func TestLoad_DefaultThresholds(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	rc, err := cfg.RunConfig("maize")
	require.NoError(t, err)
	assert.Equal(t, rws.DefaultThresholds(), rc.Thresholds)
}

func TestRunConfig_BadMethod(t *testing.T) {
	cfg := validDefaults()
	cfg.Analysis.Method = "nope"
	_, err := cfg.RunConfig("maize")
	require.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
