// Package config loads rws-cli configuration from config.yaml and RWS_* environment variables.
package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/rws-cli/internal/model"
	"github.com/sells-group/rws-cli/internal/rws"
)

// Config holds the full application configuration.
type Config struct {
	Workspace string         `yaml:"workspace" mapstructure:"workspace"`
	Engine    EngineConfig   `yaml:"engine" mapstructure:"engine"`
	Inputs    InputsConfig   `yaml:"inputs" mapstructure:"inputs"`
	Analysis  AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Output    OutputConfig   `yaml:"output" mapstructure:"output"`
	Store     StoreConfig    `yaml:"store" mapstructure:"store"`
	Metrics   MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Log       LogConfig      `yaml:"log" mapstructure:"log"`
}

// EngineConfig selects and configures the geometry/raster engine.
type EngineConfig struct {
	Driver           string `yaml:"driver" mapstructure:"driver"` // local or postgis
	DatabaseURL      string `yaml:"database_url" mapstructure:"database_url"`
	Schema           string `yaml:"schema" mapstructure:"schema"`
	SRID             int    `yaml:"srid" mapstructure:"srid"`
	Raster2PgsqlPath string `yaml:"raster2pgsql_path" mapstructure:"raster2pgsql_path"`
	TileSize         string `yaml:"tile_size" mapstructure:"tile_size"`
	Segments         int    `yaml:"segments" mapstructure:"segments"`
}

// InputsConfig names the source datasets and the columns read from them.
type InputsConfig struct {
	Zones             string `yaml:"zones" mapstructure:"zones"`
	Countries         string `yaml:"countries" mapstructure:"countries"`
	Stations          string `yaml:"stations" mapstructure:"stations"`
	StationNameColumn string `yaml:"station_name_column" mapstructure:"station_name_column"`
	CountryField      string `yaml:"country_field" mapstructure:"country_field"`
	ZoneField         string `yaml:"zone_field" mapstructure:"zone_field"`
	CropRaster        string `yaml:"crop_raster" mapstructure:"crop_raster"`
	ZoneRaster        string `yaml:"zone_raster" mapstructure:"zone_raster"`
}

// AnalysisConfig holds the selection parameters.
type AnalysisConfig struct {
	Country        string  `yaml:"country" mapstructure:"country"`
	Method         string  `yaml:"method" mapstructure:"method"`
	BufferRadiusKM float64 `yaml:"buffer_radius_km" mapstructure:"buffer_radius_km"`
	CellSize       float64 `yaml:"cell_size" mapstructure:"cell_size"`
	DCZThreshold   float64 `yaml:"dcz_threshold" mapstructure:"dcz_threshold"`
	RWSThreshold   float64 `yaml:"rws_threshold" mapstructure:"rws_threshold"`
	MinZoneID      int     `yaml:"min_zone_id" mapstructure:"min_zone_id"`
	UseZoneRaster  bool    `yaml:"use_zone_raster" mapstructure:"use_zone_raster"`
}

// OutputConfig configures the result files.
type OutputConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	XLSX bool   `yaml:"xlsx" mapstructure:"xlsx"`
}

// StoreConfig configures run history.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MetricsConfig configures the node-exporter textfile output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("workspace", ".")
	v.SetDefault("engine.driver", "local")
	v.SetDefault("engine.database_url", "")
	v.SetDefault("engine.schema", "rws")
	v.SetDefault("engine.srid", 4326)
	v.SetDefault("engine.raster2pgsql_path", "raster2pgsql")
	v.SetDefault("engine.tile_size", "256x256")
	v.SetDefault("engine.segments", 72)
	v.SetDefault("inputs.zones", "")
	v.SetDefault("inputs.countries", "")
	v.SetDefault("inputs.stations", "")
	v.SetDefault("inputs.station_name_column", "NAME")
	v.SetDefault("inputs.country_field", "CNTRY_NAME")
	v.SetDefault("inputs.zone_field", "GYGA_CZ")
	v.SetDefault("inputs.crop_raster", "")
	v.SetDefault("inputs.zone_raster", "")
	v.SetDefault("analysis.country", "")
	v.SetDefault("analysis.method", string(model.MethodZonal))
	v.SetDefault("analysis.buffer_radius_km", rws.DefaultBufferRadiusKM)
	v.SetDefault("analysis.cell_size", rws.DefaultCellSize)
	v.SetDefault("analysis.dcz_threshold", rws.DefaultDCZThreshold)
	v.SetDefault("analysis.rws_threshold", rws.DefaultRWSThreshold)
	v.SetDefault("analysis.min_zone_id", rws.DefaultMinZoneID)
	v.SetDefault("analysis.use_zone_raster", false)
	v.SetDefault("output.dir", "")
	v.SetDefault("output.xlsx", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings that do not depend on a particular run.
func (c *Config) Validate() error {
	switch c.Engine.Driver {
	case "local":
	case "postgis":
		if c.Engine.DatabaseURL == "" {
			return eris.New("config: engine.database_url is required for the postgis engine")
		}
		if c.Engine.Schema == "" {
			return eris.New("config: engine.schema is required for the postgis engine")
		}
	default:
		return eris.Errorf("config: unknown engine.driver %q (want local or postgis)", c.Engine.Driver)
	}

	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.StoreDatabaseURL() == "" {
			return eris.New("config: store.database_url or engine.database_url is required for the postgres store")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q (want sqlite or postgres)", c.Store.Driver)
	}

	if _, err := model.ParseMethod(c.Analysis.Method); err != nil {
		return eris.Wrap(err, "config: analysis.method")
	}
	if c.Engine.SRID <= 0 {
		return eris.Errorf("config: engine.srid must be positive, got %d", c.Engine.SRID)
	}
	return nil
}

// StoreDatabaseURL returns the run-history database, falling back to the engine's.
func (c *Config) StoreDatabaseURL() string {
	if c.Store.DatabaseURL != "" {
		return c.Store.DatabaseURL
	}
	return c.Engine.DatabaseURL
}

// StorePath returns the SQLite file, defaulting into the workspace.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.Workspace, "rws.db")
}

// OutputDir returns the result directory, defaulting to the workspace.
func (c *Config) OutputDir() string {
	if c.Output.Dir != "" {
		return c.Output.Dir
	}
	return c.Workspace
}

// RunConfig builds the immutable run parameters for the named run.
func (c *Config) RunConfig(run string) (rws.RunConfig, error) {
	method, err := model.ParseMethod(c.Analysis.Method)
	if err != nil {
		return rws.RunConfig{}, eris.Wrap(err, "config: analysis.method")
	}
	return rws.RunConfig{
		Run:           run,
		Country:       c.Analysis.Country,
		Method:        method,
		UseZoneRaster: c.Analysis.UseZoneRaster,
		Inputs: rws.Inputs{
			Stations:          c.Inputs.Stations,
			Countries:         c.Inputs.Countries,
			Zones:             c.Inputs.Zones,
			CropRaster:        c.Inputs.CropRaster,
			ZoneRaster:        c.Inputs.ZoneRaster,
			StationNameColumn: c.Inputs.StationNameColumn,
			CountryField:      c.Inputs.CountryField,
			ZoneField:         c.Inputs.ZoneField,
		},
		BufferRadiusKM: c.Analysis.BufferRadiusKM,
		CellSize:       c.Analysis.CellSize,
		MinZoneID:      c.Analysis.MinZoneID,
		Thresholds: rws.Thresholds{
			DCZ: c.Analysis.DCZThreshold,
			RWS: c.Analysis.RWSThreshold,
		},
	}.WithDefaults(), nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
