package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/config"
	"github.com/sells-group/rws-cli/internal/inputs"
	"github.com/sells-group/rws-cli/internal/model"
	"github.com/sells-group/rws-cli/internal/monitoring"
	"github.com/sells-group/rws-cli/internal/report"
	"github.com/sells-group/rws-cli/internal/rws"
	"github.com/sells-group/rws-cli/internal/settings"
)

var runCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Select representative weather station buffers for one country",
	Long: "Validates the inputs, resolves the country, builds zone-consistent station buffers, " +
		"ranks them by their share of national crop area and writes rws_<name>.csv.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := applyRunFlags(cmd.Flags(), cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		reuse, _ := cmd.Flags().GetBool("reuse")
		mode, err := rws.ParseCleanupMode(mustString(cmd.Flags(), "cleanup"))
		if err != nil {
			return err
		}

		rc, err := resolveRunConfig(cfg, args[0], reuse)
		if err != nil {
			return err
		}

		res, err := executeRun(ctx, rc, mode)
		if err != nil {
			return err
		}
		report.WriteSummary(os.Stdout, res)
		return nil
	},
}

func init() {
	addRunFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

// addRunFlags registers the run flags on f.
func addRunFlags(f *pflag.FlagSet) {
	f.String("country", "", "country to analyse (required when the stations span several countries)")
	f.String("method", "", "aggregation method: zonal or points (z/p)")
	f.String("stations", "", "station point shapefile")
	f.String("countries", "", "country boundary shapefile")
	f.String("zones", "", "climate zone polygon shapefile")
	f.String("crop-raster", "", "harvested crop area raster")
	f.String("zone-raster", "", "official climate zone raster (points method)")
	f.String("station-column", "", "station name column in the station shapefile")
	f.Bool("use-zone-raster", false, "sample the official zone raster instead of rasterizing the zone polygons")
	f.Float64("radius", 0, "buffer radius in km")
	f.Float64("dcz-threshold", 0, "dominant climate zone threshold (% of national crop area)")
	f.Float64("rws-threshold", 0, "representative buffer threshold (% of national crop area)")
	f.String("output", "", "directory for result files")
	f.Bool("xlsx", false, "also write an .xlsx export")
	f.String("metrics-textfile", "", "write Prometheus metrics to this node-exporter textfile")
	f.String("cleanup", "none", "drop workspace layers after the run: none, temp or all")
	f.Bool("reuse", false, "fill unset inputs from the saved settings file")
}

// applyRunFlags copies explicitly set flags over the loaded configuration.
func applyRunFlags(fs *pflag.FlagSet, c *config.Config) error {
	strs := map[string]*string{
		"country":          &c.Analysis.Country,
		"method":           &c.Analysis.Method,
		"stations":         &c.Inputs.Stations,
		"countries":        &c.Inputs.Countries,
		"zones":            &c.Inputs.Zones,
		"crop-raster":      &c.Inputs.CropRaster,
		"zone-raster":      &c.Inputs.ZoneRaster,
		"station-column":   &c.Inputs.StationNameColumn,
		"output":           &c.Output.Dir,
		"metrics-textfile": &c.Metrics.Textfile,
	}
	for name, dst := range strs {
		if fs.Changed(name) {
			v, err := fs.GetString(name)
			if err != nil {
				return eris.Wrapf(err, "flag %s", name)
			}
			*dst = v
		}
	}

	floats := map[string]*float64{
		"radius":        &c.Analysis.BufferRadiusKM,
		"dcz-threshold": &c.Analysis.DCZThreshold,
		"rws-threshold": &c.Analysis.RWSThreshold,
	}
	for name, dst := range floats {
		if fs.Changed(name) {
			v, err := fs.GetFloat64(name)
			if err != nil {
				return eris.Wrapf(err, "flag %s", name)
			}
			*dst = v
		}
	}

	bools := map[string]*bool{
		"use-zone-raster": &c.Analysis.UseZoneRaster,
		"xlsx":            &c.Output.XLSX,
	}
	for name, dst := range bools {
		if fs.Changed(name) {
			v, err := fs.GetBool(name)
			if err != nil {
				return eris.Wrapf(err, "flag %s", name)
			}
			*dst = v
		}
	}
	return nil
}

func mustString(fs *pflag.FlagSet, name string) string {
	v, _ := fs.GetString(name)
	return v
}

// resolveRunConfig builds the run parameters, fills gaps from the settings file
// when reuse is set, validates the inputs and saves them for the next run.
func resolveRunConfig(c *config.Config, name string, reuse bool) (rws.RunConfig, error) {
	rc, err := c.RunConfig(name)
	if err != nil {
		return rws.RunConfig{}, err
	}

	path := settings.Path(c.Workspace)
	if reuse {
		saved, found, err := settings.Load(path)
		if err != nil {
			return rws.RunConfig{}, err
		}
		if found {
			rc.Inputs = saved.Apply(rc.Inputs)
			zap.L().Info("reusing saved inputs", zap.String("settings", path))
		} else {
			zap.L().Warn("no saved settings to reuse", zap.String("settings", path))
		}
	}

	if err := inputs.Check(rc); err != nil {
		return rws.RunConfig{}, err
	}
	if err := settings.Save(path, settings.FromInputs(c.Workspace, rc.Inputs)); err != nil {
		zap.L().Warn("could not save settings", zap.Error(err))
	}
	return rc, nil
}

// executeRun runs the pipeline and records its outcome, result files, metrics
// and layers.
func executeRun(ctx context.Context, rc rws.RunConfig, mode rws.CleanupMode) (*model.Result, error) {
	log := zap.L().With(zap.String("run", rc.Run))

	eng, closeEng, err := openEngine(ctx)
	if err != nil {
		return nil, err
	}
	defer closeEng()

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	run, err := st.CreateRun(ctx, rc.Run, rc.Country, rc.Method)
	if err != nil {
		return nil, eris.Wrap(err, "record run")
	}

	metrics := monitoring.NewMetrics(rc.Run, rc.Country)
	layers := rws.NewLayers(rc.Run)
	p := rws.NewPipeline(eng, rws.WithObserver(metrics))

	res, runErr := p.Run(ctx, rc, layers)

	// Record layers and clean up with a fresh context so a canceled run still
	// leaves an accurate history.
	bg := context.WithoutCancel(ctx)
	if err := st.AddLayers(bg, run.ID, layers.All()); err != nil {
		log.Warn("could not record layers", zap.Error(err))
	}
	defer func() {
		n, err := rws.Cleanup(bg, eng, layers.All(), mode)
		if err != nil {
			log.Warn("cleanup incomplete", zap.Int("dropped", n), zap.Error(err))
		}
	}()
	writeMetrics(metrics, log)

	if runErr != nil {
		if err := st.FailRun(bg, run.ID, runErr); err != nil {
			log.Warn("could not record failure", zap.Error(err))
		}
		return nil, runErr
	}

	if err := writeReports(res); err != nil {
		_ = st.FailRun(bg, run.ID, err)
		return nil, err
	}
	if err := st.CompleteRun(bg, run.ID, res); err != nil {
		return nil, eris.Wrap(err, "record result")
	}
	log.Info("run complete",
		zap.String("id", run.ID),
		zap.Int("representative", len(res.Representative)),
		zap.Float64("coverage", res.Coverage),
	)
	return res, nil
}

func writeReports(res *model.Result) error {
	dir := cfg.OutputDir()
	path, err := report.WriteCSV(dir, res)
	if err != nil {
		return err
	}
	zap.L().Info("results saved", zap.String("path", path))

	if cfg.Output.XLSX {
		path, err := report.WriteXLSX(dir, res)
		if err != nil {
			return err
		}
		zap.L().Info("spreadsheet saved", zap.String("path", path))
	}
	return nil
}

func writeMetrics(m *monitoring.Metrics, log *zap.Logger) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn("could not write metrics", zap.Error(err))
	}
}
