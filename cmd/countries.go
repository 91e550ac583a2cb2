package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/rws-cli/internal/engine"
	"github.com/sells-group/rws-cli/internal/rws"
)

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List the countries the station set spans",
	Long:  "Intersects the station points with the country boundaries so a run can be pointed at one country.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := applyRunFlags(cmd.Flags(), cfg); err != nil {
			return err
		}
		if cfg.Inputs.Stations == "" || cfg.Inputs.Countries == "" {
			return &rws.InputValidationError{Stage: rws.StageScope, Field: "stations", Reason: "--stations and --countries are required"}
		}

		eng, closeEng, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeEng()

		found, err := listCountries(ctx, eng)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			fmt.Fprintln(os.Stderr, "No station lies inside a country polygon.")
			return nil
		}
		for _, c := range found {
			fmt.Println(c)
		}
		return nil
	},
}

func init() {
	f := countriesCmd.Flags()
	f.String("stations", "", "station point shapefile")
	f.String("countries", "", "country boundary shapefile")
	f.String("station-column", "", "station name column in the station shapefile")
	rootCmd.AddCommand(countriesCmd)
}

// listCountries imports the station and country sets into scratch layers and
// returns the countries containing at least one station.
func listCountries(ctx context.Context, eng engine.Engine) ([]string, error) {
	layers := rws.NewLayers("countries")
	defer func() {
		_, _ = rws.Cleanup(context.WithoutCancel(ctx), eng, layers.All(), rws.CleanupAll)
	}()

	stations := layers.Temp("stations")
	if _, err := eng.ImportFeatures(ctx, cfg.Inputs.Stations,
		engine.FeatureSpec{NameField: cfg.Inputs.StationNameColumn}, stations); err != nil {
		return nil, eris.Wrap(err, "countries: import stations")
	}
	countries := layers.Temp("boundaries")
	if _, err := eng.ImportFeatures(ctx, cfg.Inputs.Countries,
		engine.FeatureSpec{NameField: cfg.Inputs.CountryField}, countries); err != nil {
		return nil, eris.Wrap(err, "countries: import boundaries")
	}

	found, err := eng.Countries(ctx, stations, countries)
	return found, eris.Wrap(err, "countries: intersect")
}
