package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rws-cli/internal/rws"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Build the shared zone-point grid from the official zone raster",
	Long: "Converts the official climate zone raster into the workspace point layer " + rws.GlobalZonePoints +
		" used by points-method runs. Only useful with a persistent engine (postgis); runs build it on demand otherwise.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := applyRunFlags(cmd.Flags(), cfg); err != nil {
			return err
		}
		if cfg.Inputs.ZoneRaster == "" {
			return &rws.InputValidationError{Stage: rws.StageInputs, Field: "zone_raster", Reason: "--zone-raster is required"}
		}

		eng, closeEng, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeEng()

		force, _ := cmd.Flags().GetBool("force")
		if force {
			if err := eng.Drop(ctx, rws.GlobalZonePoints); err != nil {
				return eris.Wrap(err, "load: drop zone points")
			}
		}

		layers := rws.NewLayers("load")
		scratch := layers.Temp("zone_raster")
		built, err := rws.EnsureGlobalZonePoints(ctx, eng, cfg.Inputs.ZoneRaster, scratch)
		if _, cerr := rws.Cleanup(ctx, eng, layers.All(), rws.CleanupTemp); cerr != nil {
			zap.L().Warn("could not drop scratch raster", zap.Error(cerr))
		}
		if err != nil {
			return err
		}

		if built {
			fmt.Printf("Built %s from %s\n", rws.GlobalZonePoints, cfg.Inputs.ZoneRaster)
		} else {
			fmt.Printf("%s already exists (use --force to rebuild)\n", rws.GlobalZonePoints)
		}
		return nil
	},
}

func init() {
	loadCmd.Flags().String("zone-raster", "", "official climate zone raster")
	loadCmd.Flags().Bool("force", false, "rebuild the grid even if it exists")
	rootCmd.AddCommand(loadCmd)
}
