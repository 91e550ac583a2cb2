package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/rws-cli/internal/rws"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <run-id>",
	Short: "Drop the workspace layers a run created",
	Long: "Drops a recorded run's intermediate layers (--mode temp) or all of its layers (--mode all). " +
		"The shared " + rws.GlobalZonePoints + " layer is never dropped.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, err := rws.ParseCleanupMode(modeFlag)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		layers, err := st.Layers(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "cleanup")
		}
		selected := rws.Selected(layers, mode)
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			for _, l := range selected {
				fmt.Printf("%s\t%s\n", l.Kind, l.Name)
			}
			return nil
		}

		eng, closeEng, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeEng()

		n, err := rws.Cleanup(ctx, eng, layers, mode)
		fmt.Printf("Dropped %d of %d layers\n", n, len(selected))
		return err
	},
}

func init() {
	cleanupCmd.Flags().String("mode", "temp", "which layers to drop: temp or all")
	cleanupCmd.Flags().Bool("dry-run", false, "list the layers without dropping them")
	rootCmd.AddCommand(cleanupCmd)
}
