package cli

import (
	"github.com/BartekS5/steampulse/internal/config"
	"github.com/BartekS5/steampulse/pkg/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// app carries what every sub-command needs once the root pre-run has loaded it.
type app struct {
	configPath string
	cfg        *config.Config
	runID      string
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "steampulse",
		Short: "steampulse - resilient storefront catalog ingestion",
		Long: `steampulse discovers catalog identifiers, fetches one detail payload per
identifier and commits them in batches to local disk and to remote sinks,
resuming from a checkpoint after any interruption.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			if err := logger.InitLogger(cfg.LogFile, cfg.LogLevel()); err != nil {
				return err
			}

			a.cfg = cfg
			a.runID = uuid.NewString()
			logger.SetRunID(a.runID)
			logger.Debugf("Loaded configuration from %s", a.configPath)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "steampulse.yaml", "Path to an optional YAML config file")

	rootCmd.AddCommand(
		newRunCmd(a),
		newDiscoverCmd(a),
		newFetchCmd(a),
		newRepairCmd(a),
		newAppListCmd(a),
		newCheckpointCmd(a),
		newMigrateCmd(a),
	)

	return rootCmd
}
