package cli

import (
	"github.com/spf13/cobra"
)

// overrides are flag values that win over the loaded configuration when set.
type overrides struct {
	target    int
	batchSize int
}

func (o *overrides) register(cmd *cobra.Command, withTarget, withBatch bool) {
	if withTarget {
		cmd.Flags().IntVarP(&o.target, "target", "n", 0, "Number of identifiers to discover (overrides TARGET_COUNT)")
	}
	if withBatch {
		cmd.Flags().IntVarP(&o.batchSize, "batch-size", "b", 0, "Records per committed batch (overrides BATCH_SIZE)")
	}
}

func (o *overrides) apply(a *app) {
	if o.target > 0 {
		a.cfg.TargetCount = o.target
	}
	if o.batchSize > 0 {
		a.cfg.BatchSize = o.batchSize
	}
}

func newRunCmd(a *app) *cobra.Command {
	o := &overrides{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover identifiers, then fetch and commit their details",
		RunE: func(c *cobra.Command, args []string) error {
			o.apply(a)
			return runIngest(c.Context(), a.cfg, true, true)
		},
	}
	o.register(cmd, true, true)
	return cmd
}

func newDiscoverCmd(a *app) *cobra.Command {
	o := &overrides{}
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Build the identifier store from the search pages",
		RunE: func(c *cobra.Command, args []string) error {
			o.apply(a)
			return runIngest(c.Context(), a.cfg, true, false)
		},
	}
	o.register(cmd, true, false)
	return cmd
}

func newFetchCmd(a *app) *cobra.Command {
	o := &overrides{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch details for the stored identifiers, resuming from the checkpoint",
		RunE: func(c *cobra.Command, args []string) error {
			o.apply(a)
			return runIngest(c.Context(), a.cfg, false, true)
		},
	}
	o.register(cmd, true, true)
	return cmd
}

func newRepairCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Re-encode local batches as NDJSON and upload them under the repaired prefix",
		RunE: func(c *cobra.Command, args []string) error {
			return runRepair(c.Context(), a.cfg)
		},
	}
}

func newAppListCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "applist",
		Short: "Export the full catalog app list (requires STEAM_API_KEY)",
		RunE: func(c *cobra.Command, args []string) error {
			if output != "" {
				a.cfg.AppListFile = output
			}
			return runAppList(c.Context(), a.cfg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (overrides APP_LIST_FILE)")
	return cmd
}

func newCheckpointCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or reset the resume cursor",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the index of the next unprocessed identifier",
		RunE: func(c *cobra.Command, args []string) error {
			return runCheckpointShow(c.Context(), a.cfg, c.OutOrStdout())
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete the checkpoint so the next fetch starts from the first identifier",
		RunE: func(c *cobra.Command, args []string) error {
			return runCheckpointReset(c.Context(), a.cfg)
		},
	}

	cmd.AddCommand(show, reset)
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL checkpoint schema for the configured backend",
		RunE: func(c *cobra.Command, args []string) error {
			return runMigrate(c.Context(), a.cfg)
		},
	}
}
