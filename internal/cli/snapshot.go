package cli

import (
	"context"

	"github.com/rustyeddy/polygate/snapshot"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(ro *RootOptions) *cobra.Command {
	var audit bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print a read-only book snapshot as JSON",
		Long: `Discover markets, fetch their books and last trade times, and print the
snapshot as JSON on stdout. The output is what the command probe expects,
so "polygate snapshot" can itself be configured as snapshot.command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ro.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			src, err := buildSources(cfg)
			if err != nil {
				return err
			}
			probe := buildProbe(cfg, src, log)

			timeout := cfg.Snapshot.TimeoutDuration()
			if timeout <= 0 {
				timeout = snapshot.DefaultTimeout
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			snap, err := probe.Run(ctx)
			if err != nil {
				return err
			}
			if audit {
				if err := snapshot.WriteAudit(cfg.Snapshot.AuditPath, snap); err != nil {
					log.Warnw("snapshot audit write failed", "err", err)
				}
			}
			return writeJSON(cmd.OutOrStdout(), snap, true)
		},
	}

	cmd.Flags().BoolVar(&audit, "audit", false, "Also write the snapshot to snapshot.audit_path")
	return cmd
}
