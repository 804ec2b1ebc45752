package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/polygate/journal"
	"github.com/spf13/cobra"
)

func newJournalCmd(ro *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query the cycle journal",
		Long: `Query decision cycles recorded in the SQLite journal.

Examples:
  polygate journal list --limit 20
  polygate journal show <cycle-id>`,
	}
	cmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to SQLite journal (default journal.path)")

	open := func() (*journal.SQLite, error) {
		path := dbPath
		if path == "" {
			cfg, _, err := ro.load()
			if err != nil {
				return nil, err
			}
			if cfg.Journal.Type != journal.KindSQLite {
				return nil, fmt.Errorf("journal.type is %q; only sqlite journals can be queried", cfg.Journal.Type)
			}
			path = cfg.Journal.Path
		}
		j, err := journal.NewSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent cycles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			recs, err := j.ListCycles(limit)
			if err != nil {
				return fmt.Errorf("list cycles: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CYCLE\tTIME\tCAN_TRADE\tCLEAN\tFREE_USDC\tREASONS")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%.2f\t%s\n",
					r.CycleID,
					r.Time.UTC().Format(time.RFC3339),
					r.CanTrade,
					r.StateClean,
					r.FreeUSDC,
					strings.Join(r.ReasonCodes, ","),
				)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum cycles to list (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show <cycle-id>",
		Short: "Print the full decision recorded for a cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			rec, err := j.GetCycle(args[0])
			if err != nil {
				return fmt.Errorf("get cycle: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), rec.Report, true)
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}
