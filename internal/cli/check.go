package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

func newCheckCmd(ro *RootOptions) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Reconcile and run the preflight gate once",
		Long: `Run one decision cycle: reconcile balances against open orders, take a
book snapshot, evaluate the preflight thresholds and print the combined
decision as JSON. The exit status reports whether the cycle ran, not
whether trading is allowed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ro.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			runner, jrnl, err := buildRunner(cfg, log, nil)
			if err != nil {
				return err
			}
			defer jrnl.Close()

			rep := runner.Run(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), rep, !compact)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Print single-line JSON")
	return cmd
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
