package cli

import (
	"fmt"

	"github.com/rustyeddy/polygate/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(ro *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage polygate configuration files.

Examples:
  polygate config init -o polygate.yaml
  polygate config validate -f polygate.yaml`,
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveToFile(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "polygate.yaml", "Output config file path")

	var path string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := path
			if p == "" {
				p = ro.ConfigPath
			}
			if p == "" {
				return fmt.Errorf("no config file given (use -f or --config)")
			}
			cfg, err := config.LoadFromFile(p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (source=%s probe=%s journal=%s)\n",
				p, cfg.Exchange.Source, cfg.Snapshot.Probe, cfg.Journal.Type)
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&path, "file", "f", "", "Path to config file (default --config)")

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
