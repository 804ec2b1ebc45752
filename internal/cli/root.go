package cli

import (
	"fmt"
	"os"

	"github.com/rustyeddy/polygate/config"
	"github.com/rustyeddy/polygate/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// RootOptions are the persistent flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
}

// load resolves the effective configuration and a logger for it. The
// --log-level flag wins over configuration.
func (o *RootOptions) load() (*config.Config, *zap.SugaredLogger, error) {
	var envFiles []string
	if o.EnvFile != "" {
		envFiles = append(envFiles, o.EnvFile)
	}
	cfg, err := config.Load(o.ConfigPath, envFiles...)
	if err != nil {
		return nil, nil, err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log.Sugar(), nil
}

func NewRootCmd() *cobra.Command {
	ro := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "polygate",
		Short: "polygate: reconciliation and preflight gate for a Polymarket bot",
		Long: `polygate decides whether the current account and market state is safe
enough to trade at all. It reconciles wallet balances against open-order
exposure, takes a read-only book snapshot, and prints an auditable decision
with explicit reason codes. It never places orders.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&ro.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&ro.EnvFile, "env-file", "", "Path to .env file (default ./.env)")
	cmd.PersistentFlags().StringVar(&ro.LogLevel, "log-level", "", "Log level: debug|info|warn|error")

	cmd.AddCommand(
		newCheckCmd(ro),
		newSnapshotCmd(ro),
		newServeCmd(ro),
		newJournalCmd(ro),
		newConfigCmd(ro),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "polygate %s\n", Version)
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
