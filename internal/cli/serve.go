package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/polygate/cycle"
	"github.com/rustyeddy/polygate/internal/server"
	"github.com/rustyeddy/polygate/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(ro *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run decision cycles on an interval and serve the latest one",
		Long: `Run a decision cycle every server.interval and expose /healthz, /metrics
and /v1/decision. The served decision is for display only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ro.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			if addr == "" {
				addr = cfg.Server.Addr
			}

			m := metrics.New()
			runner, jrnl, err := buildRunner(cfg, log, m)
			if err != nil {
				return err
			}
			defer jrnl.Close()

			srv := server.New(m.Handler(), server.Options{
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Logger:         log.Named("server"),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(ctx, addr)
			})
			g.Go(func() error {
				runner.Every(ctx, cfg.Server.IntervalDuration(), func(rep cycle.Report) {
					srv.SetLatest(rep)
				})
				return nil
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default server.addr)")
	return cmd
}
