package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/lifeline/internal/daemon"
)

// DaemonOptions holds flags for the daemon command.
type DaemonOptions struct {
	*RootOptions
	Backend     string
	Schedule    string
	MetricsAddr string
}

// NewDaemonCommand creates the daemon command.
func NewDaemonCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DaemonOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Sync on a schedule and serve metrics",
		Long: `Run sync passes on a cron schedule until interrupted. Each pass probes the
backend first, so ticks while offline cost one failed health check.
With --metrics-addr, Prometheus metrics are served at /metrics.

Example:
  lifeline daemon --backend https://ledger.example.org --schedule "@every 30s" --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "backend base URL (overrides backend.url)")
	cmd.Flags().StringVar(&opts.Schedule, "schedule", "", "cron spec (overrides sync.schedule)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "listen address for /metrics (overrides metrics.addr)")
	return cmd
}

func runDaemon(opts *DaemonOptions, cmd *cobra.Command) error {
	return withApp(opts.RootOptions, cmd, func(app *App) error {
		orch, err := app.Syncer(opts.Backend)
		if err != nil {
			return err
		}

		schedule := opts.Schedule
		if schedule == "" {
			schedule = app.Config.Sync.Schedule
		}
		addr := opts.MetricsAddr
		if addr == "" {
			addr = app.Config.Metrics.Addr
		}

		d, err := daemon.New(orch,
			daemon.WithSchedule(schedule),
			daemon.WithMetricsAddr(addr),
			daemon.WithMetrics(app.Metrics),
			daemon.WithLogger(app.Logger),
		)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid daemon settings", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app.Logger.Info("daemon starting", "schedule", schedule, "metrics_addr", addr)
		fmt.Fprintf(cmd.ErrOrStderr(), "Syncing on %q. Press Ctrl-C to stop.\n", schedule)

		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return WrapExitError(ExitFailure, "daemon error", err)
		}
		app.Logger.Info("daemon stopped")
		return nil
	})
}
