package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arthur-debert/rollover/schedule"
	"github.com/arthur-debert/rollover/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const metricsShutdownTimeout = 5 * time.Second

func (cli *CLI) newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the automatic rollover scheduler running",
		Long: `Run the automatic rollover scheduler until interrupted.

The tree file is watched for changes made by other processes. The first
scheduler tick waits until the tree file exists and has loaded cleanly.
Every tick evaluates the schedule as 'auto' does.

With --metrics-addr, Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := cli.source.Settings()
			if err != nil {
				return NewConfigError("start watch", err)
			}
			h, err := cli.openHost(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := schedule.NewRunner(h.auto,
				schedule.WithInterval(settings.Interval),
				schedule.WithTimeFunc(cli.now),
				schedule.WithRunnerLogger(cli.logger))
			watcher := store.NewWatcher(h.tree, h.treePath, nil, cli.logger)

			addr, _ := cmd.Flags().GetString("metrics-addr")
			cli.logger.Info("watching tree",
				"tree", h.treePath,
				"interval", settings.Interval.String(),
				"metrics_addr", addr)

			if err := cli.watch(ctx, watcher, runner, addr); err != nil {
				return WrapError("watch", err, CommonSuggestions.CheckTree)
			}
			return nil
		},
	}
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

// watch runs the tree watcher, the scheduler and the optional metrics
// server until ctx is cancelled or one of them fails
func (cli *CLI) watch(ctx context.Context, watcher *store.Watcher, runner *schedule.Runner, metricsAddr string) error {
	var ln net.Listener
	if metricsAddr != "" {
		var err error
		if ln, err = net.Listen("tcp", metricsAddr); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Run(ctx)
	})

	g.Go(func() error {
		select {
		case <-watcher.Ready():
			cli.logger.Debug("tree loaded, scheduler ready")
			runner.MarkReady()
		case <-ctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		return runner.Run(ctx)
	})

	if ln != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(cli.registry, promhttp.HandlerOpts{}))
		srv := &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
