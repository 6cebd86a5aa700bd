package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/lifecycle/pkg/cli"
	"mercator-hq/lifecycle/pkg/config"
	"mercator-hq/lifecycle/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the lifecycle server",
	Long: `Start the lifecycle server with the specified configuration.

The server listens on the configured address for HTTP requests and, when
enabled, websocket connections. Every request runs on a pooled controller;
objects it borrows are returned when it ends.

Examples:
  # Start with default config
  lifecycle run

  # Start with custom config
  lifecycle run --config /etc/lifecycle/config.yaml

  # Override listen address
  lifecycle run --listen 0.0.0.0:8080

  # Validate config without starting server
  lifecycle run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("flags", err)
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	logger, err := logging.New(logging.ConfigFrom(cfg.Telemetry.Logging, os.Stdout))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err)
	}
	slog.SetDefault(logger.Slog())

	a, err := newApp(cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx, cancel := cli.SetupSignalHandler(context.Background())
	defer cancel()

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			_ = a.close(context.Background())
			return cli.NewCommandError("run", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Watch.Enabled {
		watcher, err := config.NewWatcher(cfgFile, cfg.Watch.Debounce, logger.Slog())
		if err != nil {
			logger.Warn("configuration watcher disabled", "error", err)
		} else {
			defer watcher.Stop()
			g.Go(func() error {
				// A broken watcher leaves the server running on the last
				// configuration.
				if err := watcher.Watch(gctx, a.reload); err != nil {
					logger.Error("configuration watcher failed", "error", err)
				}
				return nil
			})
		}
	}
	g.Go(func() error {
		return a.server.Start(gctx)
	})

	go printBanner(out, cfg, a)

	serveErr := g.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer closeCancel()
	if err := a.close(closeCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}

	if serveErr != nil {
		return cli.NewCommandError("run", serveErr)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// printBanner reports the endpoints once the server is listening.
func printBanner(out io.Writer, cfg *config.Config, a *app) {
	select {
	case <-a.server.Ready():
	case <-time.After(10 * time.Second):
		return
	}

	addr := a.server.Addr().String()
	fmt.Fprintf(out, "Lifecycle v%s\n", Version)
	fmt.Fprintf(out, "✓ Configuration loaded from %s\n", cfgFile)
	fmt.Fprintf(out, "✓ Pools: %v\n", a.pools.Names())
	if a.auditStore != nil {
		fmt.Fprintf(out, "✓ Audit trail: %s\n", cfg.Audit.Backend)
	}
	fmt.Fprintf(out, "✓ Server listening on %s\n", addr)
	if cfg.Server.WebSocket.Enabled {
		fmt.Fprintf(out, "✓ WebSocket endpoint: ws://%s%s\n", addr, cfg.Server.WebSocket.Path)
	}
	if cfg.Telemetry.Health.Enabled {
		fmt.Fprintf(out, "✓ Health endpoint: http://%s%s\n", addr, cfg.Telemetry.Health.LivenessPath)
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
