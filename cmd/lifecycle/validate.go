package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"mercator-hq/lifecycle/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file, apply environment overrides and check every
setting. Each invalid field is reported.

Examples:
  # Validate the default config file
  lifecycle validate

  # Validate a specific file
  lifecycle validate --config /etc/lifecycle/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// printSummary reports the effective configuration. Pool limits are listed
// only in verbose mode.
func printSummary(out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", cfgFile)
	fmt.Fprintf(out, "  Listen address: %s\n", cfg.Server.ListenAddress)
	if cfg.Server.WebSocket.Enabled {
		fmt.Fprintf(out, "  WebSocket path: %s\n", cfg.Server.WebSocket.Path)
	}
	if cfg.Audit.Enabled {
		fmt.Fprintf(out, "  Audit backend: %s\n", cfg.Audit.Backend)
	} else {
		fmt.Fprintln(out, "  Audit: disabled")
	}
	if cfg.Maintenance.Enabled {
		fmt.Fprintf(out, "  Maintenance schedule: %s\n", cfg.Maintenance.PruneSchedule)
	}

	if !verbose {
		return
	}
	limits := poolLimits(cfg)
	names := make([]string, 0, len(limits))
	for name := range limits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		l := limits[name]
		fmt.Fprintf(out, "  Pool %s: max_idle=%d max_active=%d idle_timeout=%s\n",
			name, l.MaxIdle, l.MaxActive, l.IdleTimeout)
	}
}
