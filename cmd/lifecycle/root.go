package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/lifecycle/pkg/cli"
	"mercator-hq/lifecycle/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "lifecycle",
	Short: "Request lifecycle server with pooled controllers",
	Long: `Lifecycle serves HTTP and websocket requests through pooled controllers.

Every request gets a controller from a pool. Objects the handler borrows from
other pools are recorded in the controller's ledger and returned when the
request ends, whether it succeeded, failed or was abandoned by its client.
Failures are classified into validation, authorization, infrastructure and
domain categories and answered with a uniform response envelope.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code for its result.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the configuration file named by --config, with
// environment overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return cfg, nil
}
