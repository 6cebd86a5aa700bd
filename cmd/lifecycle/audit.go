package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/lifecycle/pkg/audit"
	"mercator-hq/lifecycle/pkg/audit/retention"
	"mercator-hq/lifecycle/pkg/audit/storage"
	"mercator-hq/lifecycle/pkg/cli"
	"mercator-hq/lifecycle/pkg/config"
)

var auditFlags struct {
	limit  int
	format string
	output string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the request audit trail",
	Long: `Inspect and maintain the audit trail of finished requests.

Every finished request leaves one record with its outcome category, response
code, how many objects it borrowed and how many failed to go back.

Subcommands:
  list   - Show the most recent records
  prune  - Apply the configured retention policy now`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit records",
	Long: `List the most recent audit records, newest first.

Examples:
  # Last 20 records as a table
  lifecycle audit list

  # Last 100 records as JSON
  lifecycle audit list --limit 100 --format json

  # Everything as CSV into a file
  lifecycle audit list --limit 0 --format csv --output audit.csv`,
	RunE: runAuditList,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy",
	Long: `Delete audit records older than audit.retention.retention_days, then the
oldest records beyond audit.retention.max_records.`,
	RunE: runAuditPrune,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd, auditPruneCmd)

	auditListCmd.Flags().IntVarP(&auditFlags.limit, "limit", "n", 20, "maximum records to show, 0 for all")
	auditListCmd.Flags().StringVarP(&auditFlags.format, "format", "f", "text", "output format: text, json, csv")
	auditListCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "write to file instead of stdout")
}

// openAudit opens the configured audit storage for offline use. The memory
// backend lives inside the server process and cannot be read from here.
func openAudit(cfg *config.Config) (audit.Storage, error) {
	if !cfg.Audit.Enabled {
		return nil, cli.NewFieldError("audit.enabled", "audit trail is disabled")
	}
	if cfg.Audit.Backend == storage.BackendMemory {
		return nil, cli.NewFieldError("audit.backend", "the memory backend is only readable through the running server")
	}
	return storage.Open(cfg.Audit)
}

func runAuditList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if auditFlags.output != "" {
		f, err := os.Create(auditFlags.output)
		if err != nil {
			return cli.NewCommandError("audit list", err)
		}
		defer f.Close()
		out = f
	}

	return listAudit(cmd.Context(), store, out, format, auditFlags.limit)
}

// listAudit writes up to limit records from store to out.
func listAudit(ctx context.Context, store audit.Storage, out io.Writer, format cli.OutputFormat, limit int) error {
	records, err := store.List(ctx, limit)
	if err != nil {
		return cli.NewCommandError("audit list", err)
	}

	if len(records) == 0 && format == cli.FormatText {
		fmt.Fprintln(out, "No audit records found.")
		return nil
	}
	if err := cli.NewFormatter(format).FormatTo(out, audit.Table(records)); err != nil {
		return cli.NewCommandError("audit list", err)
	}
	return nil
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return pruneAudit(cmd.Context(), store, cmd.OutOrStdout(), retention.ConfigFrom(cfg.Audit.Retention))
}

// pruneAudit applies the retention policy rcfg to store.
func pruneAudit(ctx context.Context, store audit.Storage, out io.Writer, rcfg *retention.Config) error {
	if rcfg.RetentionDays == 0 && rcfg.MaxRecords == 0 {
		fmt.Fprintln(out, "No retention policy configured; nothing to prune.")
		return nil
	}

	deleted, err := retention.NewPruner(store, rcfg).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	remaining, err := store.Count(ctx)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}

	fmt.Fprintf(out, "✓ Deleted %d records, %d remaining\n", deleted, remaining)
	return nil
}
