/*
Package cli provides command-line interface utilities for the lifecycle
command.

Output Formatting:

Commands render results as text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Data implementing Table is printed in aligned columns as text and as rows
in CSV. CSV output requires a Table.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
