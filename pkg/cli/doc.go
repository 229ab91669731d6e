/*
Package cli provides command-line helpers for the custodian command.

Output Formatting:

Results are printed as aligned text columns or as JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

A result renders as columns when it implements Tabular.

Exit Codes:

ExitCode maps command errors to process exit codes, so scripts can tell
"nothing to delete" (3) and "deletion stopped part way" (4) apart from
configuration errors (2) and other failures (1).

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
