package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/export"
	"mercator-hq/custodian/pkg/audit/query"
	"mercator-hq/custodian/pkg/cli"
)

var exportFlags struct {
	format  string
	file    string
	actor   string
	alertID string
	filters eventFilters
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit events to a file",
	Long: `Export audit events to a JSON, CSV or Excel file in export.directory.

Every exported event is stamped as exported once the file is complete, which
is what allows it to be deleted after its retention date. By default every
event that is not deleted is exported, oldest first.

Examples:
  # Export everything not yet deleted as CSV
  custodian export

  # Export one module's January events as Excel
  custodian export --as xlsx --module billing --from 2024-01-01 --to 2024-01-31

  # Export in response to a retention warning
  custodian export --alert-id 1b4e28ba-2fa1-11d2-883f-0016d3cca427 --actor alice`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.format, "as", "", "file format: json, csv or xlsx (default: export.default_format)")
	exportCmd.Flags().StringVarP(&exportFlags.file, "output", "o", "", "file name inside the export directory")
	exportCmd.Flags().StringVar(&exportFlags.actor, "actor", "", "user recorded on the export (default: retention.actor)")
	exportCmd.Flags().StringVar(&exportFlags.alertID, "alert-id", "", "alert this export answers")
	exportFlags.filters.register(exportCmd.Flags())
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	q, err := exportFlags.filters.query()
	if err != nil {
		return err
	}
	if err := query.Validate(q); err != nil {
		return cli.NewConfigError("query", err.Error())
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.exportService().Export(cmd.Context(), export.Request{
		Actor:    actorOr(exportFlags.actor, a.cfg.Retention.Actor),
		Format:   exportFlags.format,
		Query:    q,
		FileName: exportFlags.file,
		AlertID:  exportFlags.alertID,
	})
	if err != nil {
		var exportErr *audit.ExportError
		if errors.As(err, &exportErr) && exportErr.Format != "" && !isKnownFormat(exportErr.Format) {
			return cli.NewConfigError("as", err.Error())
		}
		return cli.NewCommandError("export", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Exported %d events to %s\n", res.Record.EventCount, res.Path)
	if res.Record.FileSize != nil {
		fmt.Fprintf(out, "  Size: %d bytes\n", *res.Record.FileSize)
	}
	fmt.Fprintf(out, "  Export ID: %s\n", res.Record.ID)
	return nil
}

func isKnownFormat(format string) bool {
	switch format {
	case export.FormatJSON, export.FormatCSV, export.FormatXLSX:
		return true
	}
	return false
}
