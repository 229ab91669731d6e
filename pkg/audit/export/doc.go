// Package export writes audit events to files and records which events
// have been exported.
//
// # Export Formats
//
//   - JSON: array of events, with optional pretty-printing
//   - CSV: flattened columns with header row and proper escaping
//   - XLSX: one worksheet via github.com/xuri/excelize/v2
//
// Snapshots are written as raw JSON text in the flattened formats.
//
// # Export Gate
//
// Gate.RecordExport stamps the export time on each covered event. The
// deletion engine refuses events without a stamp. Service.Export only
// stamps events after their file is complete:
//
//	svc := export.NewService(store, &export.Config{
//	    Directory:        "data/exports",
//	    DefaultFormat:    export.FormatCSV,
//	    CSVIncludeHeader: true,
//	})
//	result, err := svc.Export(ctx, export.Request{Actor: "alice"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Path, result.Record.EventCount)
//
// # Streaming
//
// The JSON and CSV exporters also accept events from a channel through
// ExportStream for result sets too large to hold in memory.
//
// # Error Handling
//
// Exporters return *audit.ExportError when encoding or writing fails.
package export
