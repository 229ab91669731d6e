package export

import (
	"context"
	"encoding/csv"
	"io"

	"mercator-hq/custodian/pkg/audit"
)

// flushEvery is how many streamed rows are written between flushes.
const flushEvery = 100

// CSVExporter exports audit events as CSV.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Format returns "csv".
func (e *CSVExporter) Format() string { return FormatCSV }

// Export writes events to w as CSV, one row per event. Before and after
// snapshots are written as raw JSON text.
func (e *CSVExporter) Export(ctx context.Context, events []*audit.Event, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(columns); err != nil {
			return audit.NewExportError(FormatCSV, len(events), err)
		}
	}

	for _, event := range events {
		if err := writer.Write(eventRow(event)); err != nil {
			return audit.NewExportError(FormatCSV, len(events), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError(FormatCSV, len(events), err)
	}
	return nil
}

// ExportStream writes events from a channel as CSV, flushing periodically.
func (e *CSVExporter) ExportStream(ctx context.Context, eventsCh <-chan *audit.Event, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(columns); err != nil {
			return audit.NewExportError(FormatCSV, 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-eventsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError(FormatCSV, count, err)
				}
				return nil
			}

			if err := writer.Write(eventRow(event)); err != nil {
				return audit.NewExportError(FormatCSV, count, err)
			}
			count++

			if count%flushEvery == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError(FormatCSV, count, err)
				}
			}
		}
	}
}
