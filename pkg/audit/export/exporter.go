package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"mercator-hq/custodian/pkg/audit"
)

// Supported export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Exporter writes audit events in one file format.
type Exporter interface {
	// Export writes events to w.
	Export(ctx context.Context, events []*audit.Event, w io.Writer) error

	// Format returns the format name, which is also the file extension.
	Format() string
}

// Options configures the exporters built by NewExporter.
type Options struct {
	JSONPretty       bool
	CSVIncludeHeader bool
}

// NewExporter returns the exporter for format.
func NewExporter(format string, opts Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return NewJSONExporter(opts.JSONPretty), nil
	case FormatCSV:
		return NewCSVExporter(opts.CSVIncludeHeader), nil
	case FormatXLSX:
		return NewXLSXExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (must be json, csv or xlsx)", format)
	}
}

// columns are the flattened event fields shared by CSV and XLSX output.
var columns = []string{
	"id", "created_at",
	"category", "description", "user_id", "module", "action",
	"entity_id", "entity_type", "severity",
	"status", "retention_date", "exported_at", "deleted_at",
	"before", "after",
}

// eventRow flattens an event. Snapshots are kept as raw JSON text.
func eventRow(e *audit.Event) []string {
	formatTime := func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	}
	formatDate := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(audit.DateLayout)
	}

	return []string{
		e.ID,
		formatTime(&e.CreatedAt),
		e.Category,
		e.Description,
		e.UserID,
		e.Module,
		e.Action,
		e.EntityID,
		e.EntityType,
		e.Severity,
		string(e.Status),
		formatDate(e.RetentionDate),
		formatTime(e.ExportedAt),
		formatTime(e.DeletedAt),
		string(e.Before),
		string(e.After),
	}
}
