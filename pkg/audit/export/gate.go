package export

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/custodian/pkg/audit"
)

// Gate records which events have been exported. Deletion refuses any event
// the gate has not seen.
type Gate struct {
	store  audit.EventStore
	logger *slog.Logger
}

// NewGate creates a gate over store.
func NewGate(store audit.EventStore, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		store:  store,
		logger: logger.With("component", "audit.export.gate"),
	}
}

// RecordExport sets the export timestamp of each listed event to exportedAt.
// Re-exporting overwrites the timestamp with the latest one. Deleted events
// are not touched. It returns the number of events updated.
//
// All ids go to the store in a single MarkExported call. The store applies
// it atomically, so a failed export never leaves some events stamped.
func (g *Gate) RecordExport(ctx context.Context, ids []string, exportedAt time.Time) (int64, error) {
	total, err := g.store.MarkExported(ctx, ids, exportedAt.UTC())
	if err != nil {
		return 0, err
	}

	g.logger.DebugContext(ctx, "recorded export",
		"requested", len(ids),
		"updated", total,
	)
	return total, nil
}

// HasBeenExported reports whether e has a recorded export.
func HasBeenExported(e *audit.Event) bool {
	return e != nil && e.Exported()
}
