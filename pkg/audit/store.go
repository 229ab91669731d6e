package audit

import (
	"context"
	"time"
)

// EventQuery defines filter parameters for selecting audit events.
type EventQuery struct {
	// Targeting
	IDs      []string          `json:"ids,omitempty"`      // id IN (...)
	Statuses []LifecycleStatus `json:"statuses,omitempty"` // status IN (...)

	// Export gate filter: nil ignores, true requires exported_at IS NOT NULL,
	// false requires exported_at IS NULL.
	Exported *bool `json:"exported,omitempty"`

	// RetentionDueBy selects retention_date <= the given date.
	RetentionDueBy *time.Time `json:"retention_due_by,omitempty"`

	// Creation time range (inclusive)
	CreatedFrom *time.Time `json:"created_from,omitempty"`
	CreatedTo   *time.Time `json:"created_to,omitempty"`

	// Attribute filters
	Category   string `json:"category,omitempty"`
	Module     string `json:"module,omitempty"`
	Action     string `json:"action,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`

	// Pagination. Limit 0 means no limit.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting: "created_at" or "retention_date"; "asc" or "desc".
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Transition is a conditional batch status update. A row is changed only if
// it still satisfies every guard at write time; rows that do not match are
// skipped silently and are not counted.
type Transition struct {
	IDs  []string          // Rows to consider
	From []LifecycleStatus // Current status must be one of these
	To   LifecycleStatus

	// Guards re-checked inside the write.
	RequireExported bool       // exported_at IS NOT NULL
	RetentionDueBy  *time.Time // retention_date <= date

	// Side updates applied with the status change.
	SetRetentionDate *time.Time // new retention date (postponement)
	At               time.Time  // stamped into deleted_at when To is deleted
}

// EventStore persists audit events.
type EventStore interface {
	// CreateEvent appends an event.
	CreateEvent(ctx context.Context, event *Event) error

	// GetEvent returns one event or ErrNotFound.
	GetEvent(ctx context.Context, id string) (*Event, error)

	// QueryEvents returns events matching the query. Returns an empty slice
	// when nothing matches.
	QueryEvents(ctx context.Context, query *EventQuery) ([]*Event, error)

	// CountEvents returns the exact number of events matching the query.
	CountEvents(ctx context.Context, query *EventQuery) (int64, error)

	// MarkExported sets exported_at on every listed non-deleted event,
	// overwriting any earlier value. The write is atomic: on error no event
	// has been stamped. Returns the number of rows updated.
	MarkExported(ctx context.Context, ids []string, at time.Time) (int64, error)

	// TransitionEvents applies a conditional batch update atomically and
	// returns the number of rows that changed.
	TransitionEvents(ctx context.Context, t Transition) (int64, error)

	// PurgeEvents physically removes listed events already in the deleted
	// state. Returns the number of rows removed.
	PurgeEvents(ctx context.Context, ids []string) (int64, error)
}

// ConfigStore persists the singleton retention configuration.
type ConfigStore interface {
	// GetRetentionConfig returns the stored config, or nil when absent.
	GetRetentionConfig(ctx context.Context) (*RetentionConfig, error)

	// SaveRetentionConfig inserts or replaces the singleton.
	SaveRetentionConfig(ctx context.Context, cfg *RetentionConfig) error
}

// ReceiptStore persists deletion receipts. Receipts are never updated.
type ReceiptStore interface {
	CreateReceipt(ctx context.Context, receipt *DeletionReceipt) error
	GetReceipt(ctx context.Context, id string) (*DeletionReceipt, error)
	// ListReceipts returns receipts newest first. limit 0 means no limit.
	ListReceipts(ctx context.Context, limit int) ([]*DeletionReceipt, error)
}

// AlertStore persists retention alerts.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *RetentionAlert) error
	GetAlert(ctx context.Context, id string) (*RetentionAlert, error)

	// ListAlerts returns alerts newest first, optionally filtered by type
	// and status (empty values match everything).
	ListAlerts(ctx context.Context, alertType AlertType, status AlertStatus) ([]*RetentionAlert, error)

	// TransitionAlert moves an alert to status `to` only if its current
	// status is one of `from`, stamping the matching timestamp with at.
	// Returns false when the alert exists but did not match.
	TransitionAlert(ctx context.Context, id string, from []AlertStatus, to AlertStatus, at time.Time) (bool, error)
}

// ExportStore persists export records. Records are never updated.
type ExportStore interface {
	CreateExportRecord(ctx context.Context, record *ExportRecord) error
	// ListExportRecords returns records newest first. limit 0 means no limit.
	ListExportRecords(ctx context.Context, limit int) ([]*ExportRecord, error)
}

// Store is the full persistence surface used by the retention pipeline.
// Implementations must be safe for concurrent use.
type Store interface {
	EventStore
	ConfigStore
	ReceiptStore
	AlertStore
	ExportStore

	// Close releases any resources held by the storage backend.
	Close() error
}
