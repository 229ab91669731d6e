package audit

import (
	"encoding/json"
	"time"
)

// SystemActor is recorded as the acting user when no human triggered the action.
const SystemActor = "system"

// Retention policy values used when no configuration row exists.
const (
	DefaultRetentionMonths = 3
	DefaultAlertDays       = 15
)

// Event is a single audit trail entry. Events are append-mostly: after
// creation only the export timestamp, the lifecycle status and the retention
// date change.
type Event struct {
	// Identity
	ID        string    `json:"id"`         // UUID v4
	CreatedAt time.Time `json:"created_at"` // When the audited action happened

	// Classification
	Category    string `json:"category"`           // Type tag ("auth", "billing", ...)
	Description string `json:"description"`        // Free text
	UserID      string `json:"user_id"`            // Acting user or "system"
	Module      string `json:"module"`             // Originating module
	Action      string `json:"action"`             // create, update, delete, apply, ...
	EntityID    string `json:"entity_id,omitempty"`   // Subject entity identifier
	EntityType  string `json:"entity_type,omitempty"` // Subject entity type
	Severity    string `json:"severity,omitempty"`

	// Snapshots of the subject entity, raw JSON. Nil means absent.
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`

	// Lifecycle
	Status        LifecycleStatus `json:"status"`
	RetentionDate time.Time       `json:"retention_date"`        // Calendar date (UTC midnight)
	ExportedAt    *time.Time      `json:"exported_at,omitempty"` // Nil until exported
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`  // Set when tombstoned
}

// Exported reports whether an export has covered this event.
func (e *Event) Exported() bool {
	return e.ExportedAt != nil
}

// Ready reports whether the event meets the hard deletion precondition on
// the given day: exported, retention date reached and not already deleted.
func (e *Event) Ready(today time.Time) bool {
	if e.Status == StatusDeleted || !e.Exported() {
		return false
	}
	return !e.RetentionDate.IsZero() && !e.RetentionDate.After(DateOf(today))
}

// RetentionConfig is the singleton retention policy. A missing row is
// represented by a nil *RetentionConfig.
type RetentionConfig struct {
	RetentionMonths   int       `json:"retention_months"`
	AlertDays         int       `json:"alert_days"`
	AutoDeleteEnabled bool      `json:"auto_delete_enabled"`
	UpdatedBy         string    `json:"updated_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DeletionReceipt is the immutable record of one batch deletion run.
type DeletionReceipt struct {
	ID           string    `json:"id"`
	DeletedBy    string    `json:"deleted_by"`
	DeletedCount int       `json:"deleted_count"`
	RangeStart   time.Time `json:"range_start"` // Earliest CreatedAt among deleted events
	RangeEnd     time.Time `json:"range_end"`   // Latest CreatedAt among deleted events
	AlertID      string    `json:"alert_id,omitempty"`
	DeletedAt    time.Time `json:"deleted_at"`
	Checksum     string    `json:"checksum,omitempty"`
}

// RetentionAlert tracks one lifecycle notification.
type RetentionAlert struct {
	ID             string      `json:"id"`
	Type           AlertType   `json:"type"`
	EventCount     int         `json:"event_count"`
	RangeStart     *time.Time  `json:"range_start,omitempty"`
	RangeEnd       *time.Time  `json:"range_end,omitempty"`
	Status         AlertStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
	ExportedAt     *time.Time  `json:"exported_at,omitempty"`
	DeletedAt      *time.Time  `json:"deleted_at,omitempty"`
}

// ExportRecord is the immutable log entry of one export action.
type ExportRecord struct {
	ID         string     `json:"id"`
	ExportedBy string     `json:"exported_by"`
	Format     string     `json:"format"`
	FileName   string     `json:"file_name"`
	EventCount int        `json:"event_count"`
	RangeStart *time.Time `json:"range_start,omitempty"`
	RangeEnd   *time.Time `json:"range_end,omitempty"`
	FileSize   *int64     `json:"file_size,omitempty"`
	ExportedAt time.Time  `json:"exported_at"`
}

// CreatedRange returns the earliest and latest CreatedAt among events.
// ok is false for an empty slice.
func CreatedRange(events []*Event) (start, end time.Time, ok bool) {
	for i, e := range events {
		if i == 0 {
			start, end = e.CreatedAt, e.CreatedAt
			continue
		}
		if e.CreatedAt.Before(start) {
			start = e.CreatedAt
		}
		if e.CreatedAt.After(end) {
			end = e.CreatedAt
		}
	}
	return start, end, len(events) > 0
}
