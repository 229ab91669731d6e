package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEligibleEvents is returned when a deletion or postponement
	// selects nothing. It is informational, not a failure of the store.
	ErrNoEligibleEvents = errors.New("no eligible events")

	// ErrStoreUnavailable matches every StorageError via errors.Is.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when a keyed lookup has no row.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status change would move
	// backwards or the row no longer holds an expected prior status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("query_events", "transition", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is makes every StorageError match ErrStoreUnavailable.
func (e *StorageError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// QueryError represents an invalid event query.
type QueryError struct {
	Query *EventQuery
	Cause error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(query *EventQuery, cause error) *QueryError {
	return &QueryError{
		Query: query,
		Cause: cause,
	}
}

// RetentionError represents an error during retention enforcement.
type RetentionError struct {
	Operation string // "delete", "postpone", "scan", ...
	Cause     error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(operation string, cause error) *RetentionError {
	return &RetentionError{
		Operation: operation,
		Cause:     cause,
	}
}

// PartialDeletionError reports a deletion run that stopped at a failing
// batch after earlier batches were applied. Receipt covers the applied
// batches and is nil when nothing was deleted.
type PartialDeletionError struct {
	Receipt      *DeletionReceipt
	FailedBatch  int // 1-based index of the failing batch
	TotalBatches int
	Cause        error
}

// Error implements the error interface.
func (e *PartialDeletionError) Error() string {
	deleted := 0
	if e.Receipt != nil {
		deleted = e.Receipt.DeletedCount
	}
	return fmt.Sprintf("deletion stopped at batch %d/%d after %d events: %v",
		e.FailedBatch, e.TotalBatches, deleted, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PartialDeletionError) Unwrap() error {
	return e.Cause
}

// ExportError represents an error during event export.
type ExportError struct {
	Format     string // Export format ("json", "csv", "xlsx")
	EventCount int    // Number of events being exported
	Cause      error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, event_count=%d]: %v", e.Format, e.EventCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, eventCount int, cause error) *ExportError {
	return &ExportError{
		Format:     format,
		EventCount: eventCount,
		Cause:      cause,
	}
}
