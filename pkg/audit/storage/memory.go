package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/custodian/pkg/audit"
)

// MemoryStorage implements audit.Store using in-memory maps.
// This implementation is intended for testing and should not be used in production.
// Every conditional write runs under a single lock, which makes each call
// atomic in the same way a single SQL statement is.
type MemoryStorage struct {
	events   map[string]*audit.Event
	config   *audit.RetentionConfig
	receipts map[string]*audit.DeletionReceipt
	alerts   map[string]*audit.RetentionAlert
	exports  map[string]*audit.ExportRecord
	mu       sync.RWMutex

	// failOn makes the named operation return an error; used by tests to
	// simulate an unavailable store.
	failOn map[string]error
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		events:   make(map[string]*audit.Event),
		receipts: make(map[string]*audit.DeletionReceipt),
		alerts:   make(map[string]*audit.RetentionAlert),
		exports:  make(map[string]*audit.ExportRecord),
		failOn:   make(map[string]error),
	}
}

// FailOn makes every later call of operation fail with err until cleared
// with a nil err.
func (s *MemoryStorage) FailOn(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, operation)
		return
	}
	s.failOn[operation] = err
}

func (s *MemoryStorage) fail(operation string) error {
	if err, ok := s.failOn[operation]; ok {
		return audit.NewStorageError("memory", operation, err)
	}
	return nil
}

// CreateEvent stores a copy of the event.
func (s *MemoryStorage) CreateEvent(ctx context.Context, event *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("create_event"); err != nil {
		return err
	}

	s.events[event.ID] = copyEvent(event)
	return nil
}

// GetEvent returns a copy of one event.
func (s *MemoryStorage) GetEvent(ctx context.Context, id string) (*audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("get_event"); err != nil {
		return nil, err
	}

	e, ok := s.events[id]
	if !ok {
		return nil, audit.ErrNotFound
	}
	return copyEvent(e), nil
}

// QueryEvents returns copies of matching events.
func (s *MemoryStorage) QueryEvents(ctx context.Context, query *audit.EventQuery) ([]*audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("query_events"); err != nil {
		return nil, err
	}

	results := []*audit.Event{}
	for _, e := range s.events {
		if matchesQuery(e, query) {
			results = append(results, copyEvent(e))
		}
	}

	sortEvents(results, query.SortBy, query.SortOrder)

	// Apply pagination
	start := query.Offset
	if start > len(results) {
		return []*audit.Event{}, nil
	}
	results = results[start:]
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}

	return results, nil
}

// CountEvents returns the number of matching events.
func (s *MemoryStorage) CountEvents(ctx context.Context, query *audit.EventQuery) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("count_events"); err != nil {
		return 0, err
	}

	var count int64
	for _, e := range s.events {
		if matchesQuery(e, query) {
			count++
		}
	}
	return count, nil
}

// MarkExported stamps exported_at on every listed non-deleted event. The
// whole list is applied under one lock.
func (s *MemoryStorage) MarkExported(ctx context.Context, ids []string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("mark_exported"); err != nil {
		return 0, err
	}

	var updated int64
	for _, id := range ids {
		e, ok := s.events[id]
		if !ok || e.Status == audit.StatusDeleted {
			continue
		}
		ts := at
		e.ExportedAt = &ts
		updated++
	}
	return updated, nil
}

// TransitionEvents applies a conditional batch update atomically.
func (s *MemoryStorage) TransitionEvents(ctx context.Context, t audit.Transition) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("transition_events"); err != nil {
		return 0, err
	}

	var updated int64
	for _, id := range uniqueIDs(t.IDs) {
		e, ok := s.events[id]
		if !ok || !statusIn(e.Status, t.From) {
			continue
		}
		if t.RequireExported && e.ExportedAt == nil {
			continue
		}
		if t.RetentionDueBy != nil && (e.RetentionDate.IsZero() || e.RetentionDate.After(audit.DateOf(*t.RetentionDueBy))) {
			continue
		}

		e.Status = t.To
		if t.SetRetentionDate != nil {
			e.RetentionDate = audit.DateOf(*t.SetRetentionDate)
		}
		if t.To == audit.StatusDeleted {
			at := t.At
			e.DeletedAt = &at
		}
		updated++
	}
	return updated, nil
}

// PurgeEvents removes tombstoned events.
func (s *MemoryStorage) PurgeEvents(ctx context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("purge_events"); err != nil {
		return 0, err
	}

	var removed int64
	for _, id := range ids {
		if e, ok := s.events[id]; ok && e.Status == audit.StatusDeleted {
			delete(s.events, id)
			removed++
		}
	}
	return removed, nil
}

// GetRetentionConfig returns the stored config or nil.
func (s *MemoryStorage) GetRetentionConfig(ctx context.Context) (*audit.RetentionConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("get_retention_config"); err != nil {
		return nil, err
	}

	if s.config == nil {
		return nil, nil
	}
	cfg := *s.config
	return &cfg, nil
}

// SaveRetentionConfig replaces the singleton.
func (s *MemoryStorage) SaveRetentionConfig(ctx context.Context, cfg *audit.RetentionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("save_retention_config"); err != nil {
		return err
	}

	c := *cfg
	s.config = &c
	return nil
}

// CreateReceipt stores a receipt.
func (s *MemoryStorage) CreateReceipt(ctx context.Context, receipt *audit.DeletionReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("create_receipt"); err != nil {
		return err
	}

	r := *receipt
	s.receipts[r.ID] = &r
	return nil
}

// GetReceipt returns one receipt.
func (s *MemoryStorage) GetReceipt(ctx context.Context, id string) (*audit.DeletionReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("get_receipt"); err != nil {
		return nil, err
	}

	r, ok := s.receipts[id]
	if !ok {
		return nil, audit.ErrNotFound
	}
	c := *r
	return &c, nil
}

// ListReceipts returns receipts newest first.
func (s *MemoryStorage) ListReceipts(ctx context.Context, limit int) ([]*audit.DeletionReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("list_receipts"); err != nil {
		return nil, err
	}

	out := make([]*audit.DeletionReceipt, 0, len(s.receipts))
	for _, r := range s.receipts {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeletedAt.Equal(out[j].DeletedAt) {
			return out[i].DeletedAt.After(out[j].DeletedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// CreateAlert stores an alert.
func (s *MemoryStorage) CreateAlert(ctx context.Context, alert *audit.RetentionAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("create_alert"); err != nil {
		return err
	}

	a := *alert
	s.alerts[a.ID] = &a
	return nil
}

// GetAlert returns one alert.
func (s *MemoryStorage) GetAlert(ctx context.Context, id string) (*audit.RetentionAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("get_alert"); err != nil {
		return nil, err
	}

	a, ok := s.alerts[id]
	if !ok {
		return nil, audit.ErrNotFound
	}
	c := *a
	return &c, nil
}

// ListAlerts returns alerts newest first.
func (s *MemoryStorage) ListAlerts(ctx context.Context, alertType audit.AlertType, status audit.AlertStatus) ([]*audit.RetentionAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("list_alerts"); err != nil {
		return nil, err
	}

	out := []*audit.RetentionAlert{}
	for _, a := range s.alerts {
		if alertType != "" && a.Type != alertType {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// TransitionAlert conditionally moves an alert forward.
func (s *MemoryStorage) TransitionAlert(ctx context.Context, id string, from []audit.AlertStatus, to audit.AlertStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("transition_alert"); err != nil {
		return false, err
	}

	a, ok := s.alerts[id]
	if !ok {
		return false, audit.ErrNotFound
	}

	matched := false
	for _, f := range from {
		if a.Status == f {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	ts := at
	a.Status = to
	switch to {
	case audit.AlertAcknowledged:
		a.AcknowledgedAt = &ts
	case audit.AlertExported:
		a.ExportedAt = &ts
	case audit.AlertDeleted:
		a.DeletedAt = &ts
	}
	return true, nil
}

// CreateExportRecord stores an export record.
func (s *MemoryStorage) CreateExportRecord(ctx context.Context, record *audit.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("create_export_record"); err != nil {
		return err
	}

	r := *record
	s.exports[r.ID] = &r
	return nil
}

// ListExportRecords returns export records newest first.
func (s *MemoryStorage) ListExportRecords(ctx context.Context, limit int) ([]*audit.ExportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("list_export_records"); err != nil {
		return nil, err
	}

	out := make([]*audit.ExportRecord, 0, len(s.exports))
	for _, r := range s.exports {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExportedAt.Equal(out[j].ExportedAt) {
			return out[i].ExportedAt.After(out[j].ExportedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}

// matchesQuery checks if an event matches the query filters.
func matchesQuery(e *audit.Event, q *audit.EventQuery) bool {
	if len(q.IDs) > 0 && !containsID(q.IDs, e.ID) {
		return false
	}
	if len(q.Statuses) > 0 && !statusIn(e.Status, q.Statuses) {
		return false
	}
	if q.Exported != nil && e.Exported() != *q.Exported {
		return false
	}
	if q.RetentionDueBy != nil {
		if e.RetentionDate.IsZero() || e.RetentionDate.After(audit.DateOf(*q.RetentionDueBy)) {
			return false
		}
	}
	if q.CreatedFrom != nil && e.CreatedAt.Before(*q.CreatedFrom) {
		return false
	}
	if q.CreatedTo != nil && e.CreatedAt.After(*q.CreatedTo) {
		return false
	}
	if q.Category != "" && e.Category != q.Category {
		return false
	}
	if q.Module != "" && e.Module != q.Module {
		return false
	}
	if q.Action != "" && e.Action != q.Action {
		return false
	}
	if q.UserID != "" && e.UserID != q.UserID {
		return false
	}
	if q.EntityType != "" && e.EntityType != q.EntityType {
		return false
	}
	if q.EntityID != "" && e.EntityID != q.EntityID {
		return false
	}
	return true
}

// sortEvents orders events by the requested field, breaking ties by ID so
// that results are deterministic.
func sortEvents(events []*audit.Event, sortBy, sortOrder string) {
	desc := sortOrder == "desc"
	key := func(e *audit.Event) time.Time {
		if sortBy == "retention_date" {
			return e.RetentionDate
		}
		return e.CreatedAt
	}
	sort.SliceStable(events, func(i, j int) bool {
		ki, kj := key(events[i]), key(events[j])
		if !ki.Equal(kj) {
			if desc {
				return ki.After(kj)
			}
			return ki.Before(kj)
		}
		if desc {
			return events[i].ID > events[j].ID
		}
		return events[i].ID < events[j].ID
	})
}

func copyEvent(e *audit.Event) *audit.Event {
	c := *e
	if e.ExportedAt != nil {
		t := *e.ExportedAt
		c.ExportedAt = &t
	}
	if e.DeletedAt != nil {
		t := *e.DeletedAt
		c.DeletedAt = &t
	}
	if e.Before != nil {
		c.Before = append([]byte(nil), e.Before...)
	}
	if e.After != nil {
		c.After = append([]byte(nil), e.After...)
	}
	return &c
}

func statusIn(s audit.LifecycleStatus, set []audit.LifecycleStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
