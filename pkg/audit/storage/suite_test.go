package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/audit"
)

func date(s string) time.Time {
	d, err := time.Parse(audit.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func timeAt(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// seedEvent builds an active event created at the given instant.
func seedEvent(id, created, retention string) *audit.Event {
	return &audit.Event{
		ID:            id,
		CreatedAt:     timeAt(created),
		Category:      "billing",
		Description:   "invoice updated",
		UserID:        "user-1",
		Module:        "invoices",
		Action:        "update",
		EntityID:      "inv-" + id,
		EntityType:    "invoice",
		Before:        json.RawMessage(`{"total":10}`),
		After:         json.RawMessage(`{"total":12}`),
		Status:        audit.StatusActive,
		RetentionDate: date(retention),
	}
}

// runStoreSuite exercises the audit.Store contract against a backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) audit.Store) {
	t.Run("EventRoundTrip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		e := seedEvent("e1", "2024-01-01T10:30:00Z", "2024-04-01")
		if err := store.CreateEvent(ctx, e); err != nil {
			t.Fatalf("CreateEvent() failed: %v", err)
		}

		got, err := store.GetEvent(ctx, "e1")
		if err != nil {
			t.Fatalf("GetEvent() failed: %v", err)
		}
		if !got.CreatedAt.Equal(e.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
		}
		if !got.RetentionDate.Equal(date("2024-04-01")) {
			t.Errorf("RetentionDate = %v, want 2024-04-01", got.RetentionDate)
		}
		if string(got.Before) != `{"total":10}` || string(got.After) != `{"total":12}` {
			t.Errorf("Snapshots not preserved: %s / %s", got.Before, got.After)
		}
		if got.Status != audit.StatusActive || got.ExportedAt != nil || got.DeletedAt != nil {
			t.Errorf("Unexpected lifecycle fields: %+v", got)
		}
		if got.EntityType != "invoice" || got.Module != "invoices" {
			t.Errorf("Attributes not preserved: %+v", got)
		}

		if _, err := store.GetEvent(ctx, "missing"); !errors.Is(err, audit.ErrNotFound) {
			t.Errorf("GetEvent(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("QueryFilters", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := 1; i <= 5; i++ {
			e := seedEvent(fmt.Sprintf("e%d", i),
				fmt.Sprintf("2024-01-0%dT00:00:00Z", i),
				fmt.Sprintf("2024-04-0%d", i))
			if i%2 == 0 {
				e.Module = "users"
			}
			if err := store.CreateEvent(ctx, e); err != nil {
				t.Fatalf("CreateEvent() failed: %v", err)
			}
		}

		if _, err := store.MarkExported(ctx, []string{"e1", "e2"}, timeAt("2024-03-01T00:00:00Z")); err != nil {
			t.Fatalf("MarkExported() failed: %v", err)
		}

		exported := true
		due := date("2024-04-03")
		events, err := store.QueryEvents(ctx, &audit.EventQuery{Exported: &exported, RetentionDueBy: &due})
		if err != nil {
			t.Fatalf("QueryEvents() failed: %v", err)
		}
		if len(events) != 2 || events[0].ID != "e1" || events[1].ID != "e2" {
			t.Errorf("Expected [e1 e2], got %d events", len(events))
		}

		notExported := false
		count, err := store.CountEvents(ctx, &audit.EventQuery{Exported: &notExported})
		if err != nil {
			t.Fatalf("CountEvents() failed: %v", err)
		}
		if count != 3 {
			t.Errorf("Expected 3 unexported, got %d", count)
		}

		count, _ = store.CountEvents(ctx, &audit.EventQuery{Module: "users"})
		if count != 2 {
			t.Errorf("Expected 2 events for module users, got %d", count)
		}

		from := timeAt("2024-01-02T00:00:00Z")
		to := timeAt("2024-01-04T00:00:00Z")
		count, _ = store.CountEvents(ctx, &audit.EventQuery{CreatedFrom: &from, CreatedTo: &to})
		if count != 3 {
			t.Errorf("Expected 3 events in range, got %d", count)
		}

		events, _ = store.QueryEvents(ctx, &audit.EventQuery{SortBy: "retention_date", SortOrder: "desc", Limit: 2, Offset: 1})
		if len(events) != 2 || events[0].ID != "e4" || events[1].ID != "e3" {
			t.Errorf("Pagination/sort wrong: %v", ids(events))
		}

		events, _ = store.QueryEvents(ctx, &audit.EventQuery{IDs: []string{"e5", "e3"}})
		if len(events) != 2 || events[0].ID != "e3" {
			t.Errorf("ID filter wrong: %v", ids(events))
		}
	})

	t.Run("TransitionGuards", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		overdueExported := seedEvent("a", "2024-01-01T00:00:00Z", "2024-03-01")
		overdueUnexported := seedEvent("b", "2024-01-02T00:00:00Z", "2024-03-01")
		notDue := seedEvent("c", "2024-01-03T00:00:00Z", "2024-06-01")
		for _, e := range []*audit.Event{overdueExported, overdueUnexported, notDue} {
			if err := store.CreateEvent(ctx, e); err != nil {
				t.Fatalf("CreateEvent() failed: %v", err)
			}
		}
		store.MarkExported(ctx, []string{"a", "c"}, timeAt("2024-02-01T00:00:00Z"))

		today := date("2024-03-20")
		at := timeAt("2024-03-20T12:00:00Z")
		n, err := store.TransitionEvents(ctx, audit.Transition{
			IDs:             []string{"a", "b", "c", "missing"},
			From:            []audit.LifecycleStatus{audit.StatusActive, audit.StatusMarkedForDeletion},
			To:              audit.StatusDeleted,
			RequireExported: true,
			RetentionDueBy:  &today,
			At:              at,
		})
		if err != nil {
			t.Fatalf("TransitionEvents() failed: %v", err)
		}
		if n != 1 {
			t.Fatalf("Expected 1 transitioned row, got %d", n)
		}

		got, _ := store.GetEvent(ctx, "a")
		if got.Status != audit.StatusDeleted || got.DeletedAt == nil || !got.DeletedAt.Equal(at) {
			t.Errorf("Event a not tombstoned: %+v", got)
		}
		for _, id := range []string{"b", "c"} {
			got, _ := store.GetEvent(ctx, id)
			if got.Status != audit.StatusActive {
				t.Errorf("Event %s should stay active, got %s", id, got.Status)
			}
		}

		// Repeating the write changes nothing.
		n, _ = store.TransitionEvents(ctx, audit.Transition{
			IDs:             []string{"a"},
			From:            []audit.LifecycleStatus{audit.StatusActive, audit.StatusMarkedForDeletion},
			To:              audit.StatusDeleted,
			RequireExported: true,
			RetentionDueBy:  &today,
			At:              at,
		})
		if n != 0 {
			t.Errorf("Second transition changed %d rows, want 0", n)
		}

		// Exporting a deleted row is a no-op.
		n, _ = store.MarkExported(ctx, []string{"a", "b"}, at)
		if n != 1 {
			t.Errorf("MarkExported() updated %d rows, want 1", n)
		}
	})

	t.Run("TransitionSetsRetentionDate", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		e := seedEvent("p", "2024-01-01T00:00:00Z", "2024-03-15")
		e.Status = audit.StatusMarkedForDeletion
		store.CreateEvent(ctx, e)

		newDate := date("2024-03-27")
		n, err := store.TransitionEvents(ctx, audit.Transition{
			IDs:              []string{"p"},
			From:             []audit.LifecycleStatus{audit.StatusMarkedForDeletion},
			To:               audit.StatusActive,
			SetRetentionDate: &newDate,
		})
		if err != nil || n != 1 {
			t.Fatalf("TransitionEvents() = %d, %v", n, err)
		}
		got, _ := store.GetEvent(ctx, "p")
		if got.Status != audit.StatusActive || !got.RetentionDate.Equal(newDate) {
			t.Errorf("Postponement not applied: %+v", got)
		}
		if got.DeletedAt != nil {
			t.Error("DeletedAt should stay nil")
		}
	})

	t.Run("Purge", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		store.CreateEvent(ctx, seedEvent("live", "2024-01-01T00:00:00Z", "2024-02-01"))
		dead := seedEvent("dead", "2024-01-01T00:00:00Z", "2024-02-01")
		dead.Status = audit.StatusDeleted
		store.CreateEvent(ctx, dead)

		n, err := store.PurgeEvents(ctx, []string{"live", "dead"})
		if err != nil {
			t.Fatalf("PurgeEvents() failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Purged %d rows, want 1", n)
		}
		if _, err := store.GetEvent(ctx, "dead"); !errors.Is(err, audit.ErrNotFound) {
			t.Errorf("Purged event still readable: %v", err)
		}
		if _, err := store.GetEvent(ctx, "live"); err != nil {
			t.Errorf("Live event removed: %v", err)
		}
	})

	t.Run("RetentionConfig", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		cfg, err := store.GetRetentionConfig(ctx)
		if err != nil {
			t.Fatalf("GetRetentionConfig() failed: %v", err)
		}
		if cfg != nil {
			t.Fatalf("Expected nil config before first save, got %+v", cfg)
		}

		created := timeAt("2024-01-01T00:00:00Z")
		if err := store.SaveRetentionConfig(ctx, &audit.RetentionConfig{
			RetentionMonths: 6, AlertDays: 10, UpdatedBy: "admin", CreatedAt: created, UpdatedAt: created,
		}); err != nil {
			t.Fatalf("SaveRetentionConfig() failed: %v", err)
		}

		updated := timeAt("2024-02-01T00:00:00Z")
		store.SaveRetentionConfig(ctx, &audit.RetentionConfig{
			RetentionMonths: 12, AlertDays: 30, AutoDeleteEnabled: true, UpdatedBy: "root",
			CreatedAt: updated, UpdatedAt: updated,
		})

		cfg, _ = store.GetRetentionConfig(ctx)
		if cfg == nil || cfg.RetentionMonths != 12 || cfg.AlertDays != 30 || !cfg.AutoDeleteEnabled {
			t.Fatalf("Config not updated: %+v", cfg)
		}
		if cfg.UpdatedBy != "root" || !cfg.UpdatedAt.Equal(updated) {
			t.Errorf("Update metadata wrong: %+v", cfg)
		}
	})

	t.Run("Receipts", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i, day := range []string{"2024-03-01T00:00:00Z", "2024-03-05T00:00:00Z"} {
			r := &audit.DeletionReceipt{
				ID:           fmt.Sprintf("r%d", i),
				DeletedBy:    "admin",
				DeletedCount: 3 + i,
				RangeStart:   timeAt("2024-01-01T00:00:00Z"),
				RangeEnd:     timeAt("2024-01-10T00:00:00Z"),
				DeletedAt:    timeAt(day),
				Checksum:     "abc",
			}
			if err := store.CreateReceipt(ctx, r); err != nil {
				t.Fatalf("CreateReceipt() failed: %v", err)
			}
		}

		list, err := store.ListReceipts(ctx, 0)
		if err != nil {
			t.Fatalf("ListReceipts() failed: %v", err)
		}
		if len(list) != 2 || list[0].ID != "r1" {
			t.Errorf("Expected newest first, got %+v", list)
		}

		got, err := store.GetReceipt(ctx, "r0")
		if err != nil {
			t.Fatalf("GetReceipt() failed: %v", err)
		}
		if got.DeletedCount != 3 || got.Checksum != "abc" || !got.RangeEnd.Equal(timeAt("2024-01-10T00:00:00Z")) {
			t.Errorf("Receipt fields wrong: %+v", got)
		}
		if _, err := store.GetReceipt(ctx, "nope"); !errors.Is(err, audit.ErrNotFound) {
			t.Errorf("GetReceipt(nope) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Alerts", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		start := timeAt("2024-01-01T00:00:00Z")
		alert := &audit.RetentionAlert{
			ID: "al1", Type: audit.AlertRetentionWarning, EventCount: 4,
			RangeStart: &start, Status: audit.AlertPending, CreatedAt: timeAt("2024-03-01T00:00:00Z"),
		}
		if err := store.CreateAlert(ctx, alert); err != nil {
			t.Fatalf("CreateAlert() failed: %v", err)
		}
		store.CreateAlert(ctx, &audit.RetentionAlert{
			ID: "al2", Type: audit.AlertExportReady, Status: audit.AlertPending, CreatedAt: timeAt("2024-03-02T00:00:00Z"),
		})

		ok, err := store.TransitionAlert(ctx, "al1", audit.AlertExported.Predecessors(), audit.AlertExported, timeAt("2024-03-03T00:00:00Z"))
		if err != nil || !ok {
			t.Fatalf("TransitionAlert() = %v, %v", ok, err)
		}

		// Backwards is refused.
		ok, err = store.TransitionAlert(ctx, "al1", audit.AlertAcknowledged.Predecessors(), audit.AlertAcknowledged, time.Now())
		if err != nil || ok {
			t.Errorf("Backward transition = %v, %v; want false, nil", ok, err)
		}

		if _, err := store.TransitionAlert(ctx, "missing", []audit.AlertStatus{audit.AlertPending}, audit.AlertDeleted, time.Now()); !errors.Is(err, audit.ErrNotFound) {
			t.Errorf("TransitionAlert(missing) error = %v, want ErrNotFound", err)
		}

		got, _ := store.GetAlert(ctx, "al1")
		if got.Status != audit.AlertExported || got.ExportedAt == nil || got.RangeStart == nil || got.RangeEnd != nil {
			t.Errorf("Alert fields wrong: %+v", got)
		}

		warnings, _ := store.ListAlerts(ctx, audit.AlertRetentionWarning, "")
		if len(warnings) != 1 {
			t.Errorf("Expected 1 warning, got %d", len(warnings))
		}
		pending, _ := store.ListAlerts(ctx, "", audit.AlertPending)
		if len(pending) != 1 || pending[0].ID != "al2" {
			t.Errorf("Expected only al2 pending, got %+v", pending)
		}
		all, _ := store.ListAlerts(ctx, "", "")
		if len(all) != 2 || all[0].ID != "al2" {
			t.Errorf("Expected newest first, got %+v", all)
		}
	})

	t.Run("ExportRecords", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		size := int64(2048)
		if err := store.CreateExportRecord(ctx, &audit.ExportRecord{
			ID: "x1", ExportedBy: "admin", Format: "csv", FileName: "audit.csv",
			EventCount: 10, FileSize: &size, ExportedAt: timeAt("2024-03-01T00:00:00Z"),
		}); err != nil {
			t.Fatalf("CreateExportRecord() failed: %v", err)
		}
		store.CreateExportRecord(ctx, &audit.ExportRecord{
			ID: "x2", ExportedBy: "admin", Format: "json", FileName: "audit.json",
			ExportedAt: timeAt("2024-03-02T00:00:00Z"),
		})

		records, err := store.ListExportRecords(ctx, 0)
		if err != nil {
			t.Fatalf("ListExportRecords() failed: %v", err)
		}
		if len(records) != 2 || records[0].ID != "x2" {
			t.Fatalf("Expected newest first, got %+v", records)
		}
		if records[0].FileSize != nil {
			t.Error("Missing file size should stay nil")
		}
		if records[1].FileSize == nil || *records[1].FileSize != 2048 {
			t.Errorf("File size not preserved: %+v", records[1])
		}

		limited, _ := store.ListExportRecords(ctx, 1)
		if len(limited) != 1 {
			t.Errorf("Limit ignored: %d records", len(limited))
		}
	})
}

func ids(events []*audit.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
