package retention

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/alerts"
	"mercator-hq/custodian/pkg/audit/storage"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

func TestDeleter_ExportGate(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()

	seed(t, store,
		eventSpec{id: "old-exported", createdAt: daysAgo(200), exported: true},
		eventSpec{id: "recent-exported", createdAt: daysAgo(100), exported: true},
		eventSpec{id: "old-unexported", createdAt: daysAgo(200)},
		eventSpec{id: "not-due", createdAt: daysAgo(20), exported: true},
	)

	d := NewDeleter(store, testOptions(testNow)...)
	receipt, err := d.DeleteEligible(ctx, DeleteRequest{Actor: "alice"})
	if err != nil {
		t.Fatalf("DeleteEligible() failed: %v", err)
	}

	if receipt.DeletedCount != 2 {
		t.Errorf("Expected 2 deleted, got %d", receipt.DeletedCount)
	}
	if receipt.DeletedBy != "alice" || !receipt.DeletedAt.Equal(testNow) {
		t.Errorf("Unexpected receipt %+v", receipt)
	}
	if !receipt.RangeStart.Equal(daysAgo(200)) || !receipt.RangeEnd.Equal(daysAgo(100)) {
		t.Errorf("Unexpected range %s..%s", receipt.RangeStart, receipt.RangeEnd)
	}
	if !Verify(receipt) {
		t.Error("Expected receipt checksum to verify")
	}

	for id, want := range map[string]audit.LifecycleStatus{
		"old-exported":    audit.StatusDeleted,
		"recent-exported": audit.StatusDeleted,
		"old-unexported":  audit.StatusActive,
		"not-due":         audit.StatusActive,
	} {
		got := mustGet(t, store, id)
		if got.Status != want {
			t.Errorf("%s: expected %s, got %s", id, want, got.Status)
		}
		if want == audit.StatusDeleted && (got.DeletedAt == nil || !got.DeletedAt.Equal(testNow)) {
			t.Errorf("%s: expected deleted_at stamped", id)
		}
	}

	stored, err := store.GetReceipt(ctx, receipt.ID)
	if err != nil {
		t.Fatalf("GetReceipt() failed: %v", err)
	}
	if stored.Checksum != receipt.Checksum {
		t.Error("Expected stored receipt to match returned receipt")
	}

	complete, err := store.ListAlerts(ctx, audit.AlertDeletionComplete, "")
	if err != nil {
		t.Fatalf("ListAlerts() failed: %v", err)
	}
	if len(complete) != 1 || complete[0].EventCount != 2 {
		t.Errorf("Expected one deletion_complete alert for 2 events, got %d", len(complete))
	}

	// Nothing left: the second run writes nothing.
	_, err = d.DeleteEligible(ctx, DeleteRequest{Actor: "alice"})
	if !errors.Is(err, audit.ErrNoEligibleEvents) {
		t.Errorf("Expected ErrNoEligibleEvents on second run, got %v", err)
	}
	receipts, _ := store.ListReceipts(ctx, 0)
	if len(receipts) != 1 {
		t.Errorf("Expected exactly one receipt, got %d", len(receipts))
	}
}

func TestDeleter_MarkedEventsDeleted(t *testing.T) {
	store := storage.NewMemoryStorage()
	seed(t, store,
		eventSpec{id: "marked", createdAt: daysAgo(150), status: audit.StatusMarkedForDeletion, exported: true},
		eventSpec{id: "gone", createdAt: daysAgo(150), status: audit.StatusDeleted, exported: true},
	)

	d := NewDeleter(store, testOptions(testNow)...)
	receipt, err := d.DeleteEligible(context.Background(), DeleteRequest{})
	if err != nil {
		t.Fatalf("DeleteEligible() failed: %v", err)
	}
	if receipt.DeletedCount != 1 || receipt.DeletedBy != audit.SystemActor {
		t.Errorf("Unexpected receipt %+v", receipt)
	}
}

func TestDeleter_Batches(t *testing.T) {
	store := storage.NewMemoryStorage()
	for i := 0; i < 5; i++ {
		seed(t, store, eventSpec{id: fmt.Sprintf("evt-%d", i), createdAt: daysAgo(120 + i), exported: true})
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{
		Enabled:         true,
		Namespace:       "custodian",
		Subsystem:       "retention",
		DurationBuckets: []float64{1},
	}, registry)

	d := NewDeleter(store, testOptions(testNow, WithMetrics(collector))...)
	receipt, err := d.DeleteEligible(context.Background(), DeleteRequest{BatchSize: 2})
	if err != nil {
		t.Fatalf("DeleteEligible() failed: %v", err)
	}
	if receipt.DeletedCount != 5 {
		t.Errorf("Expected 5 deleted, got %d", receipt.DeletedCount)
	}

	expected := `
# HELP custodian_retention_events_deleted_total Total number of audit events transitioned to deleted
# TYPE custodian_retention_events_deleted_total counter
custodian_retention_events_deleted_total 5
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "custodian_retention_events_deleted_total"); err != nil {
		t.Error(err)
	}
}

func TestDeleter_PartialFailure(t *testing.T) {
	mem := storage.NewMemoryStorage()
	for i := 0; i < 5; i++ {
		seed(t, mem, eventSpec{id: fmt.Sprintf("evt-%d", i), createdAt: daysAgo(120 + i), exported: true})
	}
	store := &flakyStore{
		MemoryStorage: mem,
		failFrom:      2,
		err:           audit.NewStorageError("memory", "transition_events", errors.New("disk I/O error")),
	}

	d := NewDeleter(store, testOptions(testNow)...)
	_, err := d.DeleteEligible(context.Background(), DeleteRequest{BatchSize: 2})

	var partial *audit.PartialDeletionError
	if !errors.As(err, &partial) {
		t.Fatalf("Expected PartialDeletionError, got %v", err)
	}
	if partial.FailedBatch != 2 || partial.TotalBatches != 3 {
		t.Errorf("Expected batch 2/3, got %d/%d", partial.FailedBatch, partial.TotalBatches)
	}
	if !errors.Is(err, audit.ErrStoreUnavailable) {
		t.Error("Expected cause to be a store error")
	}
	if partial.Receipt == nil || partial.Receipt.DeletedCount != 2 {
		t.Fatalf("Expected receipt for 2 events, got %+v", partial.Receipt)
	}

	// The two oldest retention dates went first.
	if !partial.Receipt.RangeStart.Equal(daysAgo(124)) || !partial.Receipt.RangeEnd.Equal(daysAgo(123)) {
		t.Errorf("Unexpected range %s..%s", partial.Receipt.RangeStart, partial.Receipt.RangeEnd)
	}
	if _, err := mem.GetReceipt(context.Background(), partial.Receipt.ID); err != nil {
		t.Errorf("Expected partial receipt to be stored: %v", err)
	}

	deleted, _ := mem.CountEvents(context.Background(), &audit.EventQuery{
		Statuses: []audit.LifecycleStatus{audit.StatusDeleted},
	})
	if deleted != 2 {
		t.Errorf("Expected 2 deleted events, got %d", deleted)
	}
}

func TestDeleter_StoreUnavailable(t *testing.T) {
	store := storage.NewMemoryStorage()
	seed(t, store, eventSpec{id: "evt", createdAt: daysAgo(150), exported: true})
	store.FailOn("transition_events", errors.New("database is locked"))

	d := NewDeleter(store, testOptions(testNow)...)
	_, err := d.DeleteEligible(context.Background(), DeleteRequest{})
	if !errors.Is(err, audit.ErrStoreUnavailable) {
		t.Fatalf("Expected ErrStoreUnavailable, got %v", err)
	}
	var partial *audit.PartialDeletionError
	if errors.As(err, &partial) {
		t.Error("Expected plain store error when nothing was deleted")
	}

	receipts, _ := store.ListReceipts(context.Background(), 0)
	if len(receipts) != 0 {
		t.Errorf("Expected no receipt, got %d", len(receipts))
	}
}

func TestDeleter_AuthorizingAlert(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	seed(t, store, eventSpec{id: "evt", createdAt: daysAgo(150), exported: true})

	ledger := alerts.NewLedger(store)
	alert, err := ledger.Raise(ctx, audit.AlertRetentionWarning, 1, nil, nil)
	if err != nil {
		t.Fatalf("Raise() failed: %v", err)
	}

	d := NewDeleter(store, testOptions(testNow, WithLedger(ledger))...)
	receipt, err := d.DeleteEligible(ctx, DeleteRequest{AlertID: alert.ID})
	if err != nil {
		t.Fatalf("DeleteEligible() failed: %v", err)
	}
	if receipt.AlertID != alert.ID {
		t.Errorf("Expected receipt to reference alert %s", alert.ID)
	}

	got, _ := ledger.Get(ctx, alert.ID)
	if got.Status != audit.AlertDeleted {
		t.Errorf("Expected alert deleted, got %s", got.Status)
	}
}

func TestDeleter_Purge(t *testing.T) {
	store := storage.NewMemoryStorage()
	seed(t, store,
		eventSpec{id: "tomb", createdAt: daysAgo(150), status: audit.StatusDeleted},
		eventSpec{id: "live", createdAt: daysAgo(150)},
	)

	d := NewDeleter(store, testOptions(testNow)...)
	n, err := d.Purge(context.Background(), []string{"tomb", "live"}, "alice")
	if err != nil {
		t.Fatalf("Purge() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 purged, got %d", n)
	}
	if _, err := store.GetEvent(context.Background(), "tomb"); !errors.Is(err, audit.ErrNotFound) {
		t.Errorf("Expected tombstone removed, got %v", err)
	}
	mustGet(t, store, "live")

	if _, err := d.Purge(context.Background(), nil, "alice"); !errors.Is(err, audit.ErrNoEligibleEvents) {
		t.Errorf("Expected ErrNoEligibleEvents for empty ids, got %v", err)
	}
}

func TestChunk(t *testing.T) {
	events := make([]*audit.Event, 5)
	for i := range events {
		events[i] = &audit.Event{ID: fmt.Sprint(i)}
	}

	got := chunk(events, 2)
	if len(got) != 3 || len(got[0]) != 2 || len(got[2]) != 1 {
		t.Errorf("Unexpected chunks %v", got)
	}
	if len(chunk(nil, 2)) != 0 {
		t.Error("Expected no chunks for no events")
	}
}
