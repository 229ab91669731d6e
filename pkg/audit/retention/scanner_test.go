package retention

import (
	"context"
	"testing"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/storage"
)

func TestScanner_Scan(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	seed(t, store,
		eventSpec{id: "overdue", createdAt: daysAgo(95), retention: daysAgo(2)},
		eventSpec{id: "soon", createdAt: daysAgo(85), retention: daysAgo(-5)},
		eventSpec{id: "far", createdAt: daysAgo(30), retention: daysAgo(-60)},
	)

	s := NewScanner(store, testOptions(testNow)...)
	result, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}

	if len(result.Eligible) != 2 {
		t.Errorf("Expected 2 eligible, got %d", len(result.Eligible))
	}
	if result.Marked != 1 {
		t.Errorf("Expected 1 marked, got %d", result.Marked)
	}
	if result.Alert == nil || result.Alert.Type != audit.AlertRetentionWarning || result.Alert.EventCount != 2 {
		t.Fatalf("Expected retention warning for 2 events, got %+v", result.Alert)
	}
	if got := mustGet(t, store, "overdue"); got.Status != audit.StatusMarkedForDeletion {
		t.Errorf("Expected overdue event marked, got %s", got.Status)
	}
	if got := mustGet(t, store, "soon"); got.Status != audit.StatusActive {
		t.Errorf("Expected soon event still active, got %s", got.Status)
	}

	// A pending warning suppresses another one.
	result, err = s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if result.Alert != nil {
		t.Error("Expected no new alert while one is pending")
	}
	if len(result.Eligible) != 1 || result.Marked != 0 {
		t.Errorf("Expected 1 eligible and nothing marked, got %d/%d", len(result.Eligible), result.Marked)
	}

	warnings, _ := store.ListAlerts(ctx, audit.AlertRetentionWarning, "")
	if len(warnings) != 1 {
		t.Errorf("Expected one warning, got %d", len(warnings))
	}
}

func TestScanner_NothingEligible(t *testing.T) {
	store := storage.NewMemoryStorage()
	seed(t, store, eventSpec{id: "far", createdAt: daysAgo(1)})

	result, err := NewScanner(store, testOptions(testNow)...).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(result.Eligible) != 0 || result.Alert != nil {
		t.Errorf("Expected empty scan, got %+v", result)
	}
}

func TestSummarize(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	seed(t, store,
		eventSpec{id: "ready", createdAt: daysAgo(150), exported: true},
		eventSpec{id: "held", createdAt: daysAgo(150)},
		eventSpec{id: "marked", createdAt: daysAgo(100), status: audit.StatusMarkedForDeletion},
		eventSpec{id: "gone", createdAt: daysAgo(200), status: audit.StatusDeleted, exported: true},
		eventSpec{id: "new", createdAt: daysAgo(1)},
	)

	sum, err := Summarize(ctx, store, testNow)
	if err != nil {
		t.Fatalf("Summarize() failed: %v", err)
	}

	if sum.PolicyPersisted || sum.Policy.RetentionMonths != 3 {
		t.Errorf("Expected default policy, got %+v", sum.Policy)
	}
	if sum.Active != 3 || sum.MarkedForDeletion != 1 || sum.Deleted != 1 {
		t.Errorf("Unexpected status counts %d/%d/%d", sum.Active, sum.MarkedForDeletion, sum.Deleted)
	}
	if sum.Ready != 1 {
		t.Errorf("Expected 1 ready, got %d", sum.Ready)
	}
	if sum.AwaitingExport != 2 {
		t.Errorf("Expected 2 awaiting export, got %d", sum.AwaitingExport)
	}
	want := RetentionDate(daysAgo(150), 3)
	if sum.NextRetentionDate == nil || !sum.NextRetentionDate.Equal(want) {
		t.Errorf("Expected next retention date %s, got %v", want, sum.NextRetentionDate)
	}
}

// rescheduleStore moves an event's retention date into the future just
// before the first TransitionEvents call, as a concurrent postpone would.
type rescheduleStore struct {
	*storage.MemoryStorage
	id   string
	done bool
}

func (s *rescheduleStore) TransitionEvents(ctx context.Context, t audit.Transition) (int64, error) {
	if !s.done {
		s.done = true
		later := daysAgo(-30)
		if _, err := s.MemoryStorage.TransitionEvents(ctx, audit.Transition{
			IDs:              []string{s.id},
			From:             []audit.LifecycleStatus{audit.StatusActive},
			To:               audit.StatusActive,
			SetRetentionDate: &later,
		}); err != nil {
			return 0, err
		}
	}
	return s.MemoryStorage.TransitionEvents(ctx, t)
}

func TestScanner_MarkRechecksRetentionDate(t *testing.T) {
	store := &rescheduleStore{MemoryStorage: storage.NewMemoryStorage(), id: "moved"}
	seed(t, store,
		eventSpec{id: "moved", createdAt: daysAgo(95), retention: daysAgo(2)},
		eventSpec{id: "overdue", createdAt: daysAgo(95), retention: daysAgo(1)},
	)

	s := NewScanner(store, testOptions(testNow)...)
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}

	if result.Marked != 1 {
		t.Errorf("Expected 1 marked, got %d", result.Marked)
	}
	if got := mustGet(t, store, "moved"); got.Status != audit.StatusActive {
		t.Errorf("Expected rescheduled event to stay active, got %s", got.Status)
	}
	if got := mustGet(t, store, "overdue"); got.Status != audit.StatusMarkedForDeletion {
		t.Errorf("Expected overdue event marked, got %s", got.Status)
	}
}
