package retention

import (
	"context"
	"sync"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/storage"
	"mercator-hq/custodian/pkg/telemetry/logging"
)

// testNow is the fixed clock used by most tests.
var testNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func testOptions(now time.Time, extra ...Option) []Option {
	return append([]Option{
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return now }),
	}, extra...)
}

func daysAgo(days int) time.Time {
	return testNow.AddDate(0, 0, -days)
}

type eventSpec struct {
	id        string
	createdAt time.Time
	retention time.Time // Zero derives from the default policy
	status    audit.LifecycleStatus
	exported  bool
}

func seed(t *testing.T, store audit.EventStore, specs ...eventSpec) {
	t.Helper()
	for _, s := range specs {
		status := s.status
		if status == "" {
			status = audit.StatusActive
		}
		retention := s.retention
		if retention.IsZero() {
			retention = RetentionDate(s.createdAt, audit.DefaultRetentionMonths)
		}
		e := &audit.Event{
			ID:            s.id,
			CreatedAt:     s.createdAt,
			Category:      "auth",
			Description:   "login",
			UserID:        "alice",
			Module:        "auth",
			Action:        "create",
			Status:        status,
			RetentionDate: audit.DateOf(retention),
		}
		if s.exported {
			at := s.createdAt.Add(time.Hour)
			e.ExportedAt = &at
		}
		if err := store.CreateEvent(context.Background(), e); err != nil {
			t.Fatalf("CreateEvent(%s) failed: %v", s.id, err)
		}
	}
}

func mustGet(t *testing.T, store audit.EventStore, id string) *audit.Event {
	t.Helper()
	e, err := store.GetEvent(context.Background(), id)
	if err != nil {
		t.Fatalf("GetEvent(%s) failed: %v", id, err)
	}
	return e
}

// flakyStore fails TransitionEvents from call failFrom onwards (1-based).
type flakyStore struct {
	*storage.MemoryStorage
	failFrom int
	err      error

	mu    sync.Mutex
	calls int
}

func (s *flakyStore) TransitionEvents(ctx context.Context, t audit.Transition) (int64, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if call >= s.failFrom {
		return 0, s.err
	}
	return s.MemoryStorage.TransitionEvents(ctx, t)
}
