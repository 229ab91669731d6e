package retention

import (
	"context"
	"time"

	"mercator-hq/custodian/pkg/audit"
)

// ScanResult is the outcome of one scan.
type ScanResult struct {
	Eligible []EligibleEvent
	Marked   int64                 // Overdue events moved to marked_for_deletion
	Alert    *audit.RetentionAlert // Warning raised by this scan, if any
}

// Scanner finds events approaching their retention date, marks the overdue
// ones and raises a retention warning.
type Scanner struct {
	store     audit.Store
	evaluator *Evaluator
	deps
}

// NewScanner creates a scanner.
func NewScanner(store audit.Store, opts ...Option) *Scanner {
	return &Scanner{
		store:     store,
		evaluator: NewEvaluator(store, opts...),
		deps:      newDeps("audit.retention.scan", opts),
	}
}

// Scan evaluates active events against the policy alert window. Events at
// or past their retention date are marked for deletion. A retention_warning
// alert is raised for the eligible set unless one is already pending.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	start := time.Now()

	stored, err := s.store.GetRetentionConfig(ctx)
	if err != nil {
		return nil, err
	}
	policy := ResolvePolicy(stored)

	eligible, err := s.evaluator.Eligible(ctx, policy.AlertDays)
	if err != nil {
		return nil, err
	}
	result := &ScanResult{Eligible: eligible}

	var overdue []string
	for _, e := range eligible {
		if e.DaysUntilDeletion <= 0 {
			overdue = append(overdue, e.Event.ID)
		}
	}
	if len(overdue) > 0 {
		// The date guard is re-checked at write time so an event postponed
		// since the read stays active.
		today := audit.DateOf(s.now())
		marked, err := s.store.TransitionEvents(ctx, audit.Transition{
			IDs:            overdue,
			From:           []audit.LifecycleStatus{audit.StatusActive},
			To:             audit.StatusMarkedForDeletion,
			RetentionDueBy: &today,
		})
		if err != nil {
			return nil, err
		}
		result.Marked = marked
	}

	if len(eligible) > 0 {
		alert, err := s.raiseWarning(ctx, eligible)
		if err != nil {
			return nil, err
		}
		result.Alert = alert
	}

	s.metrics.RecordScan(len(eligible), int(result.Marked), time.Since(start))
	s.logger.InfoContext(ctx, "retention scan complete",
		"eligible", len(eligible),
		"marked", result.Marked,
		"alert_raised", result.Alert != nil,
		"alert_days", policy.AlertDays,
	)

	return result, nil
}

func (s *Scanner) raiseWarning(ctx context.Context, eligible []EligibleEvent) (*audit.RetentionAlert, error) {
	ledger := s.alertLedger(s.store)

	pending, err := ledger.List(ctx, audit.AlertRetentionWarning, audit.AlertPending)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		s.logger.DebugContext(ctx, "retention warning already pending", "alert_id", pending[0].ID)
		return nil, nil
	}

	rangeStart, rangeEnd := createdBounds(eligible)
	return ledger.Raise(ctx, audit.AlertRetentionWarning, len(eligible), rangeStart, rangeEnd)
}

// Summary is a point-in-time view of retention state.
type Summary struct {
	Policy          audit.RetentionConfig
	PolicyPersisted bool

	Active            int64
	MarkedForDeletion int64
	Deleted           int64

	// Ready counts events a deletion run started today would delete.
	Ready int64
	// AwaitingExport counts events past their retention date that are held
	// back only because they were never exported.
	AwaitingExport int64

	NextRetentionDate *time.Time
	PendingAlerts     int
}

// Summarize collects counts for status reporting.
func Summarize(ctx context.Context, store audit.Store, today time.Time) (*Summary, error) {
	stored, err := store.GetRetentionConfig(ctx)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		Policy:          ResolvePolicy(stored),
		PolicyPersisted: stored != nil,
	}

	counts := []struct {
		status audit.LifecycleStatus
		dst    *int64
	}{
		{audit.StatusActive, &sum.Active},
		{audit.StatusMarkedForDeletion, &sum.MarkedForDeletion},
		{audit.StatusDeleted, &sum.Deleted},
	}
	for _, c := range counts {
		n, err := store.CountEvents(ctx, &audit.EventQuery{Statuses: []audit.LifecycleStatus{c.status}})
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}

	due := audit.DateOf(today)
	exported, unexported := true, false
	if sum.Ready, err = store.CountEvents(ctx, &audit.EventQuery{
		Statuses:       deletableStatuses,
		Exported:       &exported,
		RetentionDueBy: &due,
	}); err != nil {
		return nil, err
	}
	if sum.AwaitingExport, err = store.CountEvents(ctx, &audit.EventQuery{
		Statuses:       deletableStatuses,
		Exported:       &unexported,
		RetentionDueBy: &due,
	}); err != nil {
		return nil, err
	}

	next, err := store.QueryEvents(ctx, &audit.EventQuery{
		Statuses:  deletableStatuses,
		SortBy:    "retention_date",
		SortOrder: "asc",
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(next) > 0 && !next[0].RetentionDate.IsZero() {
		d := next[0].RetentionDate
		sum.NextRetentionDate = &d
	}

	pending, err := store.ListAlerts(ctx, "", audit.AlertPending)
	if err != nil {
		return nil, err
	}
	sum.PendingAlerts = len(pending)

	return sum, nil
}
