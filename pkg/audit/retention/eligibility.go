package retention

import (
	"context"
	"sort"
	"time"

	"mercator-hq/custodian/pkg/audit"
)

// EligibleEvent is an active event within the alert threshold.
type EligibleEvent struct {
	Event             *audit.Event
	RetentionDate     time.Time
	DaysUntilDeletion int // Negative when overdue
}

// RetentionDate returns the calendar date months after createdAt, clamped
// to the end of shorter months.
func RetentionDate(createdAt time.Time, months int) time.Time {
	return audit.AddMonths(createdAt, months)
}

// EffectiveRetentionDate returns the stored retention date of e, or the
// policy-derived date when none is stored. A postponed event keeps its
// extended date.
func EffectiveRetentionDate(e *audit.Event, policy audit.RetentionConfig) time.Time {
	if !e.RetentionDate.IsZero() {
		return audit.DateOf(e.RetentionDate)
	}
	return RetentionDate(e.CreatedAt, policy.RetentionMonths)
}

// Evaluate returns the active events whose days until deletion are at most
// thresholdDays, sorted by retention date ascending (ties by ID). It does
// not modify anything.
func Evaluate(policy audit.RetentionConfig, events []*audit.Event, thresholdDays int, today time.Time) []EligibleEvent {
	today = audit.DateOf(today)

	var out []EligibleEvent
	for _, e := range events {
		if e.Status != audit.StatusActive {
			continue
		}
		date := EffectiveRetentionDate(e, policy)
		days := audit.DaysBetween(today, date)
		if days > thresholdDays {
			continue
		}
		out = append(out, EligibleEvent{
			Event:             e,
			RetentionDate:     date,
			DaysUntilDeletion: days,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RetentionDate.Equal(out[j].RetentionDate) {
			return out[i].RetentionDate.Before(out[j].RetentionDate)
		}
		return out[i].Event.ID < out[j].Event.ID
	})

	return out
}

// Evaluator runs Evaluate against the store.
type Evaluator struct {
	store audit.Store
	deps
}

// NewEvaluator creates an evaluator.
func NewEvaluator(store audit.Store, opts ...Option) *Evaluator {
	return &Evaluator{
		store: store,
		deps:  newDeps("audit.retention.eligibility", opts),
	}
}

// Eligible loads the policy and all active events and evaluates them for
// today. It is read-only.
func (ev *Evaluator) Eligible(ctx context.Context, thresholdDays int) ([]EligibleEvent, error) {
	stored, err := ev.store.GetRetentionConfig(ctx)
	if err != nil {
		return nil, err
	}
	policy := ResolvePolicy(stored)

	events, err := ev.store.QueryEvents(ctx, &audit.EventQuery{
		Statuses:  []audit.LifecycleStatus{audit.StatusActive},
		SortBy:    "retention_date",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, err
	}

	eligible := Evaluate(policy, events, thresholdDays, ev.now())

	ev.logger.DebugContext(ctx, "eligibility evaluated",
		"active_events", len(events),
		"eligible", len(eligible),
		"threshold_days", thresholdDays,
	)

	return eligible, nil
}

// createdBounds returns the CreatedAt bounds of eligible events.
func createdBounds(eligible []EligibleEvent) (start, end *time.Time) {
	events := make([]*audit.Event, len(eligible))
	for i, e := range eligible {
		events[i] = e.Event
	}
	s, e, ok := audit.CreatedRange(events)
	if !ok {
		return nil, nil
	}
	return &s, &e
}
