package retention

import (
	"context"
	"fmt"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/recorder"
)

// Postponer moves events marked for deletion back to active with a later
// retention date.
type Postponer struct {
	store audit.EventStore
	deps
}

// NewPostponer creates a postponer.
func NewPostponer(store audit.EventStore, opts ...Option) *Postponer {
	return &Postponer{
		store: store,
		deps:  newDeps("audit.retention.postpone", opts),
	}
}

// Postpone sets the retention date of the given marked_for_deletion events
// to today plus days and returns them to active. Events in any other status
// are skipped. It returns the number of events changed.
func (p *Postponer) Postpone(ctx context.Context, ids []string, days int, actor string) (int64, error) {
	if days <= 0 {
		return 0, audit.NewRetentionError("postpone", fmt.Errorf("days must be positive, got %d", days))
	}
	if len(ids) == 0 {
		return 0, audit.ErrNoEligibleEvents
	}
	if actor == "" {
		actor = audit.SystemActor
	}

	newDate := audit.DateOf(p.now()).AddDate(0, 0, days)
	n, err := p.store.TransitionEvents(ctx, audit.Transition{
		IDs:              ids,
		From:             []audit.LifecycleStatus{audit.StatusMarkedForDeletion},
		To:               audit.StatusActive,
		SetRetentionDate: &newDate,
	})
	if err != nil {
		return 0, err
	}

	p.metrics.RecordPostponed(int(n))
	p.logger.InfoContext(ctx, "postponed event deletion",
		"actor", actor,
		"requested", len(ids),
		"postponed", n,
		"retention_date", newDate.Format(audit.DateLayout),
	)

	if n == 0 {
		return 0, nil
	}

	p.recorder.Log(ctx, recorder.Entry{
		Category:    "retention",
		Description: fmt.Sprintf("Postponed deletion of %d audit events by %d days", n, days),
		UserID:      actor,
		Module:      "retention",
		Action:      "postpone",
		After: map[string]any{
			"ids":            ids,
			"postponed":      n,
			"retention_date": newDate.Format(audit.DateLayout),
		},
	})

	return n, nil
}
