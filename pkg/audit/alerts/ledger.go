package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

// Ledger records retention alerts and moves them forward through
// pending, acknowledged, exported and deleted.
type Ledger struct {
	store   audit.AlertStore
	metrics *metrics.Collector
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger.With("component", "audit.alerts") }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger backed by store.
func NewLedger(store audit.AlertStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: slog.Default().With("component", "audit.alerts"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Raise records a new pending alert covering count events created between
// rangeStart and rangeEnd. Either bound may be nil.
func (l *Ledger) Raise(ctx context.Context, alertType audit.AlertType, count int, rangeStart, rangeEnd *time.Time) (*audit.RetentionAlert, error) {
	if _, err := audit.ParseAlertType(string(alertType)); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("alert event count must be non-negative, got %d", count)
	}

	alert := &audit.RetentionAlert{
		ID:         uuid.New().String(),
		Type:       alertType,
		EventCount: count,
		RangeStart: utcPtr(rangeStart),
		RangeEnd:   utcPtr(rangeEnd),
		Status:     audit.AlertPending,
		CreatedAt:  l.now().UTC(),
	}

	if err := l.store.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to raise %s alert: %w", alertType, err)
	}

	l.metrics.RecordAlertRaised(string(alertType))
	l.logger.InfoContext(ctx, "retention alert raised",
		"alert_id", alert.ID,
		"type", alertType,
		"event_count", count,
	)

	return alert, nil
}

// Acknowledge moves an alert to acknowledged.
func (l *Ledger) Acknowledge(ctx context.Context, id string) (*audit.RetentionAlert, error) {
	return l.transition(ctx, id, audit.AlertAcknowledged)
}

// MarkExported moves an alert to exported.
func (l *Ledger) MarkExported(ctx context.Context, id string) (*audit.RetentionAlert, error) {
	return l.transition(ctx, id, audit.AlertExported)
}

// MarkDeleted moves an alert to deleted.
func (l *Ledger) MarkDeleted(ctx context.Context, id string) (*audit.RetentionAlert, error) {
	return l.transition(ctx, id, audit.AlertDeleted)
}

// Get returns one alert or audit.ErrNotFound.
func (l *Ledger) Get(ctx context.Context, id string) (*audit.RetentionAlert, error) {
	return l.store.GetAlert(ctx, id)
}

// List returns alerts newest first. Empty alertType or status match all.
func (l *Ledger) List(ctx context.Context, alertType audit.AlertType, status audit.AlertStatus) ([]*audit.RetentionAlert, error) {
	if alertType != "" {
		if _, err := audit.ParseAlertType(string(alertType)); err != nil {
			return nil, err
		}
	}
	if status != "" {
		if _, err := audit.ParseAlertStatus(string(status)); err != nil {
			return nil, err
		}
	}
	return l.store.ListAlerts(ctx, alertType, status)
}

// transition applies a forward-only conditional update. An alert already
// at or past the target status is left unchanged and reported as
// audit.ErrInvalidTransition.
func (l *Ledger) transition(ctx context.Context, id string, to audit.AlertStatus) (*audit.RetentionAlert, error) {
	ok, err := l.store.TransitionAlert(ctx, id, to.Predecessors(), to, l.now().UTC())
	if err != nil {
		return nil, err
	}

	if !ok {
		current, err := l.store.GetAlert(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("alert %s is %s, cannot move to %s: %w", id, current.Status, to, audit.ErrInvalidTransition)
	}

	alert, err := l.store.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	l.metrics.RecordAlertTransition(string(to))
	l.logger.InfoContext(ctx, "retention alert updated",
		"alert_id", id,
		"status", to,
	)

	return alert, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
