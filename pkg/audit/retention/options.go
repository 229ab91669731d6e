package retention

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/alerts"
	"mercator-hq/custodian/pkg/audit/recorder"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

// tracerName identifies spans started by this package.
const tracerName = "mercator-hq/custodian/pkg/audit/retention"

// Option configures the services in this package.
type Option func(*deps)

// deps are the collaborators shared by every retention service.
type deps struct {
	base     *slog.Logger // Logger without the component tag
	logger   *slog.Logger
	metrics  *metrics.Collector
	recorder recorder.Logger
	ledger   *alerts.Ledger
	tracer   trace.Tracer
	now      func() time.Time
}

func newDeps(component string, opts []Option) deps {
	d := deps{
		logger:   slog.Default(),
		recorder: recorder.Nop{},
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	d.base = d.logger
	d.logger = d.logger.With("component", component)
	return d
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *deps) { d.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(d *deps) { d.metrics = m }
}

// WithRecorder sets where the engine audits its own actions.
func WithRecorder(r recorder.Logger) Option {
	return func(d *deps) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithLedger sets the alert ledger. Services that raise alerts build one
// over their store when none is given.
func WithLedger(l *alerts.Ledger) Option {
	return func(d *deps) { d.ledger = l }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(d *deps) { d.tracer = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

// alertLedger returns the configured ledger or one over store.
func (d *deps) alertLedger(store audit.AlertStore) *alerts.Ledger {
	if d.ledger == nil {
		d.ledger = alerts.NewLedger(store,
			alerts.WithLogger(d.base),
			alerts.WithMetrics(d.metrics),
			alerts.WithClock(d.now),
		)
	}
	return d.ledger
}
