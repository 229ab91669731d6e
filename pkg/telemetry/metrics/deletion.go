package metrics

import (
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DeletionMetrics tracks the retention engine.
//
// Metrics:
//   - custodian_retention_deletion_runs_total: Deletion runs by outcome
//   - custodian_retention_events_deleted_total: Events transitioned to deleted
//   - custodian_retention_deletion_batches_total: Conditional update batches by outcome
//   - custodian_retention_run_duration_seconds: Run duration by operation
//   - custodian_retention_events_purged_total: Events physically removed
//   - custodian_retention_events_postponed_total: Events whose deletion was postponed
//   - custodian_retention_eligible_events: Eligible-now count from the last scan
//   - custodian_retention_events_marked_total: Events marked for deletion by scans
type DeletionMetrics struct {
	runsTotal       *prometheus.CounterVec
	eventsDeleted   prometheus.Counter
	batchesTotal    *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	eventsPurged    prometheus.Counter
	eventsPostponed prometheus.Counter
	eligibleEvents  prometheus.Gauge
	eventsMarked    prometheus.Counter
}

// NewDeletionMetrics creates and registers deletion metrics with the provided registry.
func NewDeletionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DeletionMetrics {
	dm := &DeletionMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "deletion_runs_total",
				Help:      "Total number of deletion runs",
			},
			[]string{"outcome"},
		),

		eventsDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_deleted_total",
				Help:      "Total number of audit events transitioned to deleted",
			},
		),

		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "deletion_batches_total",
				Help:      "Total number of deletion batches",
			},
			[]string{"outcome"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of retention runs in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"operation"},
		),

		eventsPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_purged_total",
				Help:      "Total number of deleted audit events physically removed",
			},
		),

		eventsPostponed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_postponed_total",
				Help:      "Total number of audit events whose deletion was postponed",
			},
		),

		eligibleEvents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "eligible_events",
				Help:      "Audit events eligible for deletion at the last scan",
			},
		),

		eventsMarked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_marked_total",
				Help:      "Total number of audit events marked for deletion",
			},
		),
	}

	registry.MustRegister(
		dm.runsTotal,
		dm.eventsDeleted,
		dm.batchesTotal,
		dm.runDuration,
		dm.eventsPurged,
		dm.eventsPostponed,
		dm.eligibleEvents,
		dm.eventsMarked,
	)

	return dm
}

// RecordRun records a finished deletion run.
func (dm *DeletionMetrics) RecordRun(outcome string, deleted int, duration time.Duration) {
	dm.runsTotal.WithLabelValues(outcome).Inc()
	dm.eventsDeleted.Add(float64(deleted))
	dm.runDuration.WithLabelValues("delete").Observe(duration.Seconds())
}

// RecordBatch records one batch. Deleted events are counted per run by
// RecordRun.
func (dm *DeletionMetrics) RecordBatch(outcome string) {
	dm.batchesTotal.WithLabelValues(outcome).Inc()
}

// RecordPurge records physically removed events.
func (dm *DeletionMetrics) RecordPurge(removed int) {
	dm.eventsPurged.Add(float64(removed))
}

// RecordPostponed records postponed events.
func (dm *DeletionMetrics) RecordPostponed(count int) {
	dm.eventsPostponed.Add(float64(count))
}

// RecordScan records a scan result.
func (dm *DeletionMetrics) RecordScan(eligible, marked int, duration time.Duration) {
	dm.eligibleEvents.Set(float64(eligible))
	dm.eventsMarked.Add(float64(marked))
	dm.runDuration.WithLabelValues("scan").Observe(duration.Seconds())
}
