package metrics

import (
	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RecorderMetrics tracks the asynchronous audit recorder.
//
// Metrics:
//   - custodian_retention_recorder_writes_total: Storage writes by outcome
//   - custodian_retention_recorder_dropped_total: Entries dropped on a full buffer
type RecorderMetrics struct {
	writesTotal  *prometheus.CounterVec
	droppedTotal prometheus.Counter
}

// NewRecorderMetrics creates and registers recorder metrics with the provided registry.
func NewRecorderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RecorderMetrics {
	rm := &RecorderMetrics{
		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "recorder_writes_total",
				Help:      "Total number of audit recorder storage writes",
			},
			[]string{"outcome"},
		),

		droppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "recorder_dropped_total",
				Help:      "Total number of audit entries dropped because the buffer was full",
			},
		),
	}

	registry.MustRegister(rm.writesTotal, rm.droppedTotal)

	return rm
}

// RecordWrite records a storage write.
func (rm *RecorderMetrics) RecordWrite(outcome string) {
	rm.writesTotal.WithLabelValues(outcome).Inc()
}

// RecordDropped records a dropped entry.
func (rm *RecorderMetrics) RecordDropped() {
	rm.droppedTotal.Inc()
}
