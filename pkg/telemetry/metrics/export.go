package metrics

import (
	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ExportMetrics tracks export generation.
//
// Metrics:
//   - custodian_retention_exports_total: Exports by format and outcome
//   - custodian_retention_events_exported_total: Events written by format
//   - custodian_retention_export_size_bytes: Document size by format
type ExportMetrics struct {
	exportsTotal   *prometheus.CounterVec
	eventsExported *prometheus.CounterVec
	exportSize     *prometheus.HistogramVec
}

// NewExportMetrics creates and registers export metrics with the provided registry.
func NewExportMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExportMetrics {
	em := &ExportMetrics{
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exports_total",
				Help:      "Total number of exports",
			},
			[]string{"format", "outcome"},
		),

		eventsExported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_exported_total",
				Help:      "Total number of audit events written to exports",
			},
			[]string{"format"},
		),

		exportSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "export_size_bytes",
				Help:      "Size of generated export documents in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB to 256MiB
			},
			[]string{"format"},
		),
	}

	registry.MustRegister(
		em.exportsTotal,
		em.eventsExported,
		em.exportSize,
	)

	return em
}

// RecordExport records an export attempt.
func (em *ExportMetrics) RecordExport(format, outcome string, events, bytes int) {
	em.exportsTotal.WithLabelValues(format, outcome).Inc()
	if outcome != OutcomeSuccess {
		return
	}
	em.eventsExported.WithLabelValues(format).Add(float64(events))
	em.exportSize.WithLabelValues(format).Observe(float64(bytes))
}
