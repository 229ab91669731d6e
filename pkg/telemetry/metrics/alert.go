package metrics

import (
	"strconv"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AlertMetrics tracks retention alerts and receipt verification.
//
// Metrics:
//   - custodian_retention_alerts_raised_total: Alerts raised by type
//   - custodian_retention_alert_transitions_total: Alert status changes by target status
//   - custodian_retention_checksum_verifications_total: Receipt verifications by result
type AlertMetrics struct {
	raisedTotal        *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	verificationsTotal *prometheus.CounterVec
}

// NewAlertMetrics creates and registers alert metrics with the provided registry.
func NewAlertMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AlertMetrics {
	am := &AlertMetrics{
		raisedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "alerts_raised_total",
				Help:      "Total number of retention alerts raised",
			},
			[]string{"type"},
		),

		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "alert_transitions_total",
				Help:      "Total number of retention alert status transitions",
			},
			[]string{"status"},
		),

		verificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "checksum_verifications_total",
				Help:      "Total number of deletion receipt checksum verifications",
			},
			[]string{"valid"},
		),
	}

	registry.MustRegister(
		am.raisedTotal,
		am.transitionsTotal,
		am.verificationsTotal,
	)

	return am
}

// RecordRaised records a raised alert.
func (am *AlertMetrics) RecordRaised(alertType string) {
	am.raisedTotal.WithLabelValues(alertType).Inc()
}

// RecordTransition records an alert status change.
func (am *AlertMetrics) RecordTransition(status string) {
	am.transitionsTotal.WithLabelValues(status).Inc()
}

// RecordVerification records a checksum verification result.
func (am *AlertMetrics) RecordVerification(valid bool) {
	am.verificationsTotal.WithLabelValues(strconv.FormatBool(valid)).Inc()
}
