package metrics

import (
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
	OutcomeEmpty   = "empty"
)

// Collector owns every Prometheus metric custodian exposes and provides one
// entry point for recording them. A nil *Collector or a disabled
// configuration turns every method into a no-op, so components can take a
// collector unconditionally.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	deletionMetrics *DeletionMetrics
	exportMetrics   *ExportMetrics
	alertMetrics    *AlertMetrics
	recorderMetrics *RecorderMetrics
}

// NewCollector creates a metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a new registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "custodian",
//		Subsystem: "retention",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		deletionMetrics: NewDeletionMetrics(cfg, registry),
		exportMetrics:   NewExportMetrics(cfg, registry),
		alertMetrics:    NewAlertMetrics(cfg, registry),
		recorderMetrics: NewRecorderMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordDeletionRun records a completed deletion run.
//
// Parameters:
//   - outcome: OutcomeSuccess, OutcomePartial, OutcomeFailure or OutcomeEmpty
//   - deleted: number of events transitioned to deleted
//   - duration: wall time of the run
func (c *Collector) RecordDeletionRun(outcome string, deleted int, duration time.Duration) {
	if !c.enabled() {
		return
	}

	c.deletionMetrics.RecordRun(outcome, deleted, duration)
}

// RecordDeletionBatch records one conditional update batch.
func (c *Collector) RecordDeletionBatch(outcome string) {
	if !c.enabled() {
		return
	}

	c.deletionMetrics.RecordBatch(outcome)
}

// RecordPurge records events physically removed by a purge.
func (c *Collector) RecordPurge(removed int) {
	if !c.enabled() {
		return
	}

	c.deletionMetrics.RecordPurge(removed)
}

// RecordPostponed records events whose retention date was pushed back.
func (c *Collector) RecordPostponed(count int) {
	if !c.enabled() {
		return
	}

	c.deletionMetrics.RecordPostponed(count)
}

// RecordScan records a retention scan and the eligible-now count it found.
func (c *Collector) RecordScan(eligible, marked int, duration time.Duration) {
	if !c.enabled() {
		return
	}

	c.deletionMetrics.RecordScan(eligible, marked, duration)
}

// RecordExport records an export attempt.
//
// Parameters:
//   - format: "json", "csv" or "xlsx"
//   - outcome: OutcomeSuccess or OutcomeFailure
//   - events: number of events written
//   - bytes: size of the produced document
func (c *Collector) RecordExport(format, outcome string, events, bytes int) {
	if !c.enabled() {
		return
	}

	c.exportMetrics.RecordExport(format, outcome, events, bytes)
}

// RecordAlertRaised records a new retention alert.
func (c *Collector) RecordAlertRaised(alertType string) {
	if !c.enabled() {
		return
	}

	c.alertMetrics.RecordRaised(alertType)
}

// RecordAlertTransition records an alert moving to status.
func (c *Collector) RecordAlertTransition(status string) {
	if !c.enabled() {
		return
	}

	c.alertMetrics.RecordTransition(status)
}

// RecordChecksumVerification records a receipt checksum verification.
func (c *Collector) RecordChecksumVerification(valid bool) {
	if !c.enabled() {
		return
	}

	c.alertMetrics.RecordVerification(valid)
}

// RecordRecorderWrite records an audit recorder storage write.
func (c *Collector) RecordRecorderWrite(outcome string) {
	if !c.enabled() {
		return
	}

	c.recorderMetrics.RecordWrite(outcome)
}

// RecordRecorderDropped records an entry dropped because the buffer was full.
func (c *Collector) RecordRecorderDropped() {
	if !c.enabled() {
		return
	}

	c.recorderMetrics.RecordDropped()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
