// Package metrics provides Prometheus metrics collection for custodian.
//
// # Metrics Categories
//
//   - Deletion Metrics: runs, batches, deleted/purged/postponed events, run duration
//   - Scan Metrics: eligible-now gauge and events marked for deletion
//   - Export Metrics: exports by format and outcome, events written, document size
//   - Alert Metrics: alerts raised, status transitions, receipt checksum verifications
//   - Recorder Metrics: recorder writes and dropped entries
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	collector.RecordDeletionRun(metrics.OutcomeSuccess, 250, 3*time.Second)
//	collector.RecordExport("csv", metrics.OutcomeSuccess, 250, 48213)
//
//	http.Handle("/metrics", collector.Handler())
//
// All metric names are prefixed with the configured namespace and subsystem
// ("custodian_retention_" by default). Label values are drawn from fixed
// sets (formats, outcomes, alert types), so cardinality is bounded.
package metrics
