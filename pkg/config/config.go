package config

import "time"

// Config is the root configuration structure for custodian.
// It contains all configuration sections for audit storage, the retention
// engine, exports, the audit recorder and telemetry.
type Config struct {
	// Storage selects and configures the audit store backend.
	Storage StorageConfig `yaml:"storage"`

	// Retention contains configuration for the deletion engine and the
	// scheduled retention jobs. The retention policy itself (months, alert
	// days, auto-delete) is data, stored in the audit store.
	Retention RetentionConfig `yaml:"retention"`

	// Export contains configuration for export file generation.
	Export ExportConfig `yaml:"export"`

	// Recorder contains configuration for the fire-and-forget audit recorder.
	Recorder RecorderConfig `yaml:"recorder"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig contains audit store configuration.
type StorageConfig struct {
	// Driver selects the backend.
	// Options: "sqlite3" (cgo SQLite), "sqlite" (pure Go SQLite), "memory"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the file path for the SQLite database.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains retention engine configuration.
type RetentionConfig struct {
	// BatchSize is the number of events transitioned per conditional update.
	// Default: 100
	BatchSize int `yaml:"batch_size"`

	// Actor is recorded as the deleting user for scheduled runs.
	// Default: "system"
	Actor string `yaml:"actor"`

	// DeleteSchedule is a cron expression for automatic deletion runs.
	// Runs only do work when the stored policy has auto-delete enabled.
	// Default: "0 3 * * *" (daily at 3 AM)
	DeleteSchedule string `yaml:"delete_schedule"`

	// ScanSchedule is a cron expression for the retention alert scan.
	// Default: "0 * * * *" (hourly)
	ScanSchedule string `yaml:"scan_schedule"`

	// RunTimeout bounds a single scheduled run.
	// Default: 10m
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// ExportConfig contains export configuration.
type ExportConfig struct {
	// Directory is where export files are written.
	// Default: "data/exports"
	Directory string `yaml:"directory"`

	// DefaultFormat is used when no format is requested.
	// Options: "json", "csv", "xlsx"
	// Default: "csv"
	DefaultFormat string `yaml:"default_format"`

	// JSONPretty enables pretty-printing for JSON exports.
	// Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVIncludeHeader includes a header row in CSV exports.
	// Default: true
	CSVIncludeHeader bool `yaml:"csv_include_header"`

	// MaxExportSize is the maximum number of events per export.
	// Default: 1000000 (1 million)
	MaxExportSize int `yaml:"max_export_size"`
}

// RecorderConfig contains audit recorder configuration.
type RecorderConfig struct {
	// Enabled enables recording of the engine's own actions.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for writing one entry to storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxFieldLength is the maximum length for the description before truncation.
	// Default: 500
	MaxFieldLength int `yaml:"max_field_length"`

	// RedactKeys lists top-level snapshot fields whose values are masked
	// before the entry is stored.
	// Default: ["password", "secret", "token", "api_key"]
	RedactKeys []string `yaml:"redact_keys"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains the health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactKeys lists attribute keys whose values are replaced in log output.
	// Default: ["password", "token", "api_key", "secret"]
	RedactKeys []string `yaml:"redact_keys"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is where the run command serves the metrics endpoint.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "custodian"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "retention"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for run durations (seconds).
	// Default: [0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled turns on span export. Spans are no-ops otherwise.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "custodian"
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export request.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Sampler selects the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is used by the "ratio" sampler (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`
}

// HealthConfig contains health endpoint configuration. The endpoints share
// the metrics listener.
type HealthConfig struct {
	// Enabled mounts /health, /ready and /version.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// CheckTimeout bounds each readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
