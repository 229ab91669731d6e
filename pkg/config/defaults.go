package config

import "time"

// Default values for configuration fields.
const (
	// Storage defaults
	DefaultStorageDriver       = "sqlite"
	DefaultStoragePath         = "data/audit.db"
	DefaultStorageMaxOpenConns = 10
	DefaultStorageMaxIdleConns = 5
	DefaultStorageWALMode      = true
	DefaultStorageBusyTimeout  = 5 * time.Second

	// Retention defaults
	DefaultRetentionBatchSize      = 100
	DefaultRetentionActor          = "system"
	DefaultRetentionDeleteSchedule = "0 3 * * *"
	DefaultRetentionScanSchedule   = "0 * * * *"
	DefaultRetentionRunTimeout     = 10 * time.Minute

	// Export defaults
	DefaultExportDirectory     = "data/exports"
	DefaultExportFormat        = "csv"
	DefaultExportJSONPretty    = true
	DefaultExportCSVHeader     = true
	DefaultExportMaxExportSize = 1000000

	// Recorder defaults
	DefaultRecorderEnabled        = true
	DefaultRecorderAsyncBuffer    = 1000
	DefaultRecorderWriteTimeout   = 5 * time.Second
	DefaultRecorderMaxFieldLength = 500

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultPrometheusPath       = "/metrics"
	DefaultMetricsNamespace     = "custodian"
	DefaultMetricsSubsystem     = "retention"
	DefaultTracingServiceName   = "custodian"
	DefaultTracingEndpoint      = "localhost:4317"
	DefaultTracingTimeout       = 10 * time.Second
	DefaultTracingSampler       = "always"
	DefaultTracingSampleRatio   = 1.0
	DefaultHealthEnabled        = true
	DefaultHealthCheckTimeout   = 5 * time.Second
)

// DefaultRedactKeys are masked in recorded snapshots when none are configured.
var DefaultRedactKeys = []string{"password", "secret", "token", "api_key"}

// DefaultLogRedactKeys are masked in log output when none are configured.
var DefaultLogRedactKeys = []string{"password", "token", "api_key", "secret"}

// DefaultDurationBuckets are the run duration histogram buckets in seconds.
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120}

// Default returns a configuration with every default applied and no file
// or environment input.
func Default() *Config {
	cfg := &Config{}
	applyBoolDefaults(cfg)
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
//
// Boolean fields default to true in several places; a zero-valued bool
// cannot be told apart from an explicit false after decoding, so those are
// seeded before the YAML is decoded (see LoadConfig) rather than here.
func ApplyDefaults(cfg *Config) {
	// Storage defaults
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultStorageDriver
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.MaxOpenConns == 0 {
		cfg.Storage.MaxOpenConns = DefaultStorageMaxOpenConns
	}
	if cfg.Storage.MaxIdleConns == 0 {
		cfg.Storage.MaxIdleConns = DefaultStorageMaxIdleConns
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultStorageBusyTimeout
	}

	// Retention defaults
	if cfg.Retention.BatchSize == 0 {
		cfg.Retention.BatchSize = DefaultRetentionBatchSize
	}
	if cfg.Retention.Actor == "" {
		cfg.Retention.Actor = DefaultRetentionActor
	}
	if cfg.Retention.DeleteSchedule == "" {
		cfg.Retention.DeleteSchedule = DefaultRetentionDeleteSchedule
	}
	if cfg.Retention.ScanSchedule == "" {
		cfg.Retention.ScanSchedule = DefaultRetentionScanSchedule
	}
	if cfg.Retention.RunTimeout == 0 {
		cfg.Retention.RunTimeout = DefaultRetentionRunTimeout
	}

	// Export defaults
	if cfg.Export.Directory == "" {
		cfg.Export.Directory = DefaultExportDirectory
	}
	if cfg.Export.DefaultFormat == "" {
		cfg.Export.DefaultFormat = DefaultExportFormat
	}
	if cfg.Export.MaxExportSize == 0 {
		cfg.Export.MaxExportSize = DefaultExportMaxExportSize
	}

	// Recorder defaults
	if cfg.Recorder.AsyncBuffer == 0 {
		cfg.Recorder.AsyncBuffer = DefaultRecorderAsyncBuffer
	}
	if cfg.Recorder.WriteTimeout == 0 {
		cfg.Recorder.WriteTimeout = DefaultRecorderWriteTimeout
	}
	if cfg.Recorder.MaxFieldLength == 0 {
		cfg.Recorder.MaxFieldLength = DefaultRecorderMaxFieldLength
	}
	if cfg.Recorder.RedactKeys == nil {
		cfg.Recorder.RedactKeys = append([]string(nil), DefaultRedactKeys...)
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.RedactKeys == nil {
		cfg.Telemetry.Logging.RedactKeys = append([]string(nil), DefaultLogRedactKeys...)
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
		if cfg.Telemetry.Tracing.SampleRatio == 0 {
			cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
		}
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

// applyBoolDefaults seeds boolean fields whose default is true.
func applyBoolDefaults(cfg *Config) {
	cfg.Storage.WALMode = DefaultStorageWALMode
	cfg.Export.JSONPretty = DefaultExportJSONPretty
	cfg.Export.CSVIncludeHeader = DefaultExportCSVHeader
	cfg.Recorder.Enabled = DefaultRecorderEnabled
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
}
