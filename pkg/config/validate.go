package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "storage.path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateExport(&cfg.Export)...)
	errs = append(errs, validateRecorder(&cfg.Recorder)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	validDrivers := map[string]bool{"sqlite3": true, "sqlite": true, "memory": true}
	if !validDrivers[cfg.Driver] {
		errs = append(errs, FieldError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("invalid driver %q: must be 'sqlite3', 'sqlite', or 'memory'", cfg.Driver),
		})
	}

	if cfg.Driver != "memory" {
		if cfg.Path == "" {
			errs = append(errs, FieldError{
				Field:   "storage.path",
				Message: "database path is required for SQLite storage",
			})
		}
		if cfg.MaxOpenConns < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.max_open_conns",
				Message: "max open connections must be non-negative",
			})
		}
		if cfg.MaxIdleConns < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.max_idle_conns",
				Message: "max idle connections must be non-negative",
			})
		}
		if cfg.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.busy_timeout",
				Message: "busy timeout must be non-negative",
			})
		}
	}

	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if cfg.BatchSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "retention.batch_size",
			Message: "batch size must be positive",
		})
	}

	if strings.TrimSpace(cfg.Actor) == "" {
		errs = append(errs, FieldError{
			Field:   "retention.actor",
			Message: "actor is required",
		})
	}

	if _, err := cron.ParseStandard(cfg.DeleteSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "retention.delete_schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.DeleteSchedule, err),
		})
	}
	if _, err := cron.ParseStandard(cfg.ScanSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "retention.scan_schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.ScanSchedule, err),
		})
	}

	if cfg.RunTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "retention.run_timeout",
			Message: "run timeout must be non-negative",
		})
	}

	return errs
}

func validateExport(cfg *ExportConfig) []FieldError {
	var errs []FieldError

	if cfg.Directory == "" {
		errs = append(errs, FieldError{
			Field:   "export.directory",
			Message: "export directory is required",
		})
	}

	validFormats := map[string]bool{"json": true, "csv": true, "xlsx": true}
	if !validFormats[cfg.DefaultFormat] {
		errs = append(errs, FieldError{
			Field:   "export.default_format",
			Message: fmt.Sprintf("invalid format %q: must be 'json', 'csv', or 'xlsx'", cfg.DefaultFormat),
		})
	}

	if cfg.MaxExportSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "export.max_export_size",
			Message: "max export size must be positive",
		})
	}

	return errs
}

func validateRecorder(cfg *RecorderConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	if cfg.AsyncBuffer <= 0 {
		errs = append(errs, FieldError{
			Field:   "recorder.async_buffer",
			Message: "async buffer must be positive",
		})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "recorder.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.MaxFieldLength <= 0 {
		errs = append(errs, FieldError{
			Field:   "recorder.max_field_length",
			Message: "max field length must be positive",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	errs = append(errs, validateTracing(&cfg.Tracing)...)

	if !cfg.Metrics.Enabled {
		return errs
	}

	if cfg.Metrics.Path == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path is required when metrics are enabled",
		})
	} else if cfg.Metrics.Path[0] != '/' {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if _, _, err := net.SplitHostPort(cfg.Metrics.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.Metrics.ListenAddress, err),
		})
	}

	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	return errs
}

func validateTracing(cfg *TracingConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs []FieldError

	if cfg.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}

	switch cfg.Sampler {
	case "always", "never":
	case "ratio":
		if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: fmt.Sprintf("sample ratio must be between 0.0 and 1.0, got %g", cfg.SampleRatio),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Sampler),
		})
	}

	return errs
}
