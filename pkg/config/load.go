package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "CUSTODIAN_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CUSTODIAN_SECTION_FIELD (e.g., CUSTODIAN_STORAGE_PATH).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv builds a configuration from defaults and environment variables
// only. It is used when no configuration file is given.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// Load loads configuration from path with environment overrides, or from
// defaults and the environment when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromEnv()
	}
	return LoadConfigWithEnvOverrides(path)
}

// parseConfig decodes YAML and applies defaults. Boolean defaults are seeded
// before decoding so an explicit false in the file survives.
func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	applyBoolDefaults(&cfg)

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format CUSTODIAN_SECTION_FIELD.
// Unparseable numeric, boolean and duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Storage overrides
	if val := getenv("STORAGE_DRIVER"); val != "" {
		cfg.Storage.Driver = val
	}
	if val := getenv("STORAGE_PATH"); val != "" {
		cfg.Storage.Path = val
	}
	if val := getenv("STORAGE_MAX_OPEN_CONNS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Storage.MaxOpenConns = i
		}
	}
	if val := getenv("STORAGE_WAL_MODE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Storage.WALMode = b
		}
	}
	if val := getenv("STORAGE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.BusyTimeout = d
		}
	}

	// Retention overrides
	if val := getenv("RETENTION_BATCH_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Retention.BatchSize = i
		}
	}
	if val := getenv("RETENTION_ACTOR"); val != "" {
		cfg.Retention.Actor = val
	}
	if val := getenv("RETENTION_DELETE_SCHEDULE"); val != "" {
		cfg.Retention.DeleteSchedule = val
	}
	if val := getenv("RETENTION_SCAN_SCHEDULE"); val != "" {
		cfg.Retention.ScanSchedule = val
	}
	if val := getenv("RETENTION_RUN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Retention.RunTimeout = d
		}
	}

	// Export overrides
	if val := getenv("EXPORT_DIRECTORY"); val != "" {
		cfg.Export.Directory = val
	}
	if val := getenv("EXPORT_DEFAULT_FORMAT"); val != "" {
		cfg.Export.DefaultFormat = strings.ToLower(val)
	}
	if val := getenv("EXPORT_JSON_PRETTY"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Export.JSONPretty = b
		}
	}
	if val := getenv("EXPORT_MAX_EXPORT_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Export.MaxExportSize = i
		}
	}

	// Recorder overrides
	if val := getenv("RECORDER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Recorder.Enabled = b
		}
	}
	if val := getenv("RECORDER_ASYNC_BUFFER"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Recorder.AsyncBuffer = i
		}
	}
	if val := getenv("RECORDER_REDACT_KEYS"); val != "" {
		cfg.Recorder.RedactKeys = splitList(val)
	}

	// Telemetry overrides
	if val := getenv("TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := getenv("TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := getenv("TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := getenv("TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if val := getenv("TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
	if val := getenv("TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := getenv("TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := getenv("TELEMETRY_TRACING_SAMPLER"); val != "" {
		cfg.Telemetry.Tracing.Sampler = val
	}
	if val := getenv("TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func getenv(key string) string {
	return os.Getenv(EnvPrefix + key)
}

// splitList splits a comma separated value, dropping empty items.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
