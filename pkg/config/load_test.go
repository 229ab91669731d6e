package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "custodian.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfig(t, `
storage:
  driver: "sqlite3"
  path: "/var/lib/custodian/audit.db"
  busy_timeout: "10s"

retention:
  batch_size: 250
  actor: "retention-bot"
  delete_schedule: "30 2 * * *"

export:
  directory: "/var/lib/custodian/exports"
  default_format: "xlsx"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.Driver != "sqlite3" {
		t.Errorf("expected driver %q, got %q", "sqlite3", cfg.Storage.Driver)
	}
	if cfg.Storage.BusyTimeout != 10*time.Second {
		t.Errorf("expected busy timeout %v, got %v", 10*time.Second, cfg.Storage.BusyTimeout)
	}
	if cfg.Retention.BatchSize != 250 {
		t.Errorf("expected batch size 250, got %d", cfg.Retention.BatchSize)
	}
	if cfg.Retention.Actor != "retention-bot" {
		t.Errorf("expected actor %q, got %q", "retention-bot", cfg.Retention.Actor)
	}
	if cfg.Retention.ScanSchedule != DefaultRetentionScanSchedule {
		t.Errorf("expected default scan schedule, got %q", cfg.Retention.ScanSchedule)
	}
	if cfg.Export.DefaultFormat != "xlsx" {
		t.Errorf("expected format %q, got %q", "xlsx", cfg.Export.DefaultFormat)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	def := Default()
	if cfg.Storage.Path != def.Storage.Path {
		t.Errorf("expected path %q, got %q", def.Storage.Path, cfg.Storage.Path)
	}
	if !cfg.Storage.WALMode {
		t.Error("expected WAL mode enabled by default")
	}
	if !cfg.Recorder.Enabled {
		t.Error("expected recorder enabled by default")
	}
	if cfg.Telemetry.Metrics.Namespace != DefaultMetricsNamespace {
		t.Errorf("expected namespace %q, got %q", DefaultMetricsNamespace, cfg.Telemetry.Metrics.Namespace)
	}
}

func TestLoadConfig_ExplicitFalseSurvives(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
storage:
  wal_mode: false
recorder:
  enabled: false
telemetry:
  metrics:
    enabled: false
`))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.WALMode {
		t.Error("expected WAL mode disabled")
	}
	if cfg.Recorder.Enabled {
		t.Error("expected recorder disabled")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "storage: [unclosed"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
retention:
  batch_size: -1
`))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Errors[0].Field != "retention.batch_size" {
		t.Errorf("expected retention.batch_size error, got %s", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
storage:
  path: "from-file.db"
retention:
  batch_size: 50
`)

	t.Setenv("CUSTODIAN_STORAGE_PATH", "from-env.db")
	t.Setenv("CUSTODIAN_RETENTION_BATCH_SIZE", "75")
	t.Setenv("CUSTODIAN_STORAGE_BUSY_TIMEOUT", "2s")
	t.Setenv("CUSTODIAN_RECORDER_REDACT_KEYS", "password, ssn ,")
	t.Setenv("CUSTODIAN_EXPORT_DEFAULT_FORMAT", "JSON")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.Path != "from-env.db" {
		t.Errorf("expected env path, got %q", cfg.Storage.Path)
	}
	if cfg.Retention.BatchSize != 75 {
		t.Errorf("expected batch size 75, got %d", cfg.Retention.BatchSize)
	}
	if cfg.Storage.BusyTimeout != 2*time.Second {
		t.Errorf("expected busy timeout 2s, got %v", cfg.Storage.BusyTimeout)
	}
	if len(cfg.Recorder.RedactKeys) != 2 || cfg.Recorder.RedactKeys[1] != "ssn" {
		t.Errorf("unexpected redact keys %v", cfg.Recorder.RedactKeys)
	}
	if cfg.Export.DefaultFormat != "json" {
		t.Errorf("expected format json, got %q", cfg.Export.DefaultFormat)
	}
}

func TestLoadConfigWithEnvOverrides_IgnoresUnparseable(t *testing.T) {
	configPath := writeConfig(t, "")
	t.Setenv("CUSTODIAN_RETENTION_BATCH_SIZE", "lots")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Retention.BatchSize != DefaultRetentionBatchSize {
		t.Errorf("expected default batch size, got %d", cfg.Retention.BatchSize)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidAfterOverride(t *testing.T) {
	configPath := writeConfig(t, "")
	t.Setenv("CUSTODIAN_STORAGE_DRIVER", "postgres")

	_, err := LoadConfigWithEnvOverrides(configPath)
	if err == nil {
		t.Fatal("expected validation error after override")
	}
	if !strings.Contains(err.Error(), "after environment overrides") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestLoad_EmptyPathUsesEnvironment(t *testing.T) {
	t.Setenv("CUSTODIAN_STORAGE_DRIVER", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Retention.BatchSize != DefaultRetentionBatchSize {
		t.Errorf("expected default batch size, got %d", cfg.Retention.BatchSize)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Recorder.RedactKeys = append(cfg.Recorder.RedactKeys, "ssn")
	ApplyDefaults(cfg)

	if len(cfg.Recorder.RedactKeys) != len(DefaultRedactKeys)+1 {
		t.Errorf("expected configured redact keys kept, got %v", cfg.Recorder.RedactKeys)
	}
	if cfg.Retention.DeleteSchedule != DefaultRetentionDeleteSchedule {
		t.Errorf("expected default delete schedule, got %q", cfg.Retention.DeleteSchedule)
	}
}
