// Package config provides configuration management for custodian.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. The retention policy
// itself (retention months, alert days, auto-delete) is not configuration:
// it lives in the audit store and is edited through the retention package.
//
// # Configuration Loading
//
// Configuration can be loaded in three ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("custodian.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("custodian.yaml")
//
//  3. From defaults and the environment, with no file:
//     cfg, err := config.LoadFromEnv()
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CUSTODIAN_SECTION_FIELD.
// For example:
//
//   - CUSTODIAN_STORAGE_PATH overrides storage.path
//   - CUSTODIAN_RETENTION_BATCH_SIZE overrides retention.batch_size
//   - CUSTODIAN_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watcher observes the configuration file with fsnotify and calls
// ReloadConfig after a short debounce. Listeners registered with OnReload
// receive each successfully loaded configuration; a file that fails to
// load or validate leaves the current configuration in place.
//
// # Example Configuration
//
//	storage:
//	  driver: "sqlite"
//	  path: "data/audit.db"
//
//	retention:
//	  batch_size: 100
//	  delete_schedule: "0 3 * * *"
//
//	export:
//	  directory: "data/exports"
//	  default_format: "csv"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
