package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/alerts"
	"mercator-hq/custodian/pkg/audit/export"
	"mercator-hq/custodian/pkg/audit/recorder"
	"mercator-hq/custodian/pkg/audit/retention"
	"mercator-hq/custodian/pkg/audit/storage"
	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/telemetry/logging"
	"mercator-hq/custodian/pkg/telemetry/metrics"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// app holds the components every command shares.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    audit.Store
	metrics  *metrics.Collector
	recorder *recorder.Recorder
	ledger   *alerts.Ledger
	tracing  *tracing.Provider
}

// newApp loads configuration and opens the store.
func newApp() (*app, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(logging.FromConfig(&cfg.Telemetry.Logging, os.Stderr))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}

	provider, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	store, err := openStore(&cfg.Storage)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	rec := recorder.NewRecorder(store, &recorder.Config{
		Enabled:        cfg.Recorder.Enabled,
		AsyncBuffer:    cfg.Recorder.AsyncBuffer,
		WriteTimeout:   cfg.Recorder.WriteTimeout,
		MaxFieldLength: cfg.Recorder.MaxFieldLength,
		RedactKeys:     cfg.Recorder.RedactKeys,
	},
		recorder.WithLogger(logger),
		recorder.WithMetrics(collector),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		metrics:  collector,
		recorder: rec,
		ledger: alerts.NewLedger(store,
			alerts.WithLogger(logger),
			alerts.WithMetrics(collector),
		),
		tracing: provider,
	}, nil
}

func openStore(cfg *config.StorageConfig) (audit.Store, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case storage.DriverCGO, storage.DriverPureGo:
		store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.Path,
			Driver:       cfg.Driver,
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
			WALMode:      cfg.WALMode,
			BusyTimeout:  cfg.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		return store, nil
	default:
		return nil, cli.NewConfigError("storage.driver", fmt.Sprintf("unsupported driver %q", cfg.Driver))
	}
}

// retentionOptions are the options shared by the retention services.
func (a *app) retentionOptions() []retention.Option {
	return []retention.Option{
		retention.WithLogger(a.logger),
		retention.WithMetrics(a.metrics),
		retention.WithRecorder(a.recorder),
		retention.WithLedger(a.ledger),
	}
}

func (a *app) exportService() *export.Service {
	return export.NewService(a.store, &export.Config{
		Directory:        a.cfg.Export.Directory,
		DefaultFormat:    a.cfg.Export.DefaultFormat,
		JSONPretty:       a.cfg.Export.JSONPretty,
		CSVIncludeHeader: a.cfg.Export.CSVIncludeHeader,
		MaxEvents:        a.cfg.Export.MaxExportSize,
	},
		export.WithLogger(a.logger),
		export.WithMetrics(a.metrics),
		export.WithRecorder(a.recorder),
		export.WithLedger(a.ledger),
	)
}

// Close drains the recorder, closes the store and flushes pending spans.
func (a *app) Close() error {
	return errors.Join(
		a.recorder.Close(),
		a.store.Close(),
		a.tracing.Shutdown(context.Background()),
	)
}
