package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/alerts"
	"mercator-hq/custodian/pkg/audit/query"
	"mercator-hq/custodian/pkg/audit/recorder"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

// Config configures the export service.
type Config struct {
	// Directory receives export files. Created on demand.
	Directory string

	// DefaultFormat is used when a request names none.
	DefaultFormat string

	JSONPretty       bool
	CSVIncludeHeader bool

	// MaxEvents refuses exports selecting more events. Zero means no limit.
	MaxEvents int
}

// DefaultConfig returns the default export configuration.
func DefaultConfig() *Config {
	return &Config{
		Directory:        "data/exports",
		DefaultFormat:    FormatCSV,
		CSVIncludeHeader: true,
		MaxEvents:        1000000,
	}
}

// Request describes one export.
type Request struct {
	// Actor is recorded on the export record. Defaults to audit.SystemActor.
	Actor string

	// Format is json, csv or xlsx. Defaults to Config.DefaultFormat.
	Format string

	// Query selects the events. Nil exports every event that is not
	// deleted. Limit and offset are honored; zero limit means all.
	Query *audit.EventQuery

	// FileName overrides the generated file name inside the directory.
	FileName string

	// AlertID optionally names the alert that prompted the export. It is
	// moved to exported on success.
	AlertID string
}

// Result is the outcome of a successful export.
type Result struct {
	Record *audit.ExportRecord
	Path   string
	Alert  *audit.RetentionAlert // export_ready alert raised for this export
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRecorder sets where exports are audited.
func WithRecorder(r recorder.Logger) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLedger sets the alert ledger. One over the store is used otherwise.
func WithLedger(l *alerts.Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service writes export files and records that the covered events have
// been exported.
type Service struct {
	store    audit.Store
	config   *Config
	gate     *Gate
	ledger   *alerts.Ledger
	logger   *slog.Logger
	metrics  *metrics.Collector
	recorder recorder.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService creates an export service. A nil config uses DefaultConfig.
func NewService(store audit.Store, config *Config, opts ...Option) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Service{
		store:    store,
		config:   config,
		logger:   slog.Default(),
		recorder: recorder.Nop{},
		tracer:   otel.Tracer("mercator-hq/custodian/pkg/audit/export"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	base := s.logger
	s.logger = base.With("component", "audit.export")
	s.gate = NewGate(store, base)
	if s.ledger == nil {
		s.ledger = alerts.NewLedger(store,
			alerts.WithLogger(base),
			alerts.WithMetrics(s.metrics),
			alerts.WithClock(s.now),
		)
	}
	return s
}

// Gate returns the service's export gate.
func (s *Service) Gate() *Gate {
	return s.gate
}

// Export selects events, writes them to a file and records the export.
//
// The export timestamps are set only after the file has been written
// completely, so a failed export never opens the deletion gate. A failure
// after the timestamps are set (export record, alerts) is logged and does
// not fail the export.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	actor := req.Actor
	if actor == "" {
		actor = audit.SystemActor
	}
	format := req.Format
	if format == "" {
		format = s.config.DefaultFormat
	}

	exporter, err := NewExporter(format, Options{
		JSONPretty:       s.config.JSONPretty,
		CSVIncludeHeader: s.config.CSVIncludeHeader,
	})
	if err != nil {
		return nil, audit.NewExportError(format, 0, err)
	}
	format = exporter.Format()

	ctx, span := s.tracer.Start(ctx, "export.Export",
		trace.WithAttributes(
			attribute.String("export.format", format),
			attribute.String("export.actor", actor),
		),
	)
	defer span.End()

	result, err := s.export(ctx, exporter, actor, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordExport(format, metrics.OutcomeFailure, 0, 0)
		s.logger.ErrorContext(ctx, "export failed",
			"format", format,
			"actor", actor,
			"error", err,
		)
		return nil, err
	}

	size := 0
	if result.Record.FileSize != nil {
		size = int(*result.Record.FileSize)
	}
	span.SetAttributes(
		attribute.Int("export.events", result.Record.EventCount),
		attribute.Int("export.bytes", size),
	)
	s.metrics.RecordExport(format, metrics.OutcomeSuccess, result.Record.EventCount, size)

	return result, nil
}

func (s *Service) export(ctx context.Context, exporter Exporter, actor string, req Request) (*Result, error) {
	format := exporter.Format()

	q := selection(req.Query)
	if err := query.Validate(q); err != nil {
		return nil, err
	}

	if s.config.MaxEvents > 0 {
		count, err := s.store.CountEvents(ctx, q)
		if err != nil {
			return nil, err
		}
		if q.Limit > 0 && int64(q.Limit) < count {
			count = int64(q.Limit)
		}
		if count > int64(s.config.MaxEvents) {
			return nil, audit.NewExportError(format, int(count),
				fmt.Errorf("export selects %d events, limit is %d", count, s.config.MaxEvents))
		}
	}

	events, err := s.store.QueryEvents(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, audit.ErrNoEligibleEvents
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	fileName := req.FileName
	if fileName == "" {
		fileName = fmt.Sprintf("audit-events-%s.%s", now.Format("20060102T150405Z"), format)
	}
	path := filepath.Join(s.config.Directory, filepath.Base(fileName))

	size, err := s.writeFile(ctx, exporter, events, path)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	if _, err := s.gate.RecordExport(ctx, ids, now); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("record export timestamps: %w", err)
	}

	rangeStart, rangeEnd, _ := audit.CreatedRange(events)
	record := &audit.ExportRecord{
		ID:         uuid.New().String(),
		ExportedBy: actor,
		Format:     format,
		FileName:   filepath.Base(path),
		EventCount: len(events),
		RangeStart: &rangeStart,
		RangeEnd:   &rangeEnd,
		FileSize:   &size,
		ExportedAt: now,
	}
	if err := s.store.CreateExportRecord(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "failed to store export record",
			"file", record.FileName,
			"error", err,
		)
	}

	result := &Result{Record: record, Path: path}

	if req.AlertID != "" {
		if _, err := s.ledger.MarkExported(ctx, req.AlertID); err != nil {
			s.logger.WarnContext(ctx, "failed to mark alert exported",
				"alert_id", req.AlertID,
				"error", err,
			)
		}
	}
	alert, err := s.ledger.Raise(ctx, audit.AlertExportReady, len(events), &rangeStart, &rangeEnd)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to raise export ready alert", "error", err)
	}
	result.Alert = alert

	s.recorder.Log(ctx, recorder.Entry{
		Category:    "retention",
		Description: fmt.Sprintf("Exported %d audit events as %s", len(events), format),
		UserID:      actor,
		Module:      "export",
		Action:      "export",
		EntityType:  "export_record",
		EntityID:    record.ID,
		After:       record,
	})

	s.logger.InfoContext(ctx, "exported audit events",
		"actor", actor,
		"format", format,
		"events", len(events),
		"bytes", size,
		"path", path,
	)

	return result, nil
}

// writeFile writes events to path and returns the file size. A partially
// written file is removed.
func (s *Service) writeFile(ctx context.Context, exporter Exporter, events []*audit.Event, path string) (size int64, err error) {
	format := exporter.Format()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, audit.NewExportError(format, len(events), err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, audit.NewExportError(format, len(events), err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err := exporter.Export(ctx, events, f); err != nil {
		_ = f.Close()
		var exportErr *audit.ExportError
		if errors.As(err, &exportErr) {
			return 0, err
		}
		return 0, audit.NewExportError(format, len(events), err)
	}
	if err := f.Close(); err != nil {
		return 0, audit.NewExportError(format, len(events), err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, audit.NewExportError(format, len(events), err)
	}
	return info.Size(), nil
}

// selection copies q and fills in the export defaults: events that are not
// deleted, oldest first.
func selection(q *audit.EventQuery) *audit.EventQuery {
	var out audit.EventQuery
	if q != nil {
		out = *q
	}
	if len(out.Statuses) == 0 {
		out.Statuses = []audit.LifecycleStatus{audit.StatusActive, audit.StatusMarkedForDeletion}
	}
	if out.SortBy == "" {
		out.SortBy = "created_at"
	}
	if out.SortOrder == "" {
		out.SortOrder = "asc"
	}
	return &out
}
