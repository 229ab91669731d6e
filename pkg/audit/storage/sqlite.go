package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/custodian/pkg/audit"
)

// Supported database/sql driver names.
const (
	// DriverCGO is github.com/mattn/go-sqlite3 (requires cgo).
	DriverCGO = "sqlite3"
	// DriverPureGo is modernc.org/sqlite.
	DriverPureGo = "sqlite"
)

const (
	tableEvents   = "audit_events"
	tableConfig   = "retention_config"
	tableReceipts = "deletion_receipts"
	tableAlerts   = "retention_alerts"
	tableExports  = "export_records"

	// markExportedChunk bounds the id list of one UPDATE, well under
	// SQLite's bound-parameter limit.
	markExportedChunk = 500
)

var eventColumns = []string{
	"id", "created_at",
	"category", "description", "user_id", "module", "action",
	"entity_id", "entity_type", "severity",
	"before_data", "after_data",
	"status", "retention_date", "exported_at", "deleted_at",
}

var receiptColumns = []string{
	"id", "deleted_by", "deleted_count", "range_start", "range_end", "alert_id", "deleted_at", "checksum",
}

var alertColumns = []string{
	"id", "type", "event_count", "range_start", "range_end", "status",
	"created_at", "acknowledged_at", "exported_at", "deleted_at",
}

var exportColumns = []string{
	"id", "exported_by", "format", "file_name", "event_count", "range_start", "range_end", "file_size", "exported_at",
}

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver: "sqlite3" (cgo) or "sqlite"
	// (pure Go).
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Store using SQLite.
type SQLiteStorage struct {
	db      *sql.DB
	config  *SQLiteConfig
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}
	if config.Driver != DriverCGO && config.Driver != DriverPureGo {
		return nil, audit.NewStorageError("sqlite", "open",
			fmt.Errorf("unsupported driver %q", config.Driver))
	}

	// Open database connection
	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	// Configure connection pool. An in-memory database exists per
	// connection, so it is pinned to a single one.
	if config.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := newSQLiteStorage(db, config)

	// Initialize database
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// newSQLiteStorage wraps an open handle without touching the schema.
func newSQLiteStorage(db *sql.DB, config *SQLiteConfig) *SQLiteStorage {
	return &SQLiteStorage{
		db:      db,
		config:  config,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		logger:  slog.Default().With("component", "audit.storage.sqlite"),
	}
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	// Enable WAL mode if configured
	if s.config.WALMode {
		_, err := s.db.Exec("PRAGMA journal_mode=WAL;")
		if err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	// Set busy timeout
	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	_, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs))
	if err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	// Create schema
	_, err = s.db.Exec(Schema)
	if err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}
	s.logger.Debug("database schema created")

	// Insert schema version
	_, err = s.db.Exec(InsertSchemaVersion, SchemaVersion)
	if err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	// Verify schema version
	var version int
	err = s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}

	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)

	return nil
}

// CreateEvent persists an audit event.
func (s *SQLiteStorage) CreateEvent(ctx context.Context, event *audit.Event) error {
	insert := s.builder.Insert(tableEvents).
		Columns(eventColumns...).
		Values(
			event.ID, toMillis(event.CreatedAt),
			event.Category, event.Description, event.UserID, event.Module, event.Action,
			nullString(event.EntityID), nullString(event.EntityType), nullString(event.Severity),
			nullJSON(event.Before), nullJSON(event.After),
			string(event.Status), nullDate(event.RetentionDate), nullMillis(event.ExportedAt), nullMillis(event.DeletedAt),
		)

	if _, err := s.exec(ctx, insert); err != nil {
		return audit.NewStorageError("sqlite", "create_event", err)
	}
	return nil
}

// GetEvent retrieves one event by ID.
func (s *SQLiteStorage) GetEvent(ctx context.Context, id string) (*audit.Event, error) {
	query, args, err := s.builder.Select(eventColumns...).
		From(tableEvents).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "get_event", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "get_event", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, audit.NewStorageError("sqlite", "get_event", err)
		}
		return nil, audit.ErrNotFound
	}

	event, err := scanEvent(rows)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "scan", err)
	}
	return event, nil
}

// QueryEvents retrieves events matching the query filters.
func (s *SQLiteStorage) QueryEvents(ctx context.Context, query *audit.EventQuery) ([]*audit.Event, error) {
	sortBy := "created_at"
	if query.SortBy == "retention_date" {
		sortBy = "retention_date"
	}
	sortOrder := "ASC"
	if query.SortOrder == "desc" {
		sortOrder = "DESC"
	}

	sel := s.builder.Select(eventColumns...).
		From(tableEvents).
		Where(eventFilter(query)).
		OrderBy(fmt.Sprintf("%s %s", sortBy, sortOrder), fmt.Sprintf("id %s", sortOrder))

	// Add pagination
	if query.Limit > 0 {
		sel = sel.Limit(uint64(query.Limit))
	}
	if query.Offset > 0 {
		if query.Limit <= 0 {
			// SQLite only accepts OFFSET after a LIMIT clause.
			sel = sel.Limit(uint64(1<<63 - 1))
		}
		sel = sel.Offset(uint64(query.Offset))
	}

	sqlQuery, args, err := sel.ToSql()
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query_events", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query_events", err)
	}
	defer rows.Close()

	events := []*audit.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query_events", err)
	}

	return events, nil
}

// CountEvents returns the number of events matching the query filters.
func (s *SQLiteStorage) CountEvents(ctx context.Context, query *audit.EventQuery) (int64, error) {
	sqlQuery, args, err := s.builder.Select("COUNT(*)").
		From(tableEvents).
		Where(eventFilter(query)).
		ToSql()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "count_events", err)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count_events", err)
	}
	return count, nil
}

// MarkExported stamps exported_at on every listed non-deleted event. Long id
// lists are written in chunks inside one transaction, so either every chunk
// is applied or none is.
func (s *SQLiteStorage) MarkExported(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "mark_exported", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for start := 0; start < len(ids); start += markExportedChunk {
		end := min(start+markExportedChunk, len(ids))
		update := s.builder.Update(tableEvents).
			Set("exported_at", toMillis(at)).
			Where(sq.And{
				sq.Eq{"id": ids[start:end]},
				sq.NotEq{"status": string(audit.StatusDeleted)},
			})

		n, err := s.execWith(ctx, tx, update)
		if err != nil {
			return 0, audit.NewStorageError("sqlite", "mark_exported", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, audit.NewStorageError("sqlite", "mark_exported", err)
	}
	return total, nil
}

// TransitionEvents applies a conditional status change as a single UPDATE,
// so the guards are evaluated by the database at write time.
func (s *SQLiteStorage) TransitionEvents(ctx context.Context, t audit.Transition) (int64, error) {
	if len(t.IDs) == 0 {
		return 0, nil
	}

	update := s.builder.Update(tableEvents).Set("status", string(t.To))
	if t.SetRetentionDate != nil {
		update = update.Set("retention_date", formatDate(*t.SetRetentionDate))
	}
	if t.To == audit.StatusDeleted {
		update = update.Set("deleted_at", toMillis(t.At))
	}

	conds := sq.And{
		sq.Eq{"id": t.IDs},
		sq.Eq{"status": statusStrings(t.From)},
	}
	if t.RequireExported {
		conds = append(conds, sq.NotEq{"exported_at": nil})
	}
	if t.RetentionDueBy != nil {
		conds = append(conds,
			sq.NotEq{"retention_date": nil},
			sq.LtOrEq{"retention_date": formatDate(*t.RetentionDueBy)},
		)
	}

	n, err := s.exec(ctx, update.Where(conds))
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "transition_events", err)
	}
	return n, nil
}

// PurgeEvents physically removes events already in the deleted state.
func (s *SQLiteStorage) PurgeEvents(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	del := s.builder.Delete(tableEvents).
		Where(sq.And{
			sq.Eq{"id": ids},
			sq.Eq{"status": string(audit.StatusDeleted)},
		})

	n, err := s.exec(ctx, del)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "purge_events", err)
	}
	return n, nil
}

// GetRetentionConfig returns the stored policy, or nil when none was saved.
func (s *SQLiteStorage) GetRetentionConfig(ctx context.Context) (*audit.RetentionConfig, error) {
	query, args, err := s.builder.
		Select("retention_months", "alert_days", "auto_delete_enabled", "updated_by", "created_at", "updated_at").
		From(tableConfig).
		Where(sq.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "get_retention_config", err)
	}

	var cfg audit.RetentionConfig
	var updatedBy sql.NullString
	var createdAt, updatedAt int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&cfg.RetentionMonths, &cfg.AlertDays, &cfg.AutoDeleteEnabled, &updatedBy, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "get_retention_config", err)
	}

	cfg.UpdatedBy = updatedBy.String
	cfg.CreatedAt = fromMillis(createdAt)
	cfg.UpdatedAt = fromMillis(updatedAt)
	return &cfg, nil
}

// SaveRetentionConfig upserts the policy singleton. created_at is kept from
// the first save.
func (s *SQLiteStorage) SaveRetentionConfig(ctx context.Context, cfg *audit.RetentionConfig) error {
	insert := s.builder.Insert(tableConfig).
		Columns("id", "retention_months", "alert_days", "auto_delete_enabled", "updated_by", "created_at", "updated_at").
		Values(1, cfg.RetentionMonths, cfg.AlertDays, cfg.AutoDeleteEnabled, nullString(cfg.UpdatedBy),
			toMillis(cfg.CreatedAt), toMillis(cfg.UpdatedAt)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			retention_months = excluded.retention_months,
			alert_days = excluded.alert_days,
			auto_delete_enabled = excluded.auto_delete_enabled,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`)

	if _, err := s.exec(ctx, insert); err != nil {
		return audit.NewStorageError("sqlite", "save_retention_config", err)
	}
	return nil
}

// CreateReceipt persists a deletion receipt.
func (s *SQLiteStorage) CreateReceipt(ctx context.Context, r *audit.DeletionReceipt) error {
	insert := s.builder.Insert(tableReceipts).
		Columns(receiptColumns...).
		Values(r.ID, r.DeletedBy, r.DeletedCount, toMillis(r.RangeStart), toMillis(r.RangeEnd),
			nullString(r.AlertID), toMillis(r.DeletedAt), nullString(r.Checksum))

	if _, err := s.exec(ctx, insert); err != nil {
		return audit.NewStorageError("sqlite", "create_receipt", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by ID.
func (s *SQLiteStorage) GetReceipt(ctx context.Context, id string) (*audit.DeletionReceipt, error) {
	receipts, err := s.listReceipts(ctx, sq.Eq{"id": id}, 1)
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return nil, audit.ErrNotFound
	}
	return receipts[0], nil
}

// ListReceipts returns receipts newest first.
func (s *SQLiteStorage) ListReceipts(ctx context.Context, limit int) ([]*audit.DeletionReceipt, error) {
	return s.listReceipts(ctx, sq.And{}, limit)
}

func (s *SQLiteStorage) listReceipts(ctx context.Context, where sq.Sqlizer, limit int) ([]*audit.DeletionReceipt, error) {
	sel := s.builder.Select(receiptColumns...).
		From(tableReceipts).
		Where(where).
		OrderBy("deleted_at DESC", "id ASC")
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "list_receipts", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "list_receipts", err)
	}
	defer rows.Close()

	receipts := []*audit.DeletionReceipt{}
	for rows.Next() {
		var r audit.DeletionReceipt
		var rangeStart, rangeEnd, deletedAt int64
		var alertID, checksum sql.NullString
		if err := rows.Scan(&r.ID, &r.DeletedBy, &r.DeletedCount, &rangeStart, &rangeEnd,
			&alertID, &deletedAt, &checksum); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		r.RangeStart = fromMillis(rangeStart)
		r.RangeEnd = fromMillis(rangeEnd)
		r.DeletedAt = fromMillis(deletedAt)
		r.AlertID = alertID.String
		r.Checksum = checksum.String
		receipts = append(receipts, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "list_receipts", err)
	}
	return receipts, nil
}

// CreateAlert persists an alert.
func (s *SQLiteStorage) CreateAlert(ctx context.Context, a *audit.RetentionAlert) error {
	insert := s.builder.Insert(tableAlerts).
		Columns(alertColumns...).
		Values(a.ID, string(a.Type), a.EventCount, nullMillis(a.RangeStart), nullMillis(a.RangeEnd),
			string(a.Status), toMillis(a.CreatedAt),
			nullMillis(a.AcknowledgedAt), nullMillis(a.ExportedAt), nullMillis(a.DeletedAt))

	if _, err := s.exec(ctx, insert); err != nil {
		return audit.NewStorageError("sqlite", "create_alert", err)
	}
	return nil
}

// GetAlert retrieves an alert by ID.
func (s *SQLiteStorage) GetAlert(ctx context.Context, id string) (*audit.RetentionAlert, error) {
	alerts, err := s.listAlerts(ctx, sq.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return nil, audit.ErrNotFound
	}
	return alerts[0], nil
}

// ListAlerts returns alerts newest first filtered by type and status.
func (s *SQLiteStorage) ListAlerts(ctx context.Context, alertType audit.AlertType, status audit.AlertStatus) ([]*audit.RetentionAlert, error) {
	conds := sq.And{}
	if alertType != "" {
		conds = append(conds, sq.Eq{"type": string(alertType)})
	}
	if status != "" {
		conds = append(conds, sq.Eq{"status": string(status)})
	}
	return s.listAlerts(ctx, conds)
}

func (s *SQLiteStorage) listAlerts(ctx context.Context, where sq.Sqlizer) ([]*audit.RetentionAlert, error) {
	query, args, err := s.builder.Select(alertColumns...).
		From(tableAlerts).
		Where(where).
		OrderBy("created_at DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "list_alerts", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "list_alerts", err)
	}
	defer rows.Close()

	alerts := []*audit.RetentionAlert{}
	for rows.Next() {
		var a audit.RetentionAlert
		var alertType, status string
		var createdAt int64
		var rangeStart, rangeEnd, ackAt, exportedAt, deletedAt sql.NullInt64
		if err := rows.Scan(&a.ID, &alertType, &a.EventCount, &rangeStart, &rangeEnd, &status,
			&createdAt, &ackAt, &exportedAt, &deletedAt); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		a.Type = audit.AlertType(alertType)
		a.Status = audit.AlertStatus(status)
		a.CreatedAt = fromMillis(createdAt)
		a.RangeStart = timePtr(rangeStart)
		a.RangeEnd = timePtr(rangeEnd)
		a.AcknowledgedAt = timePtr(ackAt)
		a.ExportedAt = timePtr(exportedAt)
		a.DeletedAt = timePtr(deletedAt)
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "list_alerts", err)
	}
	return alerts, nil
}

// TransitionAlert conditionally moves an alert to a new status.
func (s *SQLiteStorage) TransitionAlert(ctx context.Context, id string, from []audit.AlertStatus, to audit.AlertStatus, at time.Time) (bool, error) {
	update := s.builder.Update(tableAlerts).Set("status", string(to))
	switch to {
	case audit.AlertAcknowledged:
		update = update.Set("acknowledged_at", toMillis(at))
	case audit.AlertExported:
		update = update.Set("exported_at", toMillis(at))
	case audit.AlertDeleted:
		update = update.Set("deleted_at", toMillis(at))
	}

	fromStrings := make([]string, len(from))
	for i, f := range from {
		fromStrings[i] = string(f)
	}

	n, err := s.exec(ctx, update.Where(sq.And{
		sq.Eq{"id": id},
		sq.Eq{"status": fromStrings},
	}))
	if err != nil {
		return false, audit.NewStorageError("sqlite", "transition_alert", err)
	}
	if n > 0 {
		return true, nil
	}

	// Distinguish "did not match" from "does not exist".
	if _, err := s.GetAlert(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// CreateExportRecord persists an export log entry.
func (s *SQLiteStorage) CreateExportRecord(ctx context.Context, r *audit.ExportRecord) error {
	var fileSize interface{}
	if r.FileSize != nil {
		fileSize = *r.FileSize
	}

	insert := s.builder.Insert(tableExports).
		Columns(exportColumns...).
		Values(r.ID, r.ExportedBy, r.Format, r.FileName, r.EventCount,
			nullMillis(r.RangeStart), nullMillis(r.RangeEnd), fileSize, toMillis(r.ExportedAt))

	if _, err := s.exec(ctx, insert); err != nil {
		return audit.NewStorageError("sqlite", "create_export_record", err)
	}
	return nil
}

// ListExportRecords returns export records newest first.
func (s *SQLiteStorage) ListExportRecords(ctx context.Context, limit int) ([]*audit.ExportRecord, error) {
	sel := s.builder.Select(exportColumns...).
		From(tableExports).
		OrderBy("exported_at DESC", "id ASC")
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "list_export_records", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "list_export_records", err)
	}
	defer rows.Close()

	records := []*audit.ExportRecord{}
	for rows.Next() {
		var r audit.ExportRecord
		var exportedAt int64
		var rangeStart, rangeEnd, fileSize sql.NullInt64
		if err := rows.Scan(&r.ID, &r.ExportedBy, &r.Format, &r.FileName, &r.EventCount,
			&rangeStart, &rangeEnd, &fileSize, &exportedAt); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		r.RangeStart = timePtr(rangeStart)
		r.RangeEnd = timePtr(rangeEnd)
		if fileSize.Valid {
			size := fileSize.Int64
			r.FileSize = &size
		}
		r.ExportedAt = fromMillis(exportedAt)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "list_export_records", err)
	}
	return records, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}

	s.logger.Info("SQLite storage closed")
	return nil
}

// exec renders a builder and runs it, returning rows affected.
func (s *SQLiteStorage) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	return s.execWith(ctx, s.db, b)
}

// execWith is exec against a specific connection or transaction.
func (s *SQLiteStorage) execWith(ctx context.Context, runner sq.ExecerContext, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}

	result, err := runner.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// eventFilter builds the WHERE predicate for an event query.
func eventFilter(query *audit.EventQuery) sq.And {
	conds := sq.And{}

	if len(query.IDs) > 0 {
		conds = append(conds, sq.Eq{"id": query.IDs})
	}
	if len(query.Statuses) > 0 {
		conds = append(conds, sq.Eq{"status": statusStrings(query.Statuses)})
	}

	// Export gate
	if query.Exported != nil {
		if *query.Exported {
			conds = append(conds, sq.NotEq{"exported_at": nil})
		} else {
			conds = append(conds, sq.Eq{"exported_at": nil})
		}
	}

	if query.RetentionDueBy != nil {
		conds = append(conds,
			sq.NotEq{"retention_date": nil},
			sq.LtOrEq{"retention_date": formatDate(*query.RetentionDueBy)},
		)
	}

	// Time range filter
	if query.CreatedFrom != nil {
		conds = append(conds, sq.GtOrEq{"created_at": toMillis(*query.CreatedFrom)})
	}
	if query.CreatedTo != nil {
		conds = append(conds, sq.LtOrEq{"created_at": toMillis(*query.CreatedTo)})
	}

	// Attribute filters
	attrs := map[string]string{
		"category":    query.Category,
		"module":      query.Module,
		"action":      query.Action,
		"user_id":     query.UserID,
		"entity_type": query.EntityType,
		"entity_id":   query.EntityID,
	}
	eq := sq.Eq{}
	for col, val := range attrs {
		if val != "" {
			eq[col] = val
		}
	}
	if len(eq) > 0 {
		conds = append(conds, eq)
	}

	return conds
}

// scanEvent scans a database row into an Event.
func scanEvent(rows *sql.Rows) (*audit.Event, error) {
	var e audit.Event
	var createdAt int64
	var status string
	var entityID, entityType, severity, before, after, retentionDate sql.NullString
	var exportedAt, deletedAt sql.NullInt64

	err := rows.Scan(
		&e.ID, &createdAt,
		&e.Category, &e.Description, &e.UserID, &e.Module, &e.Action,
		&entityID, &entityType, &severity,
		&before, &after,
		&status, &retentionDate, &exportedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	e.CreatedAt = fromMillis(createdAt)
	e.EntityID = entityID.String
	e.EntityType = entityType.String
	e.Severity = severity.String
	if before.Valid {
		e.Before = json.RawMessage(before.String)
	}
	if after.Valid {
		e.After = json.RawMessage(after.String)
	}
	e.Status = audit.LifecycleStatus(status)
	if retentionDate.Valid && retentionDate.String != "" {
		d, err := time.Parse(audit.DateLayout, retentionDate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid retention_date %q: %w", retentionDate.String, err)
		}
		e.RetentionDate = d
	}
	e.ExportedAt = timePtr(exportedAt)
	e.DeletedAt = timePtr(deletedAt)

	return &e, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullMillis(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func formatDate(t time.Time) string {
	return audit.DateOf(t).Format(audit.DateLayout)
}

func nullDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return formatDate(t)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullJSON(raw json.RawMessage) interface{} {
	if raw == nil {
		return nil
	}
	return string(raw)
}

func statusStrings(statuses []audit.LifecycleStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
