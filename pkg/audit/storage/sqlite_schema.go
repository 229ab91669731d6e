package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit retention schema.
// Instants are stored as INTEGER unix milliseconds (UTC), calendar dates as
// TEXT in YYYY-MM-DD form so they compare lexically.
const Schema = `
-- Audit events
CREATE TABLE IF NOT EXISTS audit_events (
    id TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,

    -- Classification
    category TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    user_id TEXT NOT NULL DEFAULT '',
    module TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL DEFAULT '',
    entity_id TEXT,
    entity_type TEXT,
    severity TEXT,

    -- Snapshots (raw JSON text)
    before_data TEXT,
    after_data TEXT,

    -- Lifecycle
    status TEXT NOT NULL DEFAULT 'active'
        CHECK (status IN ('active', 'marked_for_deletion', 'deleted')),
    retention_date TEXT,
    exported_at INTEGER,
    deleted_at INTEGER
);

-- Retention policy singleton
CREATE TABLE IF NOT EXISTS retention_config (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    retention_months INTEGER NOT NULL,
    alert_days INTEGER NOT NULL,
    auto_delete_enabled INTEGER NOT NULL DEFAULT 0,
    updated_by TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Deletion receipts (append-only)
CREATE TABLE IF NOT EXISTS deletion_receipts (
    id TEXT PRIMARY KEY,
    deleted_by TEXT NOT NULL,
    deleted_count INTEGER NOT NULL,
    range_start INTEGER NOT NULL,
    range_end INTEGER NOT NULL,
    alert_id TEXT,
    deleted_at INTEGER NOT NULL,
    checksum TEXT
);

-- Retention alerts
CREATE TABLE IF NOT EXISTS retention_alerts (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL
        CHECK (type IN ('retention_warning', 'export_ready', 'deletion_complete')),
    event_count INTEGER NOT NULL DEFAULT 0,
    range_start INTEGER,
    range_end INTEGER,
    status TEXT NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'acknowledged', 'exported', 'deleted')),
    created_at INTEGER NOT NULL,
    acknowledged_at INTEGER,
    exported_at INTEGER,
    deleted_at INTEGER
);

-- Export log (append-only)
CREATE TABLE IF NOT EXISTS export_records (
    id TEXT PRIMARY KEY,
    exported_by TEXT NOT NULL,
    format TEXT NOT NULL,
    file_name TEXT NOT NULL,
    event_count INTEGER NOT NULL,
    range_start INTEGER,
    range_end INTEGER,
    file_size INTEGER,
    exported_at INTEGER NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for retention scans
CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at);
CREATE INDEX IF NOT EXISTS idx_audit_events_status_retention ON audit_events(status, retention_date);
CREATE INDEX IF NOT EXISTS idx_audit_events_exported_at ON audit_events(exported_at);
CREATE INDEX IF NOT EXISTS idx_audit_events_entity ON audit_events(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_retention_alerts_type_status ON retention_alerts(type, status);
CREATE INDEX IF NOT EXISTS idx_deletion_receipts_deleted_at ON deletion_receipts(deleted_at);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
