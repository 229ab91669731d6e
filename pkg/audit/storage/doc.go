// Package storage provides storage backends for the audit retention pipeline.
//
// # Storage Backends
//
// Both backends implement audit.Store:
//
//   - SQLite: Embedded database for single-node deployments
//   - Memory: In-memory storage for testing
//
// # SQLite Backend
//
// Two drivers are supported and selected with SQLiteConfig.Driver:
//
//   - "sqlite3": github.com/mattn/go-sqlite3 (cgo)
//   - "sqlite": modernc.org/sqlite (pure Go, for CGO_ENABLED=0 builds)
//
// Statements are built with github.com/Masterminds/squirrel. Instants are
// stored as unix milliseconds and retention dates as YYYY-MM-DD text, so a
// "due by" comparison is a plain string comparison.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:        "data/audit.db",
//	    Driver:      storage.DriverPureGo,
//	    WALMode:     true,
//	    BusyTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	due := time.Now()
//	exported := true
//	events, err := store.QueryEvents(ctx, &audit.EventQuery{
//	    Statuses:       []audit.LifecycleStatus{audit.StatusActive},
//	    Exported:       &exported,
//	    RetentionDueBy: &due,
//	})
//
// # Conditional Writes
//
// TransitionEvents is a single UPDATE whose WHERE clause carries every
// guard (current status, export gate, retention date). A row that changed
// between selection and write is skipped and not counted, which is what
// keeps concurrent deletion runs from double-counting.
//
// # Thread Safety
//
// All storage backends are safe for concurrent use.
package storage
