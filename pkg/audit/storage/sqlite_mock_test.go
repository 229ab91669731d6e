package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/custodian/pkg/audit"
)

func setupMockStorage(t *testing.T) (*SQLiteStorage, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newSQLiteStorage(db, DefaultSQLiteConfig()), mock
}

func TestSQLiteStorage_TransitionEventsSQL(t *testing.T) {
	t.Run("guards are part of the update", func(t *testing.T) {
		s, mock := setupMockStorage(t)
		due := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

		mock.ExpectExec(`UPDATE audit_events SET status = \?, deleted_at = \? WHERE \(id IN \(\?,\?\) AND status IN \(\?,\?\) AND exported_at IS NOT NULL AND retention_date IS NOT NULL AND retention_date <= \?\)`).
			WithArgs("deleted", sqlmock.AnyArg(), "a", "b", "active", "marked_for_deletion", "2024-03-20").
			WillReturnResult(sqlmock.NewResult(0, 2))

		n, err := s.TransitionEvents(context.Background(), audit.Transition{
			IDs:             []string{"a", "b"},
			From:            []audit.LifecycleStatus{audit.StatusActive, audit.StatusMarkedForDeletion},
			To:              audit.StatusDeleted,
			RequireExported: true,
			RetentionDueBy:  &due,
			At:              due,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		s, mock := setupMockStorage(t)

		mock.ExpectExec("UPDATE audit_events").WillReturnError(errors.New("database is locked"))

		_, err := s.TransitionEvents(context.Background(), audit.Transition{
			IDs:  []string{"a"},
			From: []audit.LifecycleStatus{audit.StatusActive},
			To:   audit.StatusDeleted,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, audit.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "transition_events")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty id list skips the database", func(t *testing.T) {
		s, mock := setupMockStorage(t)

		n, err := s.TransitionEvents(context.Background(), audit.Transition{To: audit.StatusDeleted})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLiteStorage_QueryFailure(t *testing.T) {
	s, mock := setupMockStorage(t)

	mock.ExpectQuery("SELECT (.+) FROM audit_events").WillReturnError(errors.New("disk I/O error"))

	events, err := s.QueryEvents(context.Background(), &audit.EventQuery{})
	assert.Nil(t, events)
	assert.ErrorIs(t, err, audit.ErrStoreUnavailable)

	var storageErr *audit.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "sqlite", storageErr.Backend)
	assert.Equal(t, "query_events", storageErr.Operation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStorage_GetRetentionConfigAbsent(t *testing.T) {
	s, mock := setupMockStorage(t)

	mock.ExpectQuery("SELECT (.+) FROM retention_config").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"retention_months", "alert_days", "auto_delete_enabled", "updated_by", "created_at", "updated_at"}))

	cfg, err := s.GetRetentionConfig(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStorage_TransitionAlertNotFound(t *testing.T) {
	s, mock := setupMockStorage(t)

	mock.ExpectExec("UPDATE retention_alerts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM retention_alerts").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(alertColumns))

	ok, err := s.TransitionAlert(context.Background(), "ghost",
		[]audit.AlertStatus{audit.AlertPending}, audit.AlertAcknowledged, time.Now())
	assert.False(t, ok)
	assert.ErrorIs(t, err, audit.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStorage_MarkExportedAtomic(t *testing.T) {
	ids := make([]string, markExportedChunk+100)
	for i := range ids {
		ids[i] = fmt.Sprintf("evt-%d", i)
	}
	at := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	t.Run("chunks commit together", func(t *testing.T) {
		s, mock := setupMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE audit_events SET exported_at").WillReturnResult(sqlmock.NewResult(0, markExportedChunk))
		mock.ExpectExec("UPDATE audit_events SET exported_at").WillReturnResult(sqlmock.NewResult(0, 100))
		mock.ExpectCommit()

		n, err := s.MarkExported(context.Background(), ids, at)
		require.NoError(t, err)
		assert.Equal(t, int64(len(ids)), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failing chunk rolls back earlier chunks", func(t *testing.T) {
		s, mock := setupMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE audit_events SET exported_at").WillReturnResult(sqlmock.NewResult(0, markExportedChunk))
		mock.ExpectExec("UPDATE audit_events SET exported_at").WillReturnError(errors.New("database is locked"))
		mock.ExpectRollback()

		n, err := s.MarkExported(context.Background(), ids, at)
		assert.Zero(t, n)
		assert.ErrorIs(t, err, audit.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "mark_exported")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
