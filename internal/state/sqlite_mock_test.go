package state

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sidebar/internal/testutil"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

func TestSQLiteStore_ErrorPaths(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		run       func(store *SQLiteStore) error
		errMsg    string
	}{
		{
			name: "save rolls back when history reset fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM history_entries").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			run:    func(store *SQLiteStore) error { return store.SaveSnapshot(testutil.SampleSnapshot()) },
			errMsg: "failed to reset history",
		},
		{
			name: "save rolls back when an entry fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM history_entries").WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectExec("INSERT INTO history_entries").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			run:    func(store *SQLiteStore) error { return store.SaveSnapshot(testutil.SampleSnapshot()) },
			errMsg: "failed to upsert history entry run-1",
		},
		{
			name: "save reports commit failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM history_entries").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("DELETE FROM environment_vars").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO sidebar_meta").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO sidebar_meta").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO sidebar_meta").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit().WillReturnError(assert.AnError)
			},
			run:    func(store *SQLiteStore) error { return store.SaveSnapshot(core.Snapshot{}) },
			errMsg: "failed to commit transaction",
		},
		{
			name: "begin failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(assert.AnError)
			},
			run:    func(store *SQLiteStore) error { return store.UpsertHistory(core.HistoryEntry{ID: "x"}) },
			errMsg: "failed to begin transaction",
		},
		{
			name: "list failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM history_entries").WillReturnError(assert.AnError)
			},
			run: func(store *SQLiteStore) error {
				_, err := store.ListHistory(0)
				return err
			},
			errMsg: "failed to list history",
		},
		{
			name: "prune failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM history_entries WHERE id NOT IN").WithArgs(50).WillReturnError(assert.AnError)
			},
			run: func(store *SQLiteStore) error {
				_, err := store.PruneHistory(50)
				return err
			},
			errMsg: "failed to prune history",
		},
		{
			name: "corrupt steps column",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name", "timestamp_ms", "status", "pipeline_snapshot", "steps", "pull_requests"}).
					AddRow("run-1", "Run", int64(1), "success", nil, "{not json", nil)
				mock.ExpectQuery("SELECT (.+) FROM history_entries").WillReturnRows(rows)
			},
			run: func(store *SQLiteStore) error {
				_, err := store.ListHistory(0)
				return err
			},
			errMsg: "failed to unmarshal steps of run-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.setupMock(mock)
			store := NewSQLiteStoreWithDB(db, testutil.NewTestLogger(t))

			err = tt.run(store)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
