package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meterdash-lab/project-meterdash/internal/core/series"
)

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(queryUpsertSnapshot))
	mock.ExpectPrepare(regexp.QuoteMeta(queryWindow))

	stmtUpsert, err := db.Prepare(queryUpsertSnapshot)
	require.NoError(t, err)
	stmtWindow, err := db.Prepare(queryWindow)
	require.NoError(t, err)

	return &Adapter{db: db, stmtUpsert: stmtUpsert, stmtWindow: stmtWindow}, mock, db
}

func testSnapshot(day time.Time) *series.Snapshot {
	return &series.Snapshot{
		Series:     series.Broadband,
		Day:        day,
		CapturedAt: day.Add(9 * time.Hour),
		Fields: map[string]decimal.Decimal{
			series.FieldTotal:    decimal.NewFromInt(1024),
			series.FieldDownload: decimal.NewFromInt(900),
		},
		Display: map[string]string{
			series.FieldTotal: "1.00 GB",
		},
	}
}

func TestAdapter_Upsert(t *testing.T) {
	day := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		snap       *series.Snapshot
		mockResult func(mock sqlmock.Sqlmock, snap *series.Snapshot)
		assertions func(t *testing.T, err error)
	}{
		{
			name: "success",
			snap: testSnapshot(day),
			mockResult: func(mock sqlmock.Sqlmock, snap *series.Snapshot) {
				mock.ExpectExec(regexp.QuoteMeta(queryUpsertSnapshot)).
					WithArgs(
						string(snap.Series),
						snap.Day,
						snap.CapturedAt,
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
					).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			assertions: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name: "rewrite of the same day succeeds",
			snap: testSnapshot(day),
			mockResult: func(mock sqlmock.Sqlmock, snap *series.Snapshot) {
				// The conflict branch updates in place; the adapter sees an
				// ordinary exec result either way.
				mock.ExpectExec(regexp.QuoteMeta(queryUpsertSnapshot)).
					WithArgs(
						string(snap.Series),
						snap.Day,
						snap.CapturedAt,
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
					).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			assertions: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name: "exec failure is wrapped",
			snap: testSnapshot(day),
			mockResult: func(mock sqlmock.Sqlmock, snap *series.Snapshot) {
				mock.ExpectExec(regexp.QuoteMeta(queryUpsertSnapshot)).
					WillReturnError(errors.New("connection refused"))
			},
			assertions: func(t *testing.T, err error) {
				require.Error(t, err)
				require.ErrorContains(t, err, "failed to upsert snapshot")
			},
		},
		{
			name: "invalid snapshot short-circuits",
			snap: &series.Snapshot{Series: series.Broadband},
			assertions: func(t *testing.T, err error) {
				require.Error(t, err)
				require.ErrorContains(t, err, "invalid snapshot")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			if tc.mockResult != nil {
				tc.mockResult(mock, tc.snap)
			}

			err := adapter.Upsert(context.Background(), tc.snap)
			tc.assertions(t, err)

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_QueryWindow(t *testing.T) {
	day := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)
	columns := []string{"series", "day", "captured_at", "fields", "display"}

	t.Run("requests limit plus one and scans rows newest first", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		rows := sqlmock.NewRows(columns).
			AddRow("broadband", day, day.Add(9*time.Hour), []byte(`{"total":"200"}`), []byte(`{"total":"0.20 GB"}`)).
			AddRow("broadband", day.AddDate(0, 0, -1), day.Add(-15*time.Hour), []byte(`{"total":"100"}`), nil)

		mock.ExpectQuery(regexp.QuoteMeta(queryWindow)).
			WithArgs("broadband", 31).
			WillReturnRows(rows)

		snapshots, err := adapter.QueryWindow(context.Background(), series.Broadband, 30)
		require.NoError(t, err)
		require.Len(t, snapshots, 2)

		require.Equal(t, series.Broadband, snapshots[0].Series)
		require.Equal(t, day, snapshots[0].Day)
		require.True(t, snapshots[0].Fields["total"].Equal(decimal.NewFromInt(200)))
		require.Equal(t, "0.20 GB", snapshots[0].Display["total"])
		require.Nil(t, snapshots[1].Display)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty stream yields empty slice and no error", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(queryWindow)).
			WithArgs("npm-downloads/vibranium-cli", 6).
			WillReturnRows(sqlmock.NewRows(columns))

		snapshots, err := adapter.QueryWindow(context.Background(), series.PackageSeries("vibranium-cli"), 5)
		require.NoError(t, err)
		require.Empty(t, snapshots)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error is wrapped", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(queryWindow)).
			WillReturnError(errors.New("db down"))

		_, err := adapter.QueryWindow(context.Background(), series.Broadband, 30)
		require.Error(t, err)
		require.ErrorContains(t, err, "failed to query window")
	})

	t.Run("malformed fields JSON fails the scan", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		rows := sqlmock.NewRows(columns).
			AddRow("broadband", day, day, []byte(`{not-json`), nil)

		mock.ExpectQuery(regexp.QuoteMeta(queryWindow)).
			WillReturnRows(rows)

		_, err := adapter.QueryWindow(context.Background(), series.Broadband, 30)
		require.Error(t, err)
		require.ErrorContains(t, err, "failed to unmarshal fields")
	})
}
