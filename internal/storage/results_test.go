package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/riasec-matcher/internal/assessment"
	"github.com/spigell/riasec-matcher/internal/catalog"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := New(sqlDB, nil)
	db.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return db, mock
}

func TestSaveResultWritesRow(t *testing.T) {
	db, mock := newMockDB(t)
	finished := time.Date(2026, 4, 30, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO assessment_results`).
		WithArgs("s1", "RIA", sqlmock.AnyArg(), finished, db.now()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := db.SaveResult(context.Background(), &assessment.Result{SessionID: "s1", CategoryCode: "RIA", FinishedAt: finished})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveResultWrapsErrors(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`INSERT INTO assessment_results`).WillReturnError(errors.New("disk full"))

	err := db.SaveResult(context.Background(), &assessment.Result{SessionID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session s1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestResultDecodesRow(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM assessment_results`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(`{"session_id":"s1","category_code":"SEC"}`))

	res, err := db.LatestResult(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "SEC", res.CategoryCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestResultRejectsCorruptRow(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT data FROM assessment_results`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(`not json`))

	_, err := db.LatestResult(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrResultNotFound)
}

func TestImportJobsRollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO jobs`)
	prep.ExpectExec().WithArgs("1", "R", "", sqlmock.AnyArg(), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("2", "I", "", sqlmock.AnyArg(), sqlmock.AnyArg()).WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	n, err := db.ImportJobs(context.Background(), []*catalog.Job{
		{ID: "1", CategoryCode: "R"},
		{ID: "2", CategoryCode: "I"},
	})
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
