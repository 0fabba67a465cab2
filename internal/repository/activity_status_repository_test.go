package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusops/accommodations-api/internal/models"
)

func newStatusRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestActivityStatusRepositoryFind(t *testing.T) {
	db, mock, cleanup := newStatusRepoMock(t)
	defer cleanup()

	repo := NewActivityStatusRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"activity_id", "disabled", "created_at", "updated_at", "modified_by"}).
		AddRow("a1", true, now, now, "admin-1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT activity_id, disabled")).
		WithArgs("a1").
		WillReturnRows(rows)

	status, err := repo.Find(context.Background(), "a1")
	require.NoError(t, err)
	require.True(t, status.Disabled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityStatusRepositoryFindNoRows(t *testing.T) {
	db, mock, cleanup := newStatusRepoMock(t)
	defer cleanup()

	repo := NewActivityStatusRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT activity_id, disabled")).
		WithArgs("a-missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "a-missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityStatusRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newStatusRepoMock(t)
	defer cleanup()

	repo := NewActivityStatusRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_accommodation_status")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	status := &models.ActivityStatus{ActivityID: "a1", Disabled: true, ModifiedBy: "admin-1"}
	require.NoError(t, repo.Upsert(context.Background(), status))
	require.False(t, status.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
