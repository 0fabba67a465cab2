package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusops/accommodations-api/internal/models"
)

func newHistoryRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func historyTestColumns() []string {
	return []string{
		"id", "user_id", "course_id", "activity_id", "module_kind", "module_instance_id",
		"extension", "original_value", "new_value", "applied", "created_at", "modified_by",
	}
}

func TestHistoryRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newHistoryRepoMock(t)
	defer cleanup()

	repo := NewHistoryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accommodation_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AccommodationHistory{
		UserID:           "u1",
		CourseID:         "c1",
		ActivityID:       "a1",
		ModuleKind:       models.ActivityKindQuiz,
		ModuleInstanceID: "q1",
		Extension:        25,
		OriginalValue:    3600,
		NewValue:         4500,
		Applied:          true,
		ModifiedBy:       "system",
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newHistoryRepoMock(t)
	defer cleanup()

	repo := NewHistoryRepository(db)
	now := time.Now()
	from := now.Add(-24 * time.Hour)
	rows := sqlmock.NewRows(historyTestColumns()).
		AddRow("h1", "u1", "c1", "a1", "quiz", "q1", 25, 3600, 4500, true, now, "system")
	mock.ExpectQuery(regexp.QuoteMeta("user_id = $1 AND module_kind = $2 AND created_at >= $3")).
		WithArgs("u1", "quiz", from).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM accommodation_history")).
		WithArgs("u1", "quiz", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, total, err := repo.List(context.Background(), models.HistoryFilter{
		UserID:     "u1",
		ModuleKind: "quiz",
		From:       &from,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, entries, 1)
	require.Equal(t, "h1", entries[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
