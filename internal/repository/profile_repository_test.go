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

func newProfileRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func profileDetailTestColumns() []string {
	return []string{
		"id", "user_id", "type_id", "extension", "course_id", "category_id",
		"start_date", "end_date", "notes", "created_at", "updated_at", "modified_by",
		"type_name", "type_default_extension",
	}
}

func profileDetailRow(rows *sqlmock.Rows, id, userID string, extension int) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, userID, "t1", extension, nil, nil, nil, nil, "", now, now, "admin-1", "Learning Disability", 25)
}

func TestProfileRepositoryListFiltersByUser(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository(db)
	rows := profileDetailRow(sqlmock.NewRows(profileDetailTestColumns()), "p1", "u1", 25)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT p.id, p.user_id")).
		WithArgs("u1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM accommodation_profiles p")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	profiles, total, err := repo.List(context.Background(), models.ProfileFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, profiles, 1)
	require.Equal(t, "p1", profiles[0].ID)
	require.Equal(t, 25, profiles[0].TypeDefaultExtension)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryListApplicableForCourse(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository(db)
	rows := sqlmock.NewRows(profileDetailTestColumns())
	rows = profileDetailRow(rows, "p1", "u1", 25)
	rows = profileDetailRow(rows, "p2", "u2", 15)
	mock.ExpectQuery(regexp.QuoteMeta("OR p.category_id IN ($2, $3)")).
		WithArgs("c1", "cat1", "cat2").
		WillReturnRows(rows)

	profiles, err := repo.ListApplicableForCourse(context.Background(), "c1", []string{"cat1", "cat2"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accommodation_profiles")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	profile := &models.AccommodationProfile{UserID: "u1", TypeID: "t1", Extension: 25, ModifiedBy: "admin-1"}
	require.NoError(t, repo.Create(context.Background(), profile))
	require.NotEmpty(t, profile.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryDeleteCascadesOverrides(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM accommodation_overrides WHERE profile_id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM accommodation_profiles WHERE id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "p1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryCourseIDsWithProfilesReachesCategoryScope(t *testing.T) {
	db, mock, cleanup := newProfileRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository(db)
	// The sweep query must walk the category ancestor chain so a course whose
	// only applicable profile is category-scoped is still returned.
	mock.ExpectQuery(regexp.QuoteMeta("OR p.category_id = cc.category_id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1").AddRow("c2"))

	ids, err := repo.CourseIDsWithProfiles(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
