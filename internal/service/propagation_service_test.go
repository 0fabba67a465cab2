package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/accommodations-api/internal/models"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
)

type activityRepoStub struct {
	activities map[string]*models.Activity
	byCourse   map[string][]models.Activity
}

func (s *activityRepoStub) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	if a, ok := s.activities[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (s *activityRepoStub) ListByCourse(ctx context.Context, courseID string) ([]models.Activity, error) {
	return s.byCourse[courseID], nil
}

type statusRepoStub struct {
	statuses map[string]*models.ActivityStatus
}

func (s *statusRepoStub) Find(ctx context.Context, activityID string) (*models.ActivityStatus, error) {
	if st, ok := s.statuses[activityID]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

type profileRepoStub struct {
	profiles  []models.ProfileDetail
	courseIDs []string
}

func (s *profileRepoStub) ListApplicableForCourse(ctx context.Context, courseID string, categoryIDs []string) ([]models.ProfileDetail, error) {
	return s.profiles, nil
}

func (s *profileRepoStub) CourseIDsWithProfiles(ctx context.Context) ([]string, error) {
	return s.courseIDs, nil
}

type overrideRepoStub struct {
	overrides []models.AccommodationOverride
}

func (s *overrideRepoStub) ListByActivity(ctx context.Context, activityID string) ([]models.AccommodationOverride, error) {
	return s.overrides, nil
}

type userRepoStub struct {
	enrolled map[string][]string
}

func (s *userRepoStub) ListEnrolledIDs(ctx context.Context, courseID string, offset, limit int) ([]string, error) {
	ids := s.enrolled[courseID]
	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[offset:end], nil
}

type courseRepoStub struct {
	courses     map[string]*models.Course
	byCategory  map[string][]models.Course
	descendants map[string][]string
}

func (s *courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (s *courseRepoStub) ListByCategory(ctx context.Context, categoryID string) ([]models.Course, error) {
	return s.byCategory[categoryID], nil
}

func (s *courseRepoStub) AncestorCategoryIDs(ctx context.Context, courseID string) ([]string, error) {
	return nil, nil
}

func (s *courseRepoStub) DescendantCategoryIDs(ctx context.Context, categoryID string) ([]string, error) {
	return s.descendants[categoryID], nil
}

type quizSinkStub struct {
	existing map[string]*models.QuizOverride
	writes   []models.QuizOverride
	failFor  string
}

func quizKey(activityID, userID string) string { return activityID + "|" + userID }

func (s *quizSinkStub) Find(ctx context.Context, activityID, userID string) (*models.QuizOverride, error) {
	if o, ok := s.existing[quizKey(activityID, userID)]; ok {
		return o, nil
	}
	return nil, sql.ErrNoRows
}

func (s *quizSinkStub) Upsert(ctx context.Context, o *models.QuizOverride) error {
	if s.failFor == o.UserID {
		return errors.New("sink rejected write")
	}
	s.writes = append(s.writes, *o)
	if s.existing == nil {
		s.existing = make(map[string]*models.QuizOverride)
	}
	stored := *o
	s.existing[quizKey(o.ActivityID, o.UserID)] = &stored
	return nil
}

type assignSinkStub struct {
	existing map[string]*models.AssignmentOverride
	writes   []models.AssignmentOverride
}

func (s *assignSinkStub) Find(ctx context.Context, activityID, userID string) (*models.AssignmentOverride, error) {
	if o, ok := s.existing[quizKey(activityID, userID)]; ok {
		return o, nil
	}
	return nil, sql.ErrNoRows
}

func (s *assignSinkStub) Upsert(ctx context.Context, o *models.AssignmentOverride) error {
	s.writes = append(s.writes, *o)
	if s.existing == nil {
		s.existing = make(map[string]*models.AssignmentOverride)
	}
	stored := *o
	s.existing[quizKey(o.ActivityID, o.UserID)] = &stored
	return nil
}

type historyStub struct {
	entries []models.AccommodationHistory
}

func (s *historyStub) Create(ctx context.Context, entry *models.AccommodationHistory) error {
	s.entries = append(s.entries, *entry)
	return nil
}

type propagationFixture struct {
	activities *activityRepoStub
	statuses   *statusRepoStub
	profiles   *profileRepoStub
	overrides  *overrideRepoStub
	users      *userRepoStub
	courses    *courseRepoStub
	quizzes    *quizSinkStub
	assigns    *assignSinkStub
	history    *historyStub
	service    *PropagationService
}

func newPropagationFixture(pageSize int) *propagationFixture {
	f := &propagationFixture{
		activities: &activityRepoStub{activities: map[string]*models.Activity{}, byCourse: map[string][]models.Activity{}},
		statuses:   &statusRepoStub{statuses: map[string]*models.ActivityStatus{}},
		profiles:   &profileRepoStub{},
		overrides:  &overrideRepoStub{},
		users:      &userRepoStub{enrolled: map[string][]string{}},
		courses:    &courseRepoStub{courses: map[string]*models.Course{}, byCategory: map[string][]models.Course{}, descendants: map[string][]string{}},
		quizzes:    &quizSinkStub{},
		assigns:    &assignSinkStub{},
		history:    &historyStub{},
	}
	f.service = NewPropagationService(PropagationDeps{
		Activities:  f.activities,
		Statuses:    f.statuses,
		Profiles:    f.profiles,
		Overrides:   f.overrides,
		Users:       f.users,
		Courses:     f.courses,
		Quizzes:     f.quizzes,
		Assignments: f.assigns,
		History:     f.history,
	}, pageSize, 0, nil)
	return f
}

func quizActivity(id, courseID string, timeLimit int64) *models.Activity {
	return &models.Activity{ID: id, Kind: models.ActivityKindQuiz, CourseID: courseID, InstanceID: "i-" + id, TimeLimit: timeLimit}
}

func assignmentActivity(id, courseID string, due, allowFrom int64) *models.Activity {
	return &models.Activity{ID: id, Kind: models.ActivityKindAssignment, CourseID: courseID, InstanceID: "i-" + id, DueDate: due, AllowSubmissionsFrom: allowFrom}
}

func userProfile(id, userID string, extension int) models.ProfileDetail {
	return models.ProfileDetail{
		AccommodationProfile: models.AccommodationProfile{ID: id, UserID: userID, Extension: extension},
		TypeName:             "Learning Disability",
	}
}

func TestExtendTimeLimit(t *testing.T) {
	assert.Equal(t, int64(4500), ExtendTimeLimit(3600, 25))
	assert.Equal(t, int64(4140), ExtendTimeLimit(3600, 15))
	assert.Equal(t, int64(0), ExtendTimeLimit(0, 25))
}

func TestExtendDueDate(t *testing.T) {
	// A 10-day window extended by 15% pushes the due date out 1.5 days.
	due := int64(1_700_000_000)
	allowFrom := due - 864_000
	assert.Equal(t, due+129_600, ExtendDueDate(due, allowFrom, 15))
	// Without an open date the whole epoch-relative value scales.
	assert.Equal(t, int64(1250), ExtendDueDate(1000, 0, 25))
}

func TestApplyToActivityWritesQuizOverrideAndHistory(t *testing.T) {
	f := newPropagationFixture(500)
	f.activities.activities["a1"] = quizActivity("a1", "c1", 3600)
	f.profiles.profiles = []models.ProfileDetail{userProfile("p1", "u1", 25)}
	f.users.enrolled["c1"] = []string{"u1"}

	count, err := f.service.ApplyToActivity(context.Background(), "a1", false, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, f.quizzes.writes, 1)
	assert.Equal(t, int64(4500), f.quizzes.writes[0].TimeLimit)
	assert.Equal(t, "u1", f.quizzes.writes[0].UserID)

	require.Len(t, f.history.entries, 1)
	entry := f.history.entries[0]
	assert.Equal(t, int64(3600), entry.OriginalValue)
	assert.Equal(t, int64(4500), entry.NewValue)
	assert.Equal(t, 25, entry.Extension)
	assert.Equal(t, models.ActivityKindQuiz, entry.ModuleKind)
	assert.Equal(t, "admin", entry.ModifiedBy)
	assert.True(t, entry.Applied)
}

func TestApplyToActivityExtendsAssignmentDueDate(t *testing.T) {
	f := newPropagationFixture(500)
	due := int64(1_700_000_000)
	f.activities.activities["a1"] = assignmentActivity("a1", "c1", due, due-864_000)
	f.profiles.profiles = []models.ProfileDetail{userProfile("p1", "u1", 15)}
	f.users.enrolled["c1"] = []string{"u1"}

	count, err := f.service.ApplyToActivity(context.Background(), "a1", false, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, f.assigns.writes, 1)
	assert.Equal(t, due+129_600, f.assigns.writes[0].DueDate)
}

func TestApplyToActivitySkipsAssignmentWithoutDueDate(t *testing.T) {
	f := newPropagationFixture(500)
	f.activities.activities["a1"] = assignmentActivity("a1", "c1", 0, 0)
	f.profiles.profiles = []models.ProfileDetail{userProfile("p1", "u1", 25)}
	f.users.enrolled["c1"] = []string{"u1"}

	count, err := f.service.ApplyToActivity(context.Background(), "a1", false, "admin")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, f.assigns.writes)
	assert.Empty(t, f.history.entries)
}

func TestApplyToActivityDisabledWritesNothing(t *testing.T) {
	f := newPropagationFixture(500)
	f.activities.activities["a1"] = quizActivity("a1", "c1", 3600)
	f.statuses.statuses["a1"] = &models.ActivityStatus{ActivityID: "a1", Disabled: true}
	f.profiles.profiles = []models.ProfileDetail{userProfile("p1", "u1", 25)}
	f.users.enrolled["c1"] = []string{"u1"}

	count, err := f.service.ApplyToActivity(context.Background(), "a1", true, "admin")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, f.quizzes.writes)
	assert.Empty(t, f.history.entries)
}

func TestApplyToActivityPreservesExistingOverride(t *testing.T) {
	f := newPropagationFixture(500)
	f.activities.activities["a1"] = quizActivity("a1", "c1", 3600)
	f.profiles.profiles = []models.ProfileDetail{userProfile("p1", "u1", 25)}
	f.users.enrolled["c1"] = []string{"u1"}
	f.quizzes.existing = map[string]*models.QuizOverride{
		quizKey("a1", "u1"): {ID: "q1", ActivityID: "a1", UserID: "u1", TimeLimit: 7200},
	}

	count, err := f.service.ApplyToActivity(context.Background(), "a1", false, "admin")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, f.quizzes.writes)
	assert.Empty(t, f.history.entries)
	assert.Equal(t, int64(7200), f.quizzes.existing[quizKey("a1", "u1")].TimeLimit)
}

func TestApplyToActivityOverwriteReplacesKeepingID(t *testing.T) {
	f := newPropagationFixture(500)
	f.activities.activities["a1"] = quizActivity("a1", "c1", 3600)
	f.profiles.profiles = []models.ProfileDetail{userProfile("p1", "u1", 25)}
	f.users.enrolled["c1"] = []string{"u1"}
	f.quizzes.existing = map[string]*models.QuizOverride{
		quizKey("a1", "u1"): {ID: "q1", ActivityID: "a1", UserID: "u1", TimeLimit: 7200},
	}

	count, err := f.service.ApplyToActivity(context.Background(), "a1", true, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, f.quizzes.writes, 1)
	assert.Equal(t, "q1", f.quizzes.writes[0].ID)
	assert.Equal(t, int64(4500), f.quizzes.writes[0].TimeLimit)
	require.Len(t, f.history.entries, 1)
}

func TestApplyToActivityIsIdempotent(t *testing.T) {
	f := newPropagationFixture(500)
	f.activities.activities["a1"] = quizActivity("a1", "c1", 3600)
	f.profiles.profiles = []models.ProfileDetail{userProfile("p1", "u1", 25)}
	f.users.enrolled["c1"] = []string{"u1"}

	first, err := f.service.ApplyToActivity(context.Background(), "a1", false, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	// Second run finds the write from the first and leaves it alone.
	second, err := f.service.ApplyToActivity(context.Background(), "a1", false, "admin")
	require.NoError(t, err)
	assert.Zero(t, second)
	assert.Len(t, f.quizzes.writes, 1)
	assert.Len(t, f.history.entries, 1)
}

func TestApplyToActivitySinkFailureSkipsUserOnly(t *testing.T) {
	f := newPropagationFixture(500)
	f.activities.activities["a1"] = quizActivity("a1", "c1", 3600)
	f.profiles.profiles = []models.ProfileDetail{
		userProfile("p1", "u1", 25),
		userProfile("p2", "u2", 25),
	}
	f.users.enrolled["c1"] = []string{"u1", "u2"}
	f.quizzes.failFor = "u1"

	count, err := f.service.ApplyToActivity(context.Background(), "a1", false, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, f.quizzes.writes, 1)
	assert.Equal(t, "u2", f.quizzes.writes[0].UserID)
	require.Len(t, f.history.entries, 1)
	assert.Equal(t, "u2", f.history.entries[0].UserID)
}

func TestApplyToActivityPagesThroughEnrollments(t *testing.T) {
	f := newPropagationFixture(2)
	f.activities.activities["a1"] = quizActivity("a1", "c1", 3600)
	var users []string
	for i := 0; i < 5; i++ {
		userID := fmt.Sprintf("u%d", i)
		users = append(users, userID)
		f.profiles.profiles = append(f.profiles.profiles, userProfile(fmt.Sprintf("p%d", i), userID, 25))
	}
	f.users.enrolled["c1"] = users

	count, err := f.service.ApplyToActivity(context.Background(), "a1", false, "admin")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Len(t, f.quizzes.writes, 5)
}

func TestApplyToActivityUnknownActivity(t *testing.T) {
	f := newPropagationFixture(500)
	_, err := f.service.ApplyToActivity(context.Background(), "missing", false, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplyToCourseSumsPerKind(t *testing.T) {
	f := newPropagationFixture(500)
	due := int64(1_700_000_000)
	f.courses.courses["c1"] = &models.Course{ID: "c1"}
	f.activities.byCourse["c1"] = []models.Activity{
		*quizActivity("a1", "c1", 3600),
		*assignmentActivity("a2", "c1", due, due-864_000),
		{ID: "a3", Kind: "forum", CourseID: "c1"},
	}
	f.profiles.profiles = []models.ProfileDetail{userProfile("p1", "u1", 25)}
	f.users.enrolled["c1"] = []string{"u1"}

	stats, err := f.service.ApplyToCourse(context.Background(), "c1", false, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Quizzes)
	assert.Equal(t, 1, stats.Assignments)
}

func TestApplyToCourseUnknownCourse(t *testing.T) {
	f := newPropagationFixture(500)
	_, err := f.service.ApplyToCourse(context.Background(), "missing", false, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplyToCategoryAggregatesCoursesOnce(t *testing.T) {
	f := newPropagationFixture(500)
	f.courses.descendants["cat1"] = []string{"cat1", "cat2"}
	f.courses.courses["c1"] = &models.Course{ID: "c1"}
	f.courses.courses["c2"] = &models.Course{ID: "c2"}
	f.courses.byCategory["cat1"] = []models.Course{{ID: "c1"}}
	f.courses.byCategory["cat2"] = []models.Course{{ID: "c2"}}
	f.activities.byCourse["c1"] = []models.Activity{
		*quizActivity("a1", "c1", 3600),
		*quizActivity("a2", "c1", 1800),
	}
	f.profiles.profiles = []models.ProfileDetail{userProfile("p1", "u1", 25)}
	f.users.enrolled["c1"] = []string{"u1"}

	stats, err := f.service.ApplyToCategory(context.Background(), "cat1", false, "admin")
	require.NoError(t, err)
	// Two quiz writes in c1, none in c2: only one course counts.
	assert.Equal(t, 1, stats.Courses)
	assert.Equal(t, 2, stats.Quizzes)
	assert.Zero(t, stats.Assignments)
}

func TestApplyToCategoryUnknownCategory(t *testing.T) {
	f := newPropagationFixture(500)
	_, err := f.service.ApplyToCategory(context.Background(), "missing", false, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplyAllSweepsCoursesWithProfiles(t *testing.T) {
	f := newPropagationFixture(500)
	f.profiles.courseIDs = []string{"c1"}
	f.courses.courses["c1"] = &models.Course{ID: "c1"}
	f.activities.byCourse["c1"] = []models.Activity{*quizActivity("a1", "c1", 3600)}
	f.profiles.profiles = []models.ProfileDetail{userProfile("p1", "u1", 25)}
	f.users.enrolled["c1"] = []string{"u1"}

	stats, err := f.service.ApplyAll(context.Background(), false, "system")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Courses)
	assert.Equal(t, 1, stats.Quizzes)
}

func TestIsEligibleUnsupportedKind(t *testing.T) {
	f := newPropagationFixture(500)
	eligible, err := f.service.IsEligible(context.Background(), &models.Activity{ID: "a1", Kind: "forum"})
	require.NoError(t, err)
	assert.False(t, eligible)
}

func TestIsEligibleMissingStatusRowMeansEnabled(t *testing.T) {
	f := newPropagationFixture(500)
	eligible, err := f.service.IsEligible(context.Background(), quizActivity("a1", "c1", 3600))
	require.NoError(t, err)
	assert.True(t, eligible)
}
