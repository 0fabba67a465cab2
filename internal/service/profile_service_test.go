package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/accommodations-api/internal/models"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
)

type profileStoreStub struct {
	profiles map[string]models.ProfileDetail
	deleted  []string
}

func (s *profileStoreStub) List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileDetail, int, error) {
	var out []models.ProfileDetail
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (s *profileStoreStub) FindByID(ctx context.Context, id string) (*models.ProfileDetail, error) {
	if p, ok := s.profiles[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *profileStoreStub) Create(ctx context.Context, profile *models.AccommodationProfile) error {
	if s.profiles == nil {
		s.profiles = make(map[string]models.ProfileDetail)
	}
	if profile.ID == "" {
		profile.ID = "p-new"
	}
	s.profiles[profile.ID] = models.ProfileDetail{AccommodationProfile: *profile}
	return nil
}

func (s *profileStoreStub) Update(ctx context.Context, profile *models.AccommodationProfile) error {
	s.profiles[profile.ID] = models.ProfileDetail{AccommodationProfile: *profile}
	return nil
}

func (s *profileStoreStub) Delete(ctx context.Context, id string) error {
	delete(s.profiles, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type userReaderStub struct {
	ids map[string]bool
}

func (s *userReaderStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.ids[id] {
		return &models.User{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

type typeReaderStub struct {
	ids map[string]bool
}

func (s *typeReaderStub) FindByID(ctx context.Context, id string) (*models.AccommodationType, error) {
	if s.ids[id] {
		return &models.AccommodationType{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

type propagatorStub struct {
	courseCalls   []string
	categoryCalls []string
	overwrites    []bool
	courseStats   CourseApplyStats
	categoryStats CategoryApplyStats
}

func (s *propagatorStub) ApplyToCourse(ctx context.Context, courseID string, allowOverwrite bool, actor string) (*CourseApplyStats, error) {
	s.courseCalls = append(s.courseCalls, courseID)
	s.overwrites = append(s.overwrites, allowOverwrite)
	stats := s.courseStats
	return &stats, nil
}

func (s *propagatorStub) ApplyToCategory(ctx context.Context, categoryID string, allowOverwrite bool, actor string) (*CategoryApplyStats, error) {
	s.categoryCalls = append(s.categoryCalls, categoryID)
	s.overwrites = append(s.overwrites, allowOverwrite)
	stats := s.categoryStats
	return &stats, nil
}

func newProfileServiceFixture(store *profileStoreStub, propagator *propagatorStub) *ProfileService {
	if store == nil {
		store = &profileStoreStub{}
	}
	if propagator == nil {
		propagator = &propagatorStub{}
	}
	users := &userReaderStub{ids: map[string]bool{"u1": true}}
	types := &typeReaderStub{ids: map[string]bool{"t1": true}}
	return NewProfileService(store, users, types, propagator, validator.New(), nil)
}

func TestProfileServiceCreate(t *testing.T) {
	store := &profileStoreStub{}
	svc := newProfileServiceFixture(store, nil)

	detail, err := svc.Create(context.Background(), CreateProfileRequest{UserID: "u1", TypeID: "t1", Extension: 25}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "u1", detail.UserID)
	assert.Equal(t, 25, detail.Extension)
	assert.Equal(t, "admin", detail.ModifiedBy)
}

func TestProfileServiceCreateRejectsDualScope(t *testing.T) {
	svc := newProfileServiceFixture(nil, nil)
	courseID := "c1"
	categoryID := "cat1"

	_, err := svc.Create(context.Background(), CreateProfileRequest{
		UserID: "u1", TypeID: "t1", CourseID: &courseID, CategoryID: &categoryID,
	}, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProfileServiceCreateRejectsInvertedDates(t *testing.T) {
	svc := newProfileServiceFixture(nil, nil)
	start := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(context.Background(), CreateProfileRequest{
		UserID: "u1", TypeID: "t1", StartDate: &start, EndDate: &end,
	}, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProfileServiceCreateUnknownUser(t *testing.T) {
	svc := newProfileServiceFixture(nil, nil)
	_, err := svc.Create(context.Background(), CreateProfileRequest{UserID: "ghost", TypeID: "t1"}, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProfileServiceBulkDeleteSkipsMissing(t *testing.T) {
	store := &profileStoreStub{profiles: map[string]models.ProfileDetail{
		"p1": {AccommodationProfile: models.AccommodationProfile{ID: "p1", UserID: "u1", TypeID: "t1"}},
		"p2": {AccommodationProfile: models.AccommodationProfile{ID: "p2", UserID: "u1", TypeID: "t1"}},
	}}
	svc := newProfileServiceFixture(store, nil)

	result, err := svc.Bulk(context.Background(), BulkProfileRequest{Action: "delete", IDs: []string{"p1", "ghost", "p2"}}, "admin")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "deleted 2 profiles", result.Message)
	assert.Empty(t, store.profiles)
}

func TestProfileServiceBulkApplyRoutesByScope(t *testing.T) {
	courseID := "c1"
	categoryID := "cat1"
	store := &profileStoreStub{profiles: map[string]models.ProfileDetail{
		"p1": {AccommodationProfile: models.AccommodationProfile{ID: "p1", UserID: "u1", TypeID: "t1", CourseID: &courseID}},
		"p2": {AccommodationProfile: models.AccommodationProfile{ID: "p2", UserID: "u1", TypeID: "t1", CategoryID: &categoryID}},
	}}
	propagator := &propagatorStub{
		courseStats:   CourseApplyStats{Quizzes: 2, Assignments: 1},
		categoryStats: CategoryApplyStats{Courses: 1, Quizzes: 3},
	}
	svc := newProfileServiceFixture(store, propagator)

	result, err := svc.Bulk(context.Background(), BulkProfileRequest{Action: "apply", IDs: []string{"p1", "p2"}}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "applied 2 profiles (5 quizzes, 1 assignments)", result.Message)
	assert.Equal(t, []string{"c1"}, propagator.courseCalls)
	assert.Equal(t, []string{"cat1"}, propagator.categoryCalls)
	for _, overwrite := range propagator.overwrites {
		assert.True(t, overwrite)
	}
}

func TestProfileServiceBulkRejectsUnknownAction(t *testing.T) {
	svc := newProfileServiceFixture(nil, nil)
	_, err := svc.Bulk(context.Background(), BulkProfileRequest{Action: "archive", IDs: []string{"p1"}}, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProfileServiceUpdateSwapsScope(t *testing.T) {
	courseID := "c1"
	store := &profileStoreStub{profiles: map[string]models.ProfileDetail{
		"p1": {AccommodationProfile: models.AccommodationProfile{ID: "p1", UserID: "u1", TypeID: "t1", CourseID: &courseID}},
	}}
	svc := newProfileServiceFixture(store, nil)
	categoryID := "cat1"

	detail, err := svc.Update(context.Background(), "p1", UpdateProfileRequest{
		TypeID: "t1", Extension: 30, CategoryID: &categoryID,
	}, "admin")
	require.NoError(t, err)
	assert.Nil(t, detail.CourseID)
	require.NotNil(t, detail.CategoryID)
	assert.Equal(t, "cat1", *detail.CategoryID)
	assert.Equal(t, 30, detail.Extension)
}
