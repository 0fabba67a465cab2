package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/accommodations-api/internal/models"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
)

type profileRepository interface {
	List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ProfileDetail, error)
	Create(ctx context.Context, profile *models.AccommodationProfile) error
	Update(ctx context.Context, profile *models.AccommodationProfile) error
	Delete(ctx context.Context, id string) error
}

type profileUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type profileTypeReader interface {
	FindByID(ctx context.Context, id string) (*models.AccommodationType, error)
}

type profilePropagator interface {
	ApplyToCourse(ctx context.Context, courseID string, allowOverwrite bool, actor string) (*CourseApplyStats, error)
	ApplyToCategory(ctx context.Context, categoryID string, allowOverwrite bool, actor string) (*CategoryApplyStats, error)
}

// CreateProfileRequest holds payload for granting an accommodation.
type CreateProfileRequest struct {
	UserID     string     `json:"user_id" validate:"required"`
	TypeID     string     `json:"type_id" validate:"required"`
	Extension  int        `json:"extension" validate:"gte=0"`
	CourseID   *string    `json:"course_id"`
	CategoryID *string    `json:"category_id"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Notes      string     `json:"notes"`
}

// UpdateProfileRequest holds payload for editing an accommodation grant.
type UpdateProfileRequest struct {
	TypeID     string     `json:"type_id" validate:"required"`
	Extension  int        `json:"extension" validate:"gte=0"`
	CourseID   *string    `json:"course_id"`
	CategoryID *string    `json:"category_id"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Notes      string     `json:"notes"`
}

// BulkProfileRequest selects profiles for a bulk delete or apply.
type BulkProfileRequest struct {
	Action string   `json:"action" validate:"required,oneof=delete apply"`
	IDs    []string `json:"ids" validate:"required,min=1"`
}

// BulkProfileResult reports the outcome of a bulk action.
type BulkProfileResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// ProfileService handles accommodation profile use-cases.
type ProfileService struct {
	repo       profileRepository
	users      profileUserReader
	types      profileTypeReader
	propagator profilePropagator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewProfileService constructs the profile service.
func NewProfileService(repo profileRepository, users profileUserReader, types profileTypeReader, propagator profilePropagator, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, users: users, types: types, propagator: propagator, validator: validate, logger: logger}
}

func validateScopeAndDates(courseID, categoryID *string, startDate, endDate *time.Time) error {
	if courseID != nil && categoryID != nil {
		return appErrors.Clone(appErrors.ErrValidation, "profile scope must be global, one course, or one category")
	}
	if startDate != nil && endDate != nil && startDate.After(*endDate) {
		return appErrors.Clone(appErrors.ErrValidation, "start date must not be after end date")
	}
	return nil
}

// List returns profiles and pagination metadata.
func (s *ProfileService) List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileDetail, *models.Pagination, error) {
	profiles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profiles")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return profiles, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one profile with its type joined.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.ProfileDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return detail, nil
}

// Create grants a new accommodation profile.
func (s *ProfileService) Create(ctx context.Context, req CreateProfileRequest, actor string) (*models.ProfileDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if err := validateScopeAndDates(req.CourseID, req.CategoryID, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if _, err := s.types.FindByID(ctx, req.TypeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "accommodation type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load accommodation type")
	}

	profile := &models.AccommodationProfile{
		UserID:     req.UserID,
		TypeID:     req.TypeID,
		Extension:  req.Extension,
		CourseID:   req.CourseID,
		CategoryID: req.CategoryID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Notes:      req.Notes,
		ModifiedBy: actor,
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create profile")
	}
	return s.Get(ctx, profile.ID)
}

// Update edits an existing accommodation profile.
func (s *ProfileService) Update(ctx context.Context, id string, req UpdateProfileRequest, actor string) (*models.ProfileDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if err := validateScopeAndDates(req.CourseID, req.CategoryID, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	if _, err := s.types.FindByID(ctx, req.TypeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "accommodation type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load accommodation type")
	}

	profile := detail.AccommodationProfile
	profile.TypeID = req.TypeID
	profile.Extension = req.Extension
	profile.CourseID = req.CourseID
	profile.CategoryID = req.CategoryID
	profile.StartDate = req.StartDate
	profile.EndDate = req.EndDate
	profile.Notes = req.Notes
	profile.ModifiedBy = actor
	if err := s.repo.Update(ctx, &profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return s.Get(ctx, id)
}

// Delete removes a profile together with its activity overrides.
func (s *ProfileService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete profile")
	}
	return nil
}

// Bulk performs a delete or an apply across the selected profiles. Individual
// failures are logged and skipped; the action completes for the rest.
func (s *ProfileService) Bulk(ctx context.Context, req BulkProfileRequest, actor string) (*BulkProfileResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}

	switch req.Action {
	case "delete":
		count := 0
		for _, id := range req.IDs {
			if err := s.Delete(ctx, id); err != nil {
				s.logger.Warn("bulk delete skipped profile", zap.String("profile_id", id), zap.Error(err))
				continue
			}
			count++
		}
		return &BulkProfileResult{
			Success: true,
			Message: fmt.Sprintf("deleted %d profiles", count),
			Count:   count,
		}, nil

	case "apply":
		count := 0
		quizzes := 0
		assignments := 0
		for _, id := range req.IDs {
			detail, err := s.repo.FindByID(ctx, id)
			if err != nil {
				s.logger.Warn("bulk apply skipped profile", zap.String("profile_id", id), zap.Error(err))
				continue
			}
			switch {
			case detail.CourseID != nil:
				stats, err := s.propagator.ApplyToCourse(ctx, *detail.CourseID, true, actor)
				if err != nil {
					s.logger.Warn("bulk apply failed for course", zap.String("course_id", *detail.CourseID), zap.Error(err))
					continue
				}
				quizzes += stats.Quizzes
				assignments += stats.Assignments
				count++
			case detail.CategoryID != nil:
				stats, err := s.propagator.ApplyToCategory(ctx, *detail.CategoryID, true, actor)
				if err != nil {
					s.logger.Warn("bulk apply failed for category", zap.String("category_id", *detail.CategoryID), zap.Error(err))
					continue
				}
				quizzes += stats.Quizzes
				assignments += stats.Assignments
				count++
			}
		}
		return &BulkProfileResult{
			Success: true,
			Message: fmt.Sprintf("applied %d profiles (%d quizzes, %d assignments)", count, quizzes, assignments),
			Count:   count,
		}, nil
	}

	return nil, appErrors.Clone(appErrors.ErrValidation, "unknown bulk action")
}
