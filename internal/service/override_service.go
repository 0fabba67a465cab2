package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/accommodations-api/internal/models"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
)

type overrideRepository interface {
	FindByID(ctx context.Context, id string) (*models.AccommodationOverride, error)
	FindByProfileAndActivity(ctx context.Context, profileID, activityID string) (*models.AccommodationOverride, error)
	ListByProfile(ctx context.Context, profileID string) ([]models.AccommodationOverride, error)
	Create(ctx context.Context, o *models.AccommodationOverride) error
	Update(ctx context.Context, o *models.AccommodationOverride) error
	Delete(ctx context.Context, id string) error
}

type overrideProfileReader interface {
	FindByID(ctx context.Context, id string) (*models.ProfileDetail, error)
}

type overrideActivityReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

// SetOverrideRequest pins an activity-specific extension onto a profile.
type SetOverrideRequest struct {
	ProfileID  string `json:"profile_id" validate:"required"`
	ActivityID string `json:"activity_id" validate:"required"`
	Extension  int    `json:"extension" validate:"gte=0"`
	Notes      string `json:"notes"`
}

// OverrideService manages per-activity accommodation overrides.
type OverrideService struct {
	repo       overrideRepository
	profiles   overrideProfileReader
	activities overrideActivityReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewOverrideService constructs the override service.
func NewOverrideService(repo overrideRepository, profiles overrideProfileReader, activities overrideActivityReader, validate *validator.Validate, logger *zap.Logger) *OverrideService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverrideService{repo: repo, profiles: profiles, activities: activities, validator: validate, logger: logger}
}

// ListByProfile returns a profile's activity overrides.
func (s *OverrideService) ListByProfile(ctx context.Context, profileID string) ([]models.AccommodationOverride, error) {
	if _, err := s.profiles.FindByID(ctx, profileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	overrides, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overrides")
	}
	return overrides, nil
}

// Set creates or updates the single override for a (profile, activity) pair.
// The pair uniqueness is enforced here, read-modify-write.
func (s *OverrideService) Set(ctx context.Context, req SetOverrideRequest, actor string) (*models.AccommodationOverride, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	if _, err := s.profiles.FindByID(ctx, req.ProfileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	if _, err := s.activities.FindByID(ctx, req.ActivityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}

	existing, err := s.repo.FindByProfileAndActivity(ctx, req.ProfileID, req.ActivityID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing override")
	}

	if existing != nil {
		existing.Extension = req.Extension
		existing.Notes = req.Notes
		existing.ModifiedBy = actor
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update override")
		}
		return existing, nil
	}

	override := &models.AccommodationOverride{
		ProfileID:  req.ProfileID,
		ActivityID: req.ActivityID,
		Extension:  req.Extension,
		Notes:      req.Notes,
		ModifiedBy: actor,
	}
	if err := s.repo.Create(ctx, override); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create override")
	}
	return override, nil
}

// Delete removes an override.
func (s *OverrideService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "override not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete override")
	}
	return nil
}
