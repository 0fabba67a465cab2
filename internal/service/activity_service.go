package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/campusops/accommodations-api/internal/models"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
)

type activityStatusRepository interface {
	Find(ctx context.Context, activityID string) (*models.ActivityStatus, error)
	Upsert(ctx context.Context, status *models.ActivityStatus) error
}

type activityReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

// ActivityService manages the per-activity accommodation opt-out flag.
type ActivityService struct {
	statuses   activityStatusRepository
	activities activityReader
	logger     *zap.Logger
}

// NewActivityService constructs the activity service.
func NewActivityService(statuses activityStatusRepository, activities activityReader, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{statuses: statuses, activities: activities, logger: logger}
}

// GetStatus returns the status row for an activity, synthesising an enabled
// row when none is stored.
func (s *ActivityService) GetStatus(ctx context.Context, activityID string) (*models.ActivityStatus, error) {
	if _, err := s.activities.FindByID(ctx, activityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	status, err := s.statuses.Find(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ActivityStatus{ActivityID: activityID, Disabled: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity status")
	}
	return status, nil
}

// SetDisabled upserts the opt-out flag. Writing the same value twice is a
// redundant but successful write.
func (s *ActivityService) SetDisabled(ctx context.Context, activityID string, disabled bool, actor string) (*models.ActivityStatus, error) {
	if _, err := s.activities.FindByID(ctx, activityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}

	status := &models.ActivityStatus{ActivityID: activityID, Disabled: disabled, ModifiedBy: actor}
	if existing, err := s.statuses.Find(ctx, activityID); err == nil {
		status.CreatedAt = existing.CreatedAt
	}
	if err := s.statuses.Upsert(ctx, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity status")
	}
	return status, nil
}
