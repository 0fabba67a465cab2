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

type typeRepository interface {
	List(ctx context.Context) ([]models.AccommodationType, error)
	FindByID(ctx context.Context, id string) (*models.AccommodationType, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, t *models.AccommodationType) error
	Update(ctx context.Context, t *models.AccommodationType) error
	Delete(ctx context.Context, id string) error
}

type typeProfileCounter interface {
	CountByType(ctx context.Context, typeID string) (int, error)
}

// CreateTypeRequest holds payload for creating accommodation types.
type CreateTypeRequest struct {
	Name             string `json:"name" validate:"required"`
	Description      string `json:"description"`
	DefaultExtension int    `json:"default_extension" validate:"gte=0"`
}

// UpdateTypeRequest holds payload for updating accommodation types.
type UpdateTypeRequest struct {
	Name             string `json:"name" validate:"required"`
	Description      string `json:"description"`
	DefaultExtension int    `json:"default_extension" validate:"gte=0"`
}

// TypeService manages the accommodation type catalog.
type TypeService struct {
	repo      typeRepository
	profiles  typeProfileCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTypeService constructs the type service.
func NewTypeService(repo typeRepository, profiles typeProfileCounter, validate *validator.Validate, logger *zap.Logger) *TypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeService{repo: repo, profiles: profiles, validator: validate, logger: logger}
}

// List returns the full catalog.
func (s *TypeService) List(ctx context.Context) ([]models.AccommodationType, error) {
	types, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list accommodation types")
	}
	return types, nil
}

// Get returns one accommodation type.
func (s *TypeService) Get(ctx context.Context, id string) (*models.AccommodationType, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "accommodation type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load accommodation type")
	}
	return t, nil
}

// Create registers a new accommodation type.
func (s *TypeService) Create(ctx context.Context, req CreateTypeRequest, actor string) (*models.AccommodationType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid accommodation type payload")
	}
	exists, err := s.repo.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate type name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "accommodation type name already used")
	}
	t := &models.AccommodationType{
		Name:             req.Name,
		Description:      req.Description,
		DefaultExtension: req.DefaultExtension,
		ModifiedBy:       actor,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create accommodation type")
	}
	return t, nil
}

// Update modifies an existing accommodation type.
func (s *TypeService) Update(ctx context.Context, id string, req UpdateTypeRequest, actor string) (*models.AccommodationType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid accommodation type payload")
	}
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "accommodation type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load accommodation type")
	}
	exists, err := s.repo.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate type name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "accommodation type name already used")
	}
	t.Name = req.Name
	t.Description = req.Description
	t.DefaultExtension = req.DefaultExtension
	t.ModifiedBy = actor
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update accommodation type")
	}
	return t, nil
}

// Delete removes a type. Refused while any profile references it.
func (s *TypeService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "accommodation type not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load accommodation type")
	}
	inUse, err := s.profiles.CountByType(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count referencing profiles")
	}
	if inUse > 0 {
		return appErrors.ErrTypeInUse
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete accommodation type")
	}
	return nil
}

// SeedDefaults inserts the stock catalog entries when the table is empty.
func (s *TypeService) SeedDefaults(ctx context.Context, actor string) error {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count accommodation types")
	}
	if total > 0 {
		return nil
	}

	defaults := []models.AccommodationType{
		{
			Name:             "Learning Disability",
			Description:      "Standard accommodation for students with learning disabilities.",
			DefaultExtension: 25,
			ModifiedBy:       actor,
		},
		{
			Name:             "Language Accommodation",
			Description:      "For students whose first language is not the language of instruction.",
			DefaultExtension: 15,
			ModifiedBy:       actor,
		},
	}
	for i := range defaults {
		if err := s.repo.Create(ctx, &defaults[i]); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed accommodation types")
		}
	}
	s.logger.Info("seeded default accommodation types", zap.Int("count", len(defaults)))
	return nil
}
