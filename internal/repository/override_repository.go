package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/accommodations-api/internal/models"
)

// OverrideRepository manages per-activity accommodation overrides.
type OverrideRepository struct {
	db *sqlx.DB
}

// NewOverrideRepository constructs an OverrideRepository.
func NewOverrideRepository(db *sqlx.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

const overrideColumns = `id, profile_id, activity_id, extension, notes, created_at, updated_at, modified_by`

// FindByID fetches an override by ID.
func (r *OverrideRepository) FindByID(ctx context.Context, id string) (*models.AccommodationOverride, error) {
	query := fmt.Sprintf("SELECT %s FROM accommodation_overrides WHERE id = $1", overrideColumns)
	var o models.AccommodationOverride
	if err := r.db.GetContext(ctx, &o, query, id); err != nil {
		return nil, err
	}
	return &o, nil
}

// FindByProfileAndActivity fetches the single override for a (profile, activity)
// pair, or sql.ErrNoRows.
func (r *OverrideRepository) FindByProfileAndActivity(ctx context.Context, profileID, activityID string) (*models.AccommodationOverride, error) {
	query := fmt.Sprintf("SELECT %s FROM accommodation_overrides WHERE profile_id = $1 AND activity_id = $2", overrideColumns)
	var o models.AccommodationOverride
	if err := r.db.GetContext(ctx, &o, query, profileID, activityID); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByProfile returns all overrides belonging to a profile.
func (r *OverrideRepository) ListByProfile(ctx context.Context, profileID string) ([]models.AccommodationOverride, error) {
	query := fmt.Sprintf("SELECT %s FROM accommodation_overrides WHERE profile_id = $1 ORDER BY created_at ASC", overrideColumns)
	var overrides []models.AccommodationOverride
	if err := r.db.SelectContext(ctx, &overrides, query, profileID); err != nil {
		return nil, fmt.Errorf("list overrides by profile: %w", err)
	}
	return overrides, nil
}

// ListByActivity returns all overrides targeting one activity.
func (r *OverrideRepository) ListByActivity(ctx context.Context, activityID string) ([]models.AccommodationOverride, error) {
	query := fmt.Sprintf("SELECT %s FROM accommodation_overrides WHERE activity_id = $1 ORDER BY created_at ASC", overrideColumns)
	var overrides []models.AccommodationOverride
	if err := r.db.SelectContext(ctx, &overrides, query, activityID); err != nil {
		return nil, fmt.Errorf("list overrides by activity: %w", err)
	}
	return overrides, nil
}

// Create inserts a new override.
func (r *OverrideRepository) Create(ctx context.Context, o *models.AccommodationOverride) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	const query = `INSERT INTO accommodation_overrides (id, profile_id, activity_id, extension, notes, created_at, updated_at, modified_by)
        VALUES (:id, :profile_id, :activity_id, :extension, :notes, :created_at, :updated_at, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, o); err != nil {
		return fmt.Errorf("create override: %w", err)
	}
	return nil
}

// Update modifies an existing override.
func (r *OverrideRepository) Update(ctx context.Context, o *models.AccommodationOverride) error {
	o.UpdatedAt = time.Now().UTC()
	const query = `UPDATE accommodation_overrides SET extension = :extension, notes = :notes,
        updated_at = :updated_at, modified_by = :modified_by WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, o); err != nil {
		return fmt.Errorf("update override: %w", err)
	}
	return nil
}

// Delete removes an override.
func (r *OverrideRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM accommodation_overrides WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	return nil
}
