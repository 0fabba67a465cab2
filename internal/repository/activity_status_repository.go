package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/accommodations-api/internal/models"
)

// ActivityStatusRepository stores the per-activity accommodation opt-out flag.
type ActivityStatusRepository struct {
	db *sqlx.DB
}

// NewActivityStatusRepository constructs an ActivityStatusRepository.
func NewActivityStatusRepository(db *sqlx.DB) *ActivityStatusRepository {
	return &ActivityStatusRepository{db: db}
}

// Find fetches the status row for an activity, or sql.ErrNoRows when none
// exists (which callers treat as enabled).
func (r *ActivityStatusRepository) Find(ctx context.Context, activityID string) (*models.ActivityStatus, error) {
	const query = `SELECT activity_id, disabled, created_at, updated_at, modified_by
        FROM activity_accommodation_status WHERE activity_id = $1`
	var status models.ActivityStatus
	if err := r.db.GetContext(ctx, &status, query, activityID); err != nil {
		return nil, err
	}
	return &status, nil
}

// Upsert writes the status row for an activity. Redundant writes succeed.
func (r *ActivityStatusRepository) Upsert(ctx context.Context, status *models.ActivityStatus) error {
	now := time.Now().UTC()
	if status.CreatedAt.IsZero() {
		status.CreatedAt = now
	}
	status.UpdatedAt = now
	const query = `INSERT INTO activity_accommodation_status (activity_id, disabled, created_at, updated_at, modified_by)
        VALUES (:activity_id, :disabled, :created_at, :updated_at, :modified_by)
        ON CONFLICT (activity_id) DO UPDATE
        SET disabled = EXCLUDED.disabled, updated_at = EXCLUDED.updated_at, modified_by = EXCLUDED.modified_by`
	if _, err := r.db.NamedExecContext(ctx, query, status); err != nil {
		return fmt.Errorf("upsert activity status: %w", err)
	}
	return nil
}
