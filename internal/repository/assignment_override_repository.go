package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/accommodations-api/internal/models"
)

// AssignmentOverrideRepository is the platform assignment override sink:
// per-user due date exceptions the propagation engine writes into.
type AssignmentOverrideRepository struct {
	db *sqlx.DB
}

// NewAssignmentOverrideRepository constructs an AssignmentOverrideRepository.
func NewAssignmentOverrideRepository(db *sqlx.DB) *AssignmentOverrideRepository {
	return &AssignmentOverrideRepository{db: db}
}

// Find fetches the override for a (activity, user) pair, or sql.ErrNoRows.
func (r *AssignmentOverrideRepository) Find(ctx context.Context, activityID, userID string) (*models.AssignmentOverride, error) {
	const query = `SELECT id, activity_id, user_id, due_date FROM assignment_overrides
        WHERE activity_id = $1 AND user_id = $2`
	var o models.AssignmentOverride
	if err := r.db.GetContext(ctx, &o, query, activityID, userID); err != nil {
		return nil, err
	}
	return &o, nil
}

// Upsert writes the per-user due date, replacing any existing value.
func (r *AssignmentOverrideRepository) Upsert(ctx context.Context, o *models.AssignmentOverride) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	const query = `INSERT INTO assignment_overrides (id, activity_id, user_id, due_date)
        VALUES (:id, :activity_id, :user_id, :due_date)
        ON CONFLICT (activity_id, user_id) DO UPDATE SET due_date = EXCLUDED.due_date`
	if _, err := r.db.NamedExecContext(ctx, query, o); err != nil {
		return fmt.Errorf("upsert assignment override: %w", err)
	}
	return nil
}
