package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/accommodations-api/internal/models"
)

// ActivityRepository reads platform activity metadata (quizzes and assignments).
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `id, kind, course_id, instance_id, name, time_limit, due_date, allow_submissions_from`

// FindByID fetches one activity.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	query := fmt.Sprintf("SELECT %s FROM activities WHERE id = $1", activityColumns)
	var activity models.Activity
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListByCourse returns every activity in a course, both kinds, stable order.
func (r *ActivityRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Activity, error) {
	query := fmt.Sprintf("SELECT %s FROM activities WHERE course_id = $1 ORDER BY kind, id", activityColumns)
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, courseID); err != nil {
		return nil, fmt.Errorf("list activities by course: %w", err)
	}
	return activities, nil
}
