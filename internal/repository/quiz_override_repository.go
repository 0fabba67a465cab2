package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/accommodations-api/internal/models"
)

// QuizOverrideRepository is the platform quiz override sink: per-user time
// limit exceptions the propagation engine writes into.
type QuizOverrideRepository struct {
	db *sqlx.DB
}

// NewQuizOverrideRepository constructs a QuizOverrideRepository.
func NewQuizOverrideRepository(db *sqlx.DB) *QuizOverrideRepository {
	return &QuizOverrideRepository{db: db}
}

// Find fetches the override for a (activity, user) pair, or sql.ErrNoRows.
func (r *QuizOverrideRepository) Find(ctx context.Context, activityID, userID string) (*models.QuizOverride, error) {
	const query = `SELECT id, activity_id, user_id, time_limit FROM quiz_overrides
        WHERE activity_id = $1 AND user_id = $2`
	var o models.QuizOverride
	if err := r.db.GetContext(ctx, &o, query, activityID, userID); err != nil {
		return nil, err
	}
	return &o, nil
}

// Upsert writes the per-user time limit, replacing any existing value.
func (r *QuizOverrideRepository) Upsert(ctx context.Context, o *models.QuizOverride) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	const query = `INSERT INTO quiz_overrides (id, activity_id, user_id, time_limit)
        VALUES (:id, :activity_id, :user_id, :time_limit)
        ON CONFLICT (activity_id, user_id) DO UPDATE SET time_limit = EXCLUDED.time_limit`
	if _, err := r.db.NamedExecContext(ctx, query, o); err != nil {
		return fmt.Errorf("upsert quiz override: %w", err)
	}
	return nil
}
