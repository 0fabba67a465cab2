package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/accommodations-api/internal/models"
)

// ProfileRepository manages persistence for accommodation profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileDetailColumns = `p.id, p.user_id, p.type_id, p.extension, p.course_id, p.category_id,
        p.start_date, p.end_date, p.notes, p.created_at, p.updated_at, p.modified_by,
        t.name AS type_name, t.default_extension AS type_default_extension`

// List returns profiles matching the provided filters.
func (r *ProfileRepository) List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileDetail, int, error) {
	base := "FROM accommodation_profiles p JOIN accommodation_types t ON t.id = p.type_id"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("p.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.TypeID != "" {
		conditions = append(conditions, fmt.Sprintf("p.type_id = $%d", len(args)+1))
		args = append(args, filter.TypeID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("p.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", len(args)+1))
		args = append(args, filter.CategoryID)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY p.created_at DESC LIMIT %d OFFSET %d",
		profileDetailColumns, base, size, offset)

	var profiles []models.ProfileDetail
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}
	return profiles, total, nil
}

// FindByID fetches a profile with its type joined.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.ProfileDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM accommodation_profiles p
        JOIN accommodation_types t ON t.id = p.type_id WHERE p.id = $1`, profileDetailColumns)
	var detail models.ProfileDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListApplicableForCourse returns every profile that can reach the given
// course: global scope, matching course scope, or a category scope covering
// the course or one of its ancestor categories.
func (r *ProfileRepository) ListApplicableForCourse(ctx context.Context, courseID string, categoryIDs []string) ([]models.ProfileDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM accommodation_profiles p
        JOIN accommodation_types t ON t.id = p.type_id
        WHERE (p.course_id IS NULL AND p.category_id IS NULL)
           OR p.course_id = $1`, profileDetailColumns)
	args := []interface{}{courseID}

	if len(categoryIDs) > 0 {
		placeholders := make([]string, len(categoryIDs))
		for i, id := range categoryIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		query += fmt.Sprintf(" OR p.category_id IN (%s)", strings.Join(placeholders, ", "))
	}
	query += " ORDER BY p.created_at ASC"

	var profiles []models.ProfileDetail
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("list applicable profiles: %w", err)
	}
	return profiles, nil
}

// CountByType returns the number of profiles referencing an accommodation type.
func (r *ProfileRepository) CountByType(ctx context.Context, typeID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM accommodation_profiles WHERE type_id = $1", typeID); err != nil {
		return 0, fmt.Errorf("count profiles by type: %w", err)
	}
	return total, nil
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.AccommodationProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO accommodation_profiles (id, user_id, type_id, extension, course_id, category_id,
        start_date, end_date, notes, created_at, updated_at, modified_by)
        VALUES (:id, :user_id, :type_id, :extension, :course_id, :category_id,
        :start_date, :end_date, :notes, :created_at, :updated_at, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Update modifies an existing profile.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.AccommodationProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE accommodation_profiles SET user_id = :user_id, type_id = :type_id,
        extension = :extension, course_id = :course_id, category_id = :category_id,
        start_date = :start_date, end_date = :end_date, notes = :notes,
        updated_at = :updated_at, modified_by = :modified_by WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// Delete removes a profile and its activity overrides in one transaction.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete profile: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM accommodation_overrides WHERE profile_id = $1", id); err != nil {
		return fmt.Errorf("delete profile overrides: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM accommodation_profiles WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete profile: %w", err)
	}
	return nil
}

// CourseIDsWithProfiles returns distinct course IDs reachable by at least one
// profile: course-scoped, global, or category-scoped over any category in the
// course's ancestor chain. Used by the auto-apply sweep.
func (r *ProfileRepository) CourseIDsWithProfiles(ctx context.Context) ([]string, error) {
	const query = `WITH RECURSIVE course_categories AS (
            SELECT c.id AS course_id, cat.id AS category_id, cat.parent_id
            FROM courses c
            JOIN categories cat ON cat.id = c.category_id
            UNION ALL
            SELECT cc.course_id, cat.id, cat.parent_id
            FROM categories cat
            JOIN course_categories cc ON cc.parent_id = cat.id
        )
        SELECT DISTINCT c.id FROM courses c
        LEFT JOIN course_categories cc ON cc.course_id = c.id
        JOIN accommodation_profiles p
          ON p.course_id = c.id
          OR (p.course_id IS NULL AND p.category_id IS NULL)
          OR p.category_id = cc.category_id
        ORDER BY c.id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list courses with profiles: %w", err)
	}
	return ids, nil
}
