package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/accommodations-api/internal/models"
)

// CourseRepository reads the platform course and category tree.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID fetches one course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, category_id, short_name, full_name FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListByCategory returns courses directly attached to one category.
func (r *CourseRepository) ListByCategory(ctx context.Context, categoryID string) ([]models.Course, error) {
	const query = `SELECT id, category_id, short_name, full_name FROM courses WHERE category_id = $1 ORDER BY id`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, categoryID); err != nil {
		return nil, fmt.Errorf("list courses by category: %w", err)
	}
	return courses, nil
}

// AncestorCategoryIDs walks up the category tree from a course's category to
// the root, returning the course's own category first.
func (r *CourseRepository) AncestorCategoryIDs(ctx context.Context, courseID string) ([]string, error) {
	const query = `WITH RECURSIVE ancestors AS (
            SELECT cat.id, cat.parent_id, 0 AS depth
            FROM categories cat
            JOIN courses c ON c.category_id = cat.id
            WHERE c.id = $1
            UNION ALL
            SELECT cat.id, cat.parent_id, a.depth + 1
            FROM categories cat
            JOIN ancestors a ON a.parent_id = cat.id
        )
        SELECT id FROM ancestors ORDER BY depth`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list ancestor categories: %w", err)
	}
	return ids, nil
}

// DescendantCategoryIDs returns the category itself plus every descendant.
func (r *CourseRepository) DescendantCategoryIDs(ctx context.Context, categoryID string) ([]string, error) {
	const query = `WITH RECURSIVE descendants AS (
            SELECT id, parent_id, 0 AS depth FROM categories WHERE id = $1
            UNION ALL
            SELECT cat.id, cat.parent_id, d.depth + 1
            FROM categories cat
            JOIN descendants d ON cat.parent_id = d.id
        )
        SELECT id FROM descendants ORDER BY depth, id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, categoryID); err != nil {
		return nil, fmt.Errorf("list descendant categories: %w", err)
	}
	return ids, nil
}
