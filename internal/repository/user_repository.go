package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/accommodations-api/internal/models"
)

// UserRepository reads the platform user and enrollment directory.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, full_name, role, active, created_at, updated_at`

// FindByID fetches a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername fetches a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail fetches a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListEnrolledIDs returns one page of user IDs enrolled in a course. Paged so
// that propagation over large enrollments stays bounded in memory.
func (r *UserRepository) ListEnrolledIDs(ctx context.Context, courseID string, offset, limit int) ([]string, error) {
	const query = `SELECT user_id FROM enrollments WHERE course_id = $1 ORDER BY user_id LIMIT $2 OFFSET $3`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, courseID, limit, offset); err != nil {
		return nil, fmt.Errorf("list enrolled users: %w", err)
	}
	return ids, nil
}
