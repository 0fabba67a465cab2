package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/accommodations-api/internal/models"
)

// TypeRepository manages persistence for accommodation types.
type TypeRepository struct {
	db *sqlx.DB
}

// NewTypeRepository constructs a TypeRepository.
func NewTypeRepository(db *sqlx.DB) *TypeRepository {
	return &TypeRepository{db: db}
}

// List returns all accommodation types ordered by name.
func (r *TypeRepository) List(ctx context.Context) ([]models.AccommodationType, error) {
	const query = `SELECT id, name, description, default_extension, created_at, updated_at, modified_by
        FROM accommodation_types ORDER BY name ASC`
	var types []models.AccommodationType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list accommodation types: %w", err)
	}
	return types, nil
}

// FindByID fetches a type by ID.
func (r *TypeRepository) FindByID(ctx context.Context, id string) (*models.AccommodationType, error) {
	const query = `SELECT id, name, description, default_extension, created_at, updated_at, modified_by
        FROM accommodation_types WHERE id = $1`
	var t models.AccommodationType
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		return nil, err
	}
	return &t, nil
}

// ExistsByName checks name uniqueness optionally excluding an ID.
func (r *TypeRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM accommodation_types WHERE name = $1"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check type name: %w", err)
	}
	return true, nil
}

// Count returns the number of catalog entries.
func (r *TypeRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM accommodation_types"); err != nil {
		return 0, fmt.Errorf("count accommodation types: %w", err)
	}
	return total, nil
}

// Create inserts a new accommodation type.
func (r *TypeRepository) Create(ctx context.Context, t *models.AccommodationType) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	const query = `INSERT INTO accommodation_types (id, name, description, default_extension, created_at, updated_at, modified_by)
        VALUES (:id, :name, :description, :default_extension, :created_at, :updated_at, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("create accommodation type: %w", err)
	}
	return nil
}

// Update modifies an existing accommodation type.
func (r *TypeRepository) Update(ctx context.Context, t *models.AccommodationType) error {
	t.UpdatedAt = time.Now().UTC()
	const query = `UPDATE accommodation_types SET name = :name, description = :description,
        default_extension = :default_extension, updated_at = :updated_at, modified_by = :modified_by
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("update accommodation type: %w", err)
	}
	return nil
}

// Delete removes a type. Callers must have verified no profile references it.
func (r *TypeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM accommodation_types WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete accommodation type: %w", err)
	}
	return nil
}
