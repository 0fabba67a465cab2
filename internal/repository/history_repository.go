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

// HistoryRepository appends and reads the accommodation history log. Entries
// are never updated or deleted.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs a HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const historyColumns = `id, user_id, course_id, activity_id, module_kind, module_instance_id,
        extension, original_value, new_value, applied, created_at, modified_by`

// Create appends one history entry.
func (r *HistoryRepository) Create(ctx context.Context, entry *models.AccommodationHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO accommodation_history (id, user_id, course_id, activity_id, module_kind,
        module_instance_id, extension, original_value, new_value, applied, created_at, modified_by)
        VALUES (:id, :user_id, :course_id, :activity_id, :module_kind,
        :module_instance_id, :extension, :original_value, :new_value, :applied, :created_at, :modified_by)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// List returns history entries matching the provided filters, newest first.
func (r *HistoryRepository) List(ctx context.Context, filter models.HistoryFilter) ([]models.AccommodationHistory, int, error) {
	base := "FROM accommodation_history"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.ActivityID != "" {
		conditions = append(conditions, fmt.Sprintf("activity_id = $%d", len(args)+1))
		args = append(args, filter.ActivityID)
	}
	if filter.ModuleKind != "" {
		conditions = append(conditions, fmt.Sprintf("module_kind = $%d", len(args)+1))
		args = append(args, filter.ModuleKind)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		historyColumns, base, size, offset)

	var entries []models.AccommodationHistory
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}
	return entries, total, nil
}
