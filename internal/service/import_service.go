package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/accommodations-api/internal/models"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
)

type importUserResolver interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type importTypeLister interface {
	List(ctx context.Context) ([]models.AccommodationType, error)
}

type importProfileWriter interface {
	Create(ctx context.Context, profile *models.AccommodationProfile) error
}

// ImportScope fixes the scope applied to every imported profile. Category
// wins when both are set, matching the upload flow's precedence.
type ImportScope struct {
	CourseID   *string
	CategoryID *string
}

// ImportResult reports per-row outcomes of a CSV import.
type ImportResult struct {
	SuccessCount int              `json:"success_count"`
	ErrorsByLine map[int][]string `json:"errors_by_line"`
}

// ImportService ingests accommodation profiles from CSV rows: user
// identifier, type name, percent, start date, end date, notes. Rows fail
// independently; valid rows are always saved.
type ImportService struct {
	users    importUserResolver
	types    importTypeLister
	profiles importProfileWriter
	metrics  *MetricsService
	logger   *zap.Logger
	maxRows  int
}

// NewImportService constructs the import service.
func NewImportService(users importUserResolver, types importTypeLister, profiles importProfileWriter, metrics *MetricsService, maxRows int, logger *zap.Logger) *ImportService {
	if maxRows <= 0 {
		maxRows = 5000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{users: users, types: types, profiles: profiles, metrics: metrics, logger: logger, maxRows: maxRows}
}

// dateLayouts are tried in order when parsing optional date columns.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"Jan 2, 2006",
	time.RFC3339,
}

func parseFlexibleDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// Import reads CSV records and creates one profile per valid row.
func (s *ImportService) Import(ctx context.Context, r io.Reader, scope ImportScope, actor string) (*ImportResult, error) {
	types, err := s.types.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load accommodation types")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &ImportResult{ErrorsByLine: make(map[int][]string)}
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed csv input")
		}
		line++
		if line == 1 && isHeaderRow(record) {
			continue
		}
		if line > s.maxRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import exceeds the %d row limit", s.maxRows))
		}

		rowErrors := s.importRow(ctx, record, types, scope, actor)
		if len(rowErrors) > 0 {
			result.ErrorsByLine[line] = rowErrors
			if s.metrics != nil {
				s.metrics.IncImportRow("error")
			}
			continue
		}
		result.SuccessCount++
		if s.metrics != nil {
			s.metrics.IncImportRow("success")
		}
	}

	return result, nil
}

func isHeaderRow(record []string) bool {
	if len(record) < 3 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	third := strings.ToLower(strings.TrimSpace(record[2]))
	return first == "user" || first == "user_identifier" ||
		strings.Contains(third, "percent") || strings.Contains(third, "extension")
}

func (s *ImportService) importRow(ctx context.Context, record []string, types []models.AccommodationType, scope ImportScope, actor string) []string {
	var rowErrors []string

	if len(record) < 3 {
		return []string{"row must have at least user, type and percent columns"}
	}

	// Column 0: user, tried as numeric ID, then username, then email.
	user, err := s.resolveUser(ctx, strings.TrimSpace(record[0]))
	if err != nil {
		rowErrors = append(rowErrors, err.Error())
		return rowErrors
	}

	// Column 1: type, exact name first, then case-insensitive substring.
	typeName := strings.TrimSpace(record[1])
	matched := matchType(types, typeName)
	if matched == nil {
		rowErrors = append(rowErrors, fmt.Sprintf("accommodation type %q not found", typeName))
		return rowErrors
	}

	// Column 2: extension percent.
	rawPercent := strings.TrimSpace(record[2])
	percent, err := strconv.Atoi(rawPercent)
	if err != nil || rawPercent == "" {
		rowErrors = append(rowErrors, fmt.Sprintf("invalid extension percent %q", rawPercent))
		return rowErrors
	}
	if percent < 0 {
		rowErrors = append(rowErrors, fmt.Sprintf("extension percent %d must not be negative", percent))
		return rowErrors
	}

	// Columns 3 and 4: optional dates. A bad date errors the row but the
	// remaining fields are still checked so all problems surface at once.
	var startDate, endDate *time.Time
	if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
		if t, err := parseFlexibleDate(strings.TrimSpace(record[3])); err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("invalid start date %q", record[3]))
		} else {
			startDate = &t
		}
	}
	if len(record) > 4 && strings.TrimSpace(record[4]) != "" {
		if t, err := parseFlexibleDate(strings.TrimSpace(record[4])); err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("invalid end date %q", record[4]))
		} else {
			endDate = &t
		}
	}
	if startDate != nil && endDate != nil && startDate.After(*endDate) {
		rowErrors = append(rowErrors, "start date is after end date")
	}

	notes := ""
	if len(record) > 5 {
		notes = strings.TrimSpace(record[5])
	}

	if len(rowErrors) > 0 {
		return rowErrors
	}

	profile := &models.AccommodationProfile{
		UserID:     user.ID,
		TypeID:     matched.ID,
		Extension:  percent,
		StartDate:  startDate,
		EndDate:    endDate,
		Notes:      notes,
		ModifiedBy: actor,
	}
	switch {
	case scope.CategoryID != nil:
		profile.CategoryID = scope.CategoryID
	case scope.CourseID != nil:
		profile.CourseID = scope.CourseID
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		s.logger.Warn("failed to save imported profile", zap.String("user_id", user.ID), zap.Error(err))
		return []string{"failed to save profile"}
	}
	return nil
}

func (s *ImportService) resolveUser(ctx context.Context, identifier string) (*models.User, error) {
	if identifier == "" {
		return nil, fmt.Errorf("missing user identifier")
	}

	if _, numErr := strconv.Atoi(identifier); numErr == nil {
		if user, err := s.users.FindByID(ctx, identifier); err == nil {
			return user, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to look up user %q", identifier)
		}
	}

	if user, err := s.users.FindByUsername(ctx, identifier); err == nil {
		return user, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up user %q", identifier)
	}

	if user, err := s.users.FindByEmail(ctx, identifier); err == nil {
		return user, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up user %q", identifier)
	}

	return nil, fmt.Errorf("user %q not found", identifier)
}

func matchType(types []models.AccommodationType, name string) *models.AccommodationType {
	if name == "" {
		return nil
	}
	for i := range types {
		if types[i].Name == name {
			return &types[i]
		}
	}
	lower := strings.ToLower(name)
	for i := range types {
		if strings.Contains(strings.ToLower(types[i].Name), lower) {
			return &types[i]
		}
	}
	return nil
}

// Template returns the canonical CSV column header plus one example row.
func (s *ImportService) Template() [][]string {
	return [][]string{
		{"user_identifier", "type_name", "percent", "start_date", "end_date", "notes"},
		{"jdoe@example.edu", "Learning Disability", "25", "2026-01-01", "2026-06-30", "approved by student services"},
	}
}
