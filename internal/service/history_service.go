package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/accommodations-api/internal/models"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
	"github.com/campusops/accommodations-api/pkg/export"
)

type historyReader interface {
	List(ctx context.Context, filter models.HistoryFilter) ([]models.AccommodationHistory, int, error)
}

// HistoryService reads the append-only accommodation history log and renders
// it into downloadable reports.
type HistoryService struct {
	repo   historyReader
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewHistoryService constructs a HistoryService.
func NewHistoryService(repo historyReader, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// List returns history entries newest first with pagination metadata.
func (s *HistoryService) List(ctx context.Context, filter models.HistoryFilter) ([]models.AccommodationHistory, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

var historyExportHeaders = []string{
	"Date", "User", "Course", "Activity", "Kind", "Extension %", "Original", "New", "Applied", "Modified By",
}

// Export renders matching history entries as "csv" or "pdf" bytes. Export
// pulls up to the repository page-size cap per call; callers narrow with
// filters when the log is large.
func (s *HistoryService) Export(ctx context.Context, filter models.HistoryFilter, format string) ([]byte, string, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = 200
	}
	entries, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history for export")
	}

	dataset := export.Dataset{Headers: historyExportHeaders, Rows: make([]map[string]string, 0, len(entries))}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":        entry.CreatedAt.Format(time.RFC3339),
			"User":        entry.UserID,
			"Course":      entry.CourseID,
			"Activity":    entry.ActivityID,
			"Kind":        string(entry.ModuleKind),
			"Extension %": strconv.Itoa(entry.Extension),
			"Original":    formatHistoryValue(entry.ModuleKind, entry.OriginalValue),
			"New":         formatHistoryValue(entry.ModuleKind, entry.NewValue),
			"Applied":     strconv.FormatBool(entry.Applied),
			"Modified By": entry.ModifiedBy,
		})
	}

	switch format {
	case "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return data, "text/csv", nil
	case "pdf":
		data, err := s.pdf.Render(dataset, "Accommodation History")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return data, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// formatHistoryValue renders quiz values as durations and assignment values
// as dates, matching how the underlying activities interpret them.
func formatHistoryValue(kind models.ActivityKind, value int64) string {
	switch kind {
	case models.ActivityKindQuiz:
		return (time.Duration(value) * time.Second).String()
	case models.ActivityKindAssignment:
		if value <= 0 {
			return "0"
		}
		return time.Unix(value, 0).UTC().Format("2006-01-02 15:04")
	default:
		return strconv.FormatInt(value, 10)
	}
}
