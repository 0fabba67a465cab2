package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/accommodations-api/internal/service"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
	"github.com/campusops/accommodations-api/pkg/export"
	"github.com/campusops/accommodations-api/pkg/response"
)

type importApplier interface {
	ApplyToCourse(ctx context.Context, courseID string, allowOverwrite bool, actor string) (*service.CourseApplyStats, error)
	ApplyToCategory(ctx context.Context, categoryID string, allowOverwrite bool, actor string) (*service.CategoryApplyStats, error)
}

// ImportHandler handles CSV bulk import of accommodation profiles.
type ImportHandler struct {
	service     *service.ImportService
	propagation importApplier
	csv         *export.CSVExporter
}

// NewImportHandler constructs an import handler.
func NewImportHandler(svc *service.ImportService, propagation importApplier) *ImportHandler {
	return &ImportHandler{service: svc, propagation: propagation, csv: export.NewCSVExporter()}
}

// Upload godoc
// @Summary Import accommodation profiles from a CSV file
// @Tags Import
// @Accept mpfd
// @Produce json
// @Param file formData file true "CSV file"
// @Param course_id formData string false "Scope every row to this course"
// @Param category_id formData string false "Scope every row to this category"
// @Param apply formData bool false "Propagate imported profiles immediately"
// @Success 200 {object} response.Envelope
// @Router /import [post]
func (h *ImportHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing csv file"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open csv file"))
		return
	}
	defer file.Close()

	var scope service.ImportScope
	if courseID := c.PostForm("course_id"); courseID != "" {
		scope.CourseID = &courseID
	}
	if categoryID := c.PostForm("category_id"); categoryID != "" {
		scope.CategoryID = &categoryID
	}

	actor := actorFromContext(c)
	result, err := h.service.Import(c.Request.Context(), file, scope, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Apply-after-import overwrites: a freshly imported profile replaces any
	// stale override left behind by an earlier run.
	meta := map[string]interface{}{}
	if c.PostForm("apply") == "true" && result.SuccessCount > 0 {
		switch {
		case scope.CategoryID != nil:
			stats, err := h.propagation.ApplyToCategory(c.Request.Context(), *scope.CategoryID, true, actor)
			if err == nil {
				meta["propagation"] = stats
			}
		case scope.CourseID != nil:
			stats, err := h.propagation.ApplyToCourse(c.Request.Context(), *scope.CourseID, true, actor)
			if err == nil {
				meta["propagation"] = stats
			}
		}
	}

	response.JSON(c, http.StatusOK, result, nil, meta)
}

// Template godoc
// @Summary Download the CSV import template
// @Tags Import
// @Produce octet-stream
// @Success 200 {file} binary
// @Router /import/template [get]
func (h *ImportHandler) Template(c *gin.Context) {
	rows := h.service.Template()
	dataset := export.Dataset{Headers: rows[0]}
	for _, row := range rows[1:] {
		record := make(map[string]string, len(rows[0]))
		for i, header := range rows[0] {
			if i < len(row) {
				record[header] = row[i]
			}
		}
		dataset.Rows = append(dataset.Rows, record)
	}
	data, err := h.csv.Render(dataset)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="accommodation-import-template.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
