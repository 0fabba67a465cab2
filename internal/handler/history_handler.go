package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusops/accommodations-api/internal/models"
	"github.com/campusops/accommodations-api/internal/service"
	"github.com/campusops/accommodations-api/pkg/response"
)

// HistoryHandler exposes the accommodation history log.
type HistoryHandler struct {
	service *service.HistoryService
}

// NewHistoryHandler constructs a history handler.
func NewHistoryHandler(svc *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{service: svc}
}

func historyFilterFromQuery(c *gin.Context) models.HistoryFilter {
	var filter models.HistoryFilter
	filter.UserID = c.Query("user_id")
	filter.CourseID = c.Query("course_id")
	filter.ActivityID = c.Query("activity_id")
	filter.ModuleKind = c.Query("kind")
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &t
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = limit
	}
	return filter
}

// List godoc
// @Summary List accommodation history entries
// @Tags History
// @Produce json
// @Param user_id query string false "Filter by user"
// @Param course_id query string false "Filter by course"
// @Param activity_id query string false "Filter by activity"
// @Param kind query string false "Filter by module kind"
// @Param from query string false "Entries at or after this RFC3339 time"
// @Param to query string false "Entries at or before this RFC3339 time"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	entries, pagination, err := h.service.List(c.Request.Context(), historyFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Export godoc
// @Summary Export history entries as CSV or PDF
// @Tags History
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /history/export [get]
func (h *HistoryHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	data, contentType, err := h.service.Export(c.Request.Context(), historyFilterFromQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("accommodation-history-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}
