package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/accommodations-api/internal/service"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
	"github.com/campusops/accommodations-api/pkg/response"
)

// ActivityHandler handles per-activity accommodation status endpoints.
type ActivityHandler struct {
	service     *service.ActivityService
	propagation *service.PropagationService
}

// NewActivityHandler constructs an activity handler.
func NewActivityHandler(svc *service.ActivityService, propagation *service.PropagationService) *ActivityHandler {
	return &ActivityHandler{service: svc, propagation: propagation}
}

type setStatusRequest struct {
	Disabled bool `json:"disabled"`
}

// GetStatus godoc
// @Summary Get accommodation status for an activity
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /activities/{id}/status [get]
func (h *ActivityHandler) GetStatus(c *gin.Context) {
	status, err := h.service.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// SetStatus godoc
// @Summary Enable or disable accommodations for an activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body setStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /activities/{id}/status [put]
func (h *ActivityHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	status, err := h.service.SetDisabled(c.Request.Context(), c.Param("id"), req.Disabled, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Apply godoc
// @Summary Apply accommodations to every enrolled user of one activity
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Param overwrite query bool false "Replace existing overrides"
// @Success 200 {object} response.Envelope
// @Router /activities/{id}/apply [post]
func (h *ActivityHandler) Apply(c *gin.Context) {
	allowOverwrite := c.DefaultQuery("overwrite", "false") == "true"
	applied, err := h.propagation.ApplyToActivity(c.Request.Context(), c.Param("id"), allowOverwrite, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"applied": applied}, nil)
}
