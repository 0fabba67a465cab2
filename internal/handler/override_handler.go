package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/accommodations-api/internal/service"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
	"github.com/campusops/accommodations-api/pkg/response"
)

// OverrideHandler handles per-activity override endpoints.
type OverrideHandler struct {
	service *service.OverrideService
}

// NewOverrideHandler constructs an override handler.
func NewOverrideHandler(svc *service.OverrideService) *OverrideHandler {
	return &OverrideHandler{service: svc}
}

// ListByProfile godoc
// @Summary List overrides attached to a profile
// @Tags Overrides
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Router /profiles/{id}/overrides [get]
func (h *OverrideHandler) ListByProfile(c *gin.Context) {
	overrides, err := h.service.ListByProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overrides, nil)
}

// Set godoc
// @Summary Create or replace the override for a profile and activity pair
// @Tags Overrides
// @Accept json
// @Produce json
// @Param payload body service.SetOverrideRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Router /overrides [put]
func (h *OverrideHandler) Set(c *gin.Context) {
	var req service.SetOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	override, err := h.service.Set(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// Delete godoc
// @Summary Delete an override
// @Tags Overrides
// @Produce json
// @Param id path string true "Override ID"
// @Success 204
// @Router /overrides/{id} [delete]
func (h *OverrideHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
