package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/accommodations-api/internal/service"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
	"github.com/campusops/accommodations-api/pkg/response"
)

// TypeHandler handles accommodation type endpoints.
type TypeHandler struct {
	service *service.TypeService
}

// NewTypeHandler constructs a type handler.
func NewTypeHandler(svc *service.TypeService) *TypeHandler {
	return &TypeHandler{service: svc}
}

// List godoc
// @Summary List accommodation types
// @Tags Types
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /types [get]
func (h *TypeHandler) List(c *gin.Context) {
	types, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Get godoc
// @Summary Get accommodation type by id
// @Tags Types
// @Produce json
// @Param id path string true "Type ID"
// @Success 200 {object} response.Envelope
// @Router /types/{id} [get]
func (h *TypeHandler) Get(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, t, nil)
}

// Create godoc
// @Summary Create accommodation type
// @Tags Types
// @Accept json
// @Produce json
// @Param payload body service.CreateTypeRequest true "Type payload"
// @Success 201 {object} response.Envelope
// @Router /types [post]
func (h *TypeHandler) Create(c *gin.Context) {
	var req service.CreateTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	t, err := h.service.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// Update godoc
// @Summary Update accommodation type
// @Tags Types
// @Accept json
// @Produce json
// @Param id path string true "Type ID"
// @Param payload body service.UpdateTypeRequest true "Type payload"
// @Success 200 {object} response.Envelope
// @Router /types/{id} [put]
func (h *TypeHandler) Update(c *gin.Context) {
	var req service.UpdateTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	t, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, t, nil)
}

// Delete godoc
// @Summary Delete accommodation type
// @Tags Types
// @Produce json
// @Param id path string true "Type ID"
// @Success 204
// @Router /types/{id} [delete]
func (h *TypeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
