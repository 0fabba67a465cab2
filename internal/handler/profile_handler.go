package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusops/accommodations-api/internal/models"
	"github.com/campusops/accommodations-api/internal/service"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
	"github.com/campusops/accommodations-api/pkg/response"
)

// ProfileHandler handles accommodation profile endpoints.
type ProfileHandler struct {
	service *service.ProfileService
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(svc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// List godoc
// @Summary List accommodation profiles
// @Tags Profiles
// @Produce json
// @Param user_id query string false "Filter by user"
// @Param type_id query string false "Filter by accommodation type"
// @Param course_id query string false "Filter by course scope"
// @Param category_id query string false "Filter by category scope"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /profiles [get]
func (h *ProfileHandler) List(c *gin.Context) {
	var filter models.ProfileFilter
	filter.UserID = c.Query("user_id")
	filter.TypeID = c.Query("type_id")
	filter.CourseID = c.Query("course_id")
	filter.CategoryID = c.Query("category_id")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	profiles, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, pagination)
}

// Get godoc
// @Summary Get accommodation profile by id
// @Tags Profiles
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Router /profiles/{id} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Create godoc
// @Summary Create accommodation profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body service.CreateProfileRequest true "Profile payload"
// @Success 201 {object} response.Envelope
// @Router /profiles [post]
func (h *ProfileHandler) Create(c *gin.Context) {
	var req service.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	profile, err := h.service.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, profile)
}

// Update godoc
// @Summary Update accommodation profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param payload body service.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /profiles/{id} [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	profile, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Delete godoc
// @Summary Delete accommodation profile and its overrides
// @Tags Profiles
// @Produce json
// @Param id path string true "Profile ID"
// @Success 204
// @Router /profiles/{id} [delete]
func (h *ProfileHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Bulk godoc
// @Summary Delete or apply accommodation profiles in bulk
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body service.BulkProfileRequest true "Bulk action payload"
// @Success 200 {object} response.Envelope
// @Router /profiles/bulk [post]
func (h *ProfileHandler) Bulk(c *gin.Context) {
	var req service.BulkProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Bulk(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
