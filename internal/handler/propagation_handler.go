package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusops/accommodations-api/internal/service"
	"github.com/campusops/accommodations-api/pkg/jobs"
	"github.com/campusops/accommodations-api/pkg/response"
)

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// PropagationHandler triggers deadline propagation over courses and
// categories, synchronously or through the background queue.
type PropagationHandler struct {
	service *service.PropagationService
	queue   jobEnqueuer
}

// NewPropagationHandler constructs a propagation handler. A nil queue disables
// the async path.
func NewPropagationHandler(svc *service.PropagationService, queue jobEnqueuer) *PropagationHandler {
	return &PropagationHandler{service: svc, queue: queue}
}

// enqueue pushes a propagation job and answers 202. Category trees can take
// minutes, so callers opt in with ?async=true instead of holding the request.
func (h *PropagationHandler) enqueue(c *gin.Context, kind, targetID string, allowOverwrite bool) bool {
	if c.DefaultQuery("async", "false") != "true" || h.queue == nil {
		return false
	}
	job := jobs.Job{ID: uuid.NewString(), Kind: kind, TargetID: targetID, AllowOverwrite: allowOverwrite}
	if err := h.queue.Enqueue(job); err != nil {
		response.Error(c, err)
		return true
	}
	response.JSON(c, http.StatusAccepted, gin.H{"job_id": job.ID, "status": "queued"}, nil)
	return true
}

// ApplyToCourse godoc
// @Summary Apply accommodations to every eligible activity in a course
// @Tags Propagation
// @Produce json
// @Param id path string true "Course ID"
// @Param overwrite query bool false "Replace existing overrides"
// @Param async query bool false "Queue the run instead of waiting"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /courses/{id}/apply [post]
func (h *PropagationHandler) ApplyToCourse(c *gin.Context) {
	allowOverwrite := c.DefaultQuery("overwrite", "false") == "true"
	if h.enqueue(c, "course", c.Param("id"), allowOverwrite) {
		return
	}
	stats, err := h.service.ApplyToCourse(c.Request.Context(), c.Param("id"), allowOverwrite, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ApplyToCategory godoc
// @Summary Apply accommodations across a category tree
// @Tags Propagation
// @Produce json
// @Param id path string true "Category ID"
// @Param overwrite query bool false "Replace existing overrides"
// @Param async query bool false "Queue the run instead of waiting"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /categories/{id}/apply [post]
func (h *PropagationHandler) ApplyToCategory(c *gin.Context) {
	allowOverwrite := c.DefaultQuery("overwrite", "false") == "true"
	if h.enqueue(c, "category", c.Param("id"), allowOverwrite) {
		return
	}
	stats, err := h.service.ApplyToCategory(c.Request.Context(), c.Param("id"), allowOverwrite, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ApplyAll godoc
// @Summary Apply accommodations across every course with active profiles
// @Tags Propagation
// @Produce json
// @Param overwrite query bool false "Replace existing overrides"
// @Param async query bool false "Queue the run instead of waiting"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /propagation/apply-all [post]
func (h *PropagationHandler) ApplyAll(c *gin.Context) {
	allowOverwrite := c.DefaultQuery("overwrite", "false") == "true"
	if h.enqueue(c, "all", "", allowOverwrite) {
		return
	}
	stats, err := h.service.ApplyAll(c.Request.Context(), allowOverwrite, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
