package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/harmony-timetable-api/internal/dto"
	"github.com/noah-isme/harmony-timetable-api/internal/models"
	appErrors "github.com/noah-isme/harmony-timetable-api/pkg/errors"
	"github.com/noah-isme/harmony-timetable-api/pkg/response"
)

type generationJobService interface {
	Submit(ctx context.Context, req dto.GenerateTimetableSetRequest, actorID string) (*dto.GenerationJobResponse, error)
	Status(ctx context.Context, id string) (*models.GenerationJob, error)
}

// GenerationJobHandler exposes asynchronous timetable-set generation.
type GenerationJobHandler struct {
	service generationJobService
}

// NewGenerationJobHandler constructs the handler.
func NewGenerationJobHandler(svc generationJobService) *GenerationJobHandler {
	return &GenerationJobHandler{service: svc}
}

// Submit godoc
// @Summary Queue a timetable-set generation
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableSetRequest true "Catalog, week shape and count"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /timetables/jobs [post]
func (h *GenerationJobHandler) Submit(c *gin.Context) {
	var req dto.GenerateTimetableSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation job payload"))
		return
	}
	result, err := h.service.Submit(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result.URL, result)
}

// Status godoc
// @Summary Poll a generation job
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/jobs/{id} [get]
func (h *GenerationJobHandler) Status(c *gin.Context) {
	job, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}
