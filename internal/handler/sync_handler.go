package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/dto"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/response"
)

type syncService interface {
	SyncSchedule(ctx context.Context, req dto.SyncRequest) (*models.SyncOutcome, error)
}

// SyncJobs queues and tracks background syncs.
type SyncJobs interface {
	Enqueue(ctx context.Context, req dto.SyncRequest) (*models.SyncJob, error)
	Get(ctx context.Context, id string) (*models.SyncJob, error)
}

// SyncHandler mirrors the timetable into the caller's calendar.
type SyncHandler struct {
	service syncService
	jobs    SyncJobs
}

// NewSyncHandler constructs handler. jobs may be nil when background syncs are disabled.
func NewSyncHandler(svc syncService, jobs SyncJobs) *SyncHandler {
	return &SyncHandler{service: svc, jobs: jobs}
}

// Sync godoc
// @Summary Sync the timetable into Google Calendar
// @Tags Sync
// @Accept json
// @Produce json
// @Param payload body dto.SyncRequest true "Access token and ISO-8601 date range"
// @Success 200 {object} models.SyncOutcome
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Router /sync [post]
func (h *SyncHandler) Sync(c *gin.Context) {
	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	outcome, err := h.service.SyncSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome)
}

// Enqueue godoc
// @Summary Queue a background calendar sync
// @Tags Sync
// @Accept json
// @Produce json
// @Param payload body dto.SyncRequest true "Access token and ISO-8601 date range"
// @Success 202 {object} dto.SyncJobAccepted
// @Failure 400 {object} response.ErrorBody
// @Failure 503 {object} response.ErrorBody
// @Router /sync/jobs [post]
func (h *SyncHandler) Enqueue(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrQueueUnavailable, "background sync is disabled"))
		return
	}
	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	job, err := h.jobs.Enqueue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.SyncJobAccepted{JobID: job.ID, Status: string(job.Status)})
}

// Job godoc
// @Summary Inspect a background sync
// @Tags Sync
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.SyncJob
// @Failure 404 {object} response.ErrorBody
// @Router /sync/jobs/{id} [get]
func (h *SyncHandler) Job(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrQueueUnavailable, "background sync is disabled"))
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}
