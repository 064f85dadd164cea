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

const noSessionsMessage = "no sessions"

type scheduleService interface {
	GetSchedule(ctx context.Context, req dto.ScheduleRequest) ([]models.LessonRecord, error)
}

// ScheduleHandler serves timetable lookups.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Get godoc
// @Summary Fetch a group's timetable
// @Tags Schedule
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param group formData string true "Group name"
// @Param sdate formData string true "Start date (dd.mm.yyyy)"
// @Param edate formData string true "End date (dd.mm.yyyy)"
// @Success 200 {array} models.LessonRecord
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /schedule [post]
func (h *ScheduleHandler) Get(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	lessons, err := h.service.GetSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(lessons) == 0 {
		response.Message(c, http.StatusOK, noSessionsMessage)
		return
	}
	response.JSON(c, http.StatusOK, lessons)
}
