package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/dto"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/service"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, req dto.ExportRequest) (*service.ExportFile, error)
}

// ExportHandler serves schedule downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Download a group's timetable as CSV or PDF
// @Tags Schedule
// @Produce text/csv,application/pdf
// @Param group query string true "Group name"
// @Param sdate query string true "Start date (dd.mm.yyyy)"
// @Param edate query string true "End date (dd.mm.yyyy)"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Router /schedule/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Binary(c, file.Filename, file.ContentType, file.Data)
}
