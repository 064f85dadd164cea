package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/dto"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var (
	exportHeaders = []string{"Дата", "Пара", "Час", "Предмет", "Тип", "Викладач", "Аудиторія", "Група", "Формат"}
	exportWidths  = []float64{1.1, 0.6, 1.1, 3, 1.1, 2.4, 0.9, 1.6, 1.1}
	unsafeName    = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)
)

type lessonSource interface {
	FetchLessons(ctx context.Context, query models.TimetableQuery, useCache bool) ([]models.LessonRecord, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, widths []float64) ([]byte, error)
}

// ExportFile is a rendered schedule ready to be downloaded.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Lessons     int
}

// ExportService renders a group's schedule as CSV or PDF.
type ExportService struct {
	lessons     lessonSource
	csv         csvRenderer
	pdf         pdfRenderer
	validator   *validator.Validate
	logger      *zap.Logger
	remoteLabel string
	onsiteLabel string
}

// NewExportService constructs an ExportService.
func NewExportService(lessons lessonSource, csv csvRenderer, pdf pdfRenderer, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	return &ExportService{
		lessons:     lessons,
		csv:         csv,
		pdf:         pdf,
		validator:   validate,
		logger:      logger,
		remoteLabel: "Дистанційно",
		onsiteLabel: "Аудиторно",
	}
}

// Export fetches the schedule (through the cache) and renders it.
func (s *ExportService) Export(ctx context.Context, req dto.ExportRequest) (*ExportFile, error) {
	if req.Format == "" {
		req.Format = ExportFormatCSV
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	query := req.Query()
	if err := checkRange(query); err != nil {
		return nil, err
	}

	lessons, err := s.lessons.FetchLessons(ctx, query, true)
	if err != nil {
		return nil, err
	}
	dataset := s.Dataset(lessons)

	file := &ExportFile{Filename: exportFilename(query, req.Format), Lessons: len(lessons)}
	switch req.Format {
	case ExportFormatPDF:
		title := fmt.Sprintf("Розклад %s, %s - %s", query.Group, query.StartDate, query.EndDate)
		file.Data, err = s.pdf.Render(dataset, title, exportWidths)
		file.ContentType = "application/pdf"
	default:
		file.Data, err = s.csv.Render(dataset)
		file.ContentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule export")
	}
	s.logger.Sugar().Infow("schedule exported", "group", query.Group, "format", req.Format, "lessons", len(lessons))
	return file, nil
}

// Dataset lays lessons out as export rows.
func (s *ExportService) Dataset(lessons []models.LessonRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(lessons))
	for _, l := range lessons {
		mode := s.onsiteLabel
		if l.Remote {
			mode = s.remoteLabel
		}
		rows = append(rows, map[string]string{
			exportHeaders[0]: l.Date,
			exportHeaders[1]: l.LessonNumber,
			exportHeaders[2]: l.Time,
			exportHeaders[3]: l.Subject,
			exportHeaders[4]: l.LessonType,
			exportHeaders[5]: l.Teacher,
			exportHeaders[6]: l.Room,
			exportHeaders[7]: l.Group,
			exportHeaders[8]: mode,
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

func exportFilename(query models.TimetableQuery, format string) string {
	group := strings.Trim(unsafeName.ReplaceAllString(query.Group, "_"), "_")
	if group == "" {
		group = "group"
	}
	return fmt.Sprintf("schedule_%s_%s_%s.%s", group, query.StartDate, query.EndDate, format)
}
