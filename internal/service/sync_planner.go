package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
)

// CalendarClient is the calendar collaborator, already bound to one calendar and credential.
type CalendarClient interface {
	ListEventIDs(ctx context.Context) ([]string, error)
	DeleteEvent(ctx context.Context, eventID string) error
	InsertEvent(ctx context.Context, event models.CalendarEvent) (string, error)
}

// CalendarClientFactory binds a calendar client to a bearer token.
type CalendarClientFactory interface {
	ForToken(ctx context.Context, accessToken string) (CalendarClient, error)
}

type calendarObserver interface {
	ObserveCalendarCall(operation models.SyncOperation, ok bool)
}

// SyncPartialFailure lists the calendar calls that failed during an otherwise completed sync.
type SyncPartialFailure struct {
	Failures []models.SyncFailure
}

func (e *SyncPartialFailure) Error() string {
	var deletes, inserts int
	for _, f := range e.Failures {
		switch f.Operation {
		case models.SyncOperationDelete:
			deletes++
		case models.SyncOperationInsert:
			inserts++
		}
	}
	return fmt.Sprintf("calendar sync finished with %d failed deletes and %d failed inserts", deletes, inserts)
}

// Unwrap lets errors.Is match ErrSyncPartial.
func (e *SyncPartialFailure) Unwrap() error {
	return appErrors.ErrSyncPartial
}

// SyncPlannerConfig shapes the events written to the calendar.
type SyncPlannerConfig struct {
	CalendarID  string
	TimeZone    string
	Concurrency int
	RemoteLabel string
	OnsiteLabel string
}

// SyncPlanner replaces the whole content of a calendar with the given lessons.
type SyncPlanner struct {
	cfg      SyncPlannerConfig
	location *time.Location
	metrics  calendarObserver
	logger   *zap.Logger
	now      func() time.Time
}

// NewSyncPlanner validates the timezone and fills defaults.
func NewSyncPlanner(cfg SyncPlannerConfig, metrics calendarObserver, logger *zap.Logger) (*SyncPlanner, error) {
	if cfg.TimeZone == "" {
		cfg.TimeZone = "Europe/Kyiv"
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load calendar timezone %q: %w", cfg.TimeZone, err)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.RemoteLabel == "" {
		cfg.RemoteLabel = "Дистанційно"
	}
	if cfg.OnsiteLabel == "" {
		cfg.OnsiteLabel = "Аудиторно"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncPlanner{cfg: cfg, location: loc, metrics: metrics, logger: logger, now: time.Now}, nil
}

// Location is the timezone lesson times are interpreted in.
func (p *SyncPlanner) Location() *time.Location {
	return p.location
}

// Sync deletes every event of the calendar and then inserts one event per lesson.
// A failed listing aborts before anything is touched and returns ErrCalendarUnavailable.
// Individual delete and insert failures are collected; when there are any the result
// is returned together with a *SyncPartialFailure.
func (p *SyncPlanner) Sync(ctx context.Context, client CalendarClient, records []models.LessonRecord) (*models.SyncResult, error) {
	result := &models.SyncResult{
		CalendarID: p.cfg.CalendarID,
		Skipped:    []models.SkippedRecord{},
		Failures:   []models.SyncFailure{},
		StartedAt:  p.now().UTC(),
	}

	events, indexes := p.buildEvents(records, result)

	ids, err := client.ListEventIDs(ctx)
	p.observe(models.SyncOperationList, err == nil)
	if err != nil {
		p.logger.Error("calendar listing failed, nothing changed", zap.String("calendar_id", p.cfg.CalendarID), zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrCalendarUnavailable, "failed to list calendar events")
	}
	result.Listed = len(ids)

	deleteFailures := p.runBounded(ctx, len(ids), func(ctx context.Context, i int) *models.SyncFailure {
		err := client.DeleteEvent(ctx, ids[i])
		p.observe(models.SyncOperationDelete, err == nil)
		if err != nil {
			return &models.SyncFailure{Operation: models.SyncOperationDelete, EventID: ids[i], RecordIndex: -1, Message: err.Error()}
		}
		return nil
	})
	result.Deleted = len(ids) - len(deleteFailures)
	result.Failures = append(result.Failures, deleteFailures...)

	insertFailures := p.runBounded(ctx, len(events), func(ctx context.Context, i int) *models.SyncFailure {
		_, err := client.InsertEvent(ctx, events[i])
		p.observe(models.SyncOperationInsert, err == nil)
		if err != nil {
			return &models.SyncFailure{Operation: models.SyncOperationInsert, RecordIndex: indexes[i], Summary: events[i].Summary, Message: err.Error()}
		}
		return nil
	})
	result.Inserted = len(events) - len(insertFailures)
	result.Failures = append(result.Failures, insertFailures...)
	result.FinishedAt = p.now().UTC()

	p.logger.Sugar().Infow("calendar sync finished",
		"calendar_id", p.cfg.CalendarID,
		"listed", result.Listed,
		"deleted", result.Deleted,
		"inserted", result.Inserted,
		"skipped", len(result.Skipped),
		"failures", len(result.Failures),
	)

	if result.Failed() {
		return result, &SyncPartialFailure{Failures: result.Failures}
	}
	return result, nil
}

// BuildEvent converts one lesson into a calendar event.
func (p *SyncPlanner) BuildEvent(record models.LessonRecord) (models.CalendarEvent, error) {
	start, end, err := record.TimeRange(p.location)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	summary := record.Subject
	if record.Teacher != "" {
		summary = record.Subject + " - " + record.Teacher
	}
	description := p.cfg.OnsiteLabel
	if record.Remote {
		description = p.cfg.RemoteLabel
	}
	return models.CalendarEvent{
		Summary:     summary,
		Description: description,
		Start:       start,
		End:         end,
		TimeZone:    p.cfg.TimeZone,
	}, nil
}

func (p *SyncPlanner) buildEvents(records []models.LessonRecord, result *models.SyncResult) ([]models.CalendarEvent, []int) {
	events := make([]models.CalendarEvent, 0, len(records))
	indexes := make([]int, 0, len(records))
	for i, record := range records {
		event, err := p.BuildEvent(record)
		if err != nil {
			reason := "no usable time range"
			if record.HasTimeRange() {
				reason = err.Error()
			}
			result.Skipped = append(result.Skipped, models.SkippedRecord{
				RecordIndex: i,
				Subject:     record.Subject,
				Date:        record.Date,
				Reason:      reason,
			})
			p.logger.Warn("lesson skipped, it has no usable time range",
				zap.Int("record_index", i),
				zap.String("subject", record.Subject),
				zap.String("date", record.Date),
				zap.String("time", strings.TrimSpace(record.Time)))
			continue
		}
		events = append(events, event)
		indexes = append(indexes, i)
	}
	return events, indexes
}

// runBounded calls fn for 0..n-1 with at most Concurrency calls in flight and returns
// the failures in index order. It returns only after every call finished.
func (p *SyncPlanner) runBounded(ctx context.Context, n int, fn func(ctx context.Context, i int) *models.SyncFailure) []models.SyncFailure {
	if n == 0 {
		return nil
	}
	slots := make([]*models.SyncFailure, n)
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			slots[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	var failures []models.SyncFailure
	for _, f := range slots {
		if f != nil {
			failures = append(failures, *f)
		}
	}
	return failures
}

func (p *SyncPlanner) observe(op models.SyncOperation, ok bool) {
	if p.metrics != nil {
		p.metrics.ObserveCalendarCall(op, ok)
	}
}
