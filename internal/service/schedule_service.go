package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/browser"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/dto"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
)

type browserPool interface {
	Acquire(ctx context.Context) (browser.Session, error)
	Release(session browser.Session)
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type scheduleMetrics interface {
	ObserveSyncOutcome(status models.SyncStatus)
	ObserveBrowserWait(duration time.Duration)
}

// ScheduleServiceConfig holds the pipeline settings.
type ScheduleServiceConfig struct {
	DefaultGroup   string
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	Fetch          FetchPolicy
}

// ScheduleService runs fetch, extract, diff and sync as one sequential pipeline.
type ScheduleService struct {
	pool      browserPool
	fetcher   *PageFetcher
	extractor *RecordExtractor
	store     ScheduleStore
	planner   *SyncPlanner
	calendars CalendarClientFactory
	cache     scheduleCache
	metrics   scheduleMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleServiceConfig

	// syncSlot admits one snapshot diff and calendar replace at a time.
	syncSlot *semaphore.Weighted
}

// ScheduleServiceDeps groups the collaborators of ScheduleService.
type ScheduleServiceDeps struct {
	Pool      browserPool
	Fetcher   *PageFetcher
	Extractor *RecordExtractor
	Store     ScheduleStore
	Planner   *SyncPlanner
	Calendars CalendarClientFactory
	Cache     scheduleCache
	Metrics   scheduleMetrics
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(deps ScheduleServiceDeps, cfg ScheduleServiceConfig, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Extractor == nil {
		deps.Extractor = NewRecordExtractor("", nil, logger)
	}
	if cfg.Fetch.MaxAttempts < 1 {
		cfg.Fetch.MaxAttempts = 1
	}
	return &ScheduleService{
		pool:      deps.Pool,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		store:     deps.Store,
		planner:   deps.Planner,
		calendars: deps.Calendars,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		syncSlot:  semaphore.NewWeighted(1),
	}
}

// GetSchedule returns the lessons of a group between two dd.mm.yyyy dates.
func (s *ScheduleService) GetSchedule(ctx context.Context, req dto.ScheduleRequest) ([]models.LessonRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	query := req.Query()
	if err := checkRange(query); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.lessons(ctx, query, true)
}

// SyncSchedule mirrors the timetable of an ISO date range into the caller's calendar.
// The calendar is only touched when the extracted lessons differ from the stored snapshot.
// Concurrent calls fetch in parallel but diff, sync and persist one after another, so a
// second caller sees the snapshot the first one saved.
func (s *ScheduleService) SyncSchedule(ctx context.Context, req dto.SyncRequest) (*models.SyncOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	query, err := s.syncQuery(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	lessons, err := s.lessons(ctx, query, false)
	if err != nil {
		return nil, err
	}
	outcome := &models.SyncOutcome{Lessons: lessons}
	if len(lessons) == 0 {
		outcome.Status = models.SyncStatusNoSessions
		s.observeOutcome(outcome.Status)
		return outcome, nil
	}

	if err := s.syncSlot.Acquire(ctx, 1); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrCalendarUnavailable, "sync cancelled while waiting for a running sync")
	}
	defer s.syncSlot.Release(1)

	previous, err := s.store.Load(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule snapshot")
	}
	if !DiffSchedules(previous, lessons) {
		outcome.Status = models.SyncStatusUnchanged
		s.observeOutcome(outcome.Status)
		s.logger.Sugar().Infow("schedule unchanged, calendar left as is", "group", query.Group, "lessons", len(lessons))
		return outcome, nil
	}

	client, err := s.calendars.ForToken(ctx, req.AccessToken)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrCalendarUnavailable, "failed to reach calendar")
	}
	result, err := s.planner.Sync(ctx, client, lessons)
	outcome.Sync = result

	var partial *SyncPartialFailure
	switch {
	case errors.As(err, &partial):
		outcome.Status = models.SyncStatusPartial
		s.logger.Warn("calendar sync incomplete, snapshot kept for retry",
			zap.String("group", query.Group), zap.Int("failures", len(partial.Failures)), zap.Error(err))
	case err != nil:
		return nil, err
	default:
		outcome.Status = models.SyncStatusSynced
		if err := s.store.Persist(ctx, lessons); err != nil {
			s.logger.Error("schedule synced but snapshot not saved, next run resyncs", zap.Error(err))
		}
	}
	s.observeOutcome(outcome.Status)
	return outcome, nil
}

// FetchLessons fetches and extracts without validation, optionally through the cache.
func (s *ScheduleService) FetchLessons(ctx context.Context, query models.TimetableQuery, useCache bool) ([]models.LessonRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.lessons(ctx, query, useCache)
}

func (s *ScheduleService) lessons(ctx context.Context, query models.TimetableQuery, useCache bool) ([]models.LessonRecord, error) {
	key := query.CacheKey()
	if useCache && s.cache != nil {
		var cached []models.LessonRecord
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	markup, err := s.fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	lessons := s.extractor.Extract(markup)
	s.logger.Sugar().Infow("timetable extracted", "group", query.Group, "from", query.StartDate, "to", query.EndDate, "lessons", len(lessons))

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, lessons, s.cfg.CacheTTL)
	}
	return lessons, nil
}

func (s *ScheduleService) fetch(ctx context.Context, query models.TimetableQuery) (string, error) {
	waitStart := time.Now()
	session, err := s.pool.Acquire(ctx)
	if s.metrics != nil {
		s.metrics.ObserveBrowserWait(time.Since(waitStart))
	}
	if err != nil {
		return "", appErrors.WrapAs(err, appErrors.ErrFetchFailed, "no browser available")
	}
	defer s.pool.Release(session)
	return s.fetcher.Fetch(ctx, session, query, s.cfg.Fetch)
}

func (s *ScheduleService) syncQuery(req dto.SyncRequest) (models.TimetableQuery, error) {
	loc := time.UTC
	if s.planner != nil {
		loc = s.planner.Location()
	}
	start, err := parseISODate(req.StartDate, loc)
	if err != nil {
		return models.TimetableQuery{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "start_date must be an ISO-8601 date or timestamp")
	}
	end, err := parseISODate(req.EndDate, loc)
	if err != nil {
		return models.TimetableQuery{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "end_date must be an ISO-8601 date or timestamp")
	}
	group := strings.TrimSpace(req.Group)
	if group == "" {
		group = s.cfg.DefaultGroup
	}
	if group == "" {
		return models.TimetableQuery{}, appErrors.Clone(appErrors.ErrValidation, "group is required when no default group is configured")
	}
	query := models.TimetableQuery{
		Group:     group,
		StartDate: start.Format(models.SiteDateLayout),
		EndDate:   end.Format(models.SiteDateLayout),
	}
	return query, checkRange(query)
}

func (s *ScheduleService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

func (s *ScheduleService) observeOutcome(status models.SyncStatus) {
	if s.metrics != nil {
		s.metrics.ObserveSyncOutcome(status)
	}
}

// parseISODate accepts an RFC 3339 timestamp or a bare date and returns the
// calendar day it falls on in loc.
func parseISODate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.In(loc), nil
	}
	return time.ParseInLocation(models.DateLayout, raw, loc)
}

func checkRange(query models.TimetableQuery) error {
	start, errStart := time.Parse(models.SiteDateLayout, query.StartDate)
	end, errEnd := time.Parse(models.SiteDateLayout, query.EndDate)
	if errStart != nil || errEnd != nil {
		return appErrors.Clone(appErrors.ErrValidation, "dates must use the dd.mm.yyyy format")
	}
	if end.Before(start) {
		return appErrors.Clone(appErrors.ErrValidation, "end date is before start date")
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing field: %s", name)
	case "sitedate":
		return fmt.Sprintf("invalid date format for %s, expected dd.mm.yyyy", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, fe.Param())
	default:
		return fmt.Sprintf("invalid value for %s", name)
	}
}
