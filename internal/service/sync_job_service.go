package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/dto"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/jobs"
)

const (
	syncJobType      = "schedule_sync"
	finishedJobTTL   = 24 * time.Hour
	syncJobQueueName = "sync-jobs"
)

type syncRunner interface {
	SyncSchedule(ctx context.Context, req dto.SyncRequest) (*models.SyncOutcome, error)
}

// SyncJobConfig tunes the background sync queue.
type SyncJobConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// SyncJobService runs schedule syncs in the background and tracks their status in memory.
type SyncJobService struct {
	runner    syncRunner
	queue     *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.RWMutex
	jobs map[string]*models.SyncJob
}

// NewSyncJobService wires the queue. Only calendar outages are retried.
func NewSyncJobService(runner syncRunner, cfg SyncJobConfig, validate *validator.Validate, logger *zap.Logger) *SyncJobService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SyncJobService{
		runner:    runner,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		jobs:      make(map[string]*models.SyncJob),
	}
	s.queue = jobs.NewQueue(syncJobQueueName, s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		RetryIf: func(err error) bool {
			return errors.Is(err, appErrors.ErrCalendarUnavailable)
		},
		OnGiveUp: s.giveUp,
		Logger:   logger,
	})
	return s
}

// Start launches the workers.
func (s *SyncJobService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for the workers to exit.
func (s *SyncJobService) Stop() {
	s.queue.Stop()
}

// Enqueue validates the request and queues it.
func (s *SyncJobService) Enqueue(ctx context.Context, req dto.SyncRequest) (*models.SyncJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	s.prune()

	now := s.now().UTC()
	job := &models.SyncJob{
		Status:    models.SyncJobQueued,
		Group:     req.Group,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		CreatedAt: now,
	}
	s.mu.Lock()
	id, err := s.queue.Enqueue(jobs.Job{Type: syncJobType, Payload: req, Enqueued: now})
	if err != nil {
		s.mu.Unlock()
		return nil, appErrors.WrapAs(err, appErrors.ErrQueueUnavailable, "")
	}
	job.ID = id
	s.jobs[id] = job
	snapshot := *job
	s.mu.Unlock()

	s.logger.Sugar().Infow("sync job queued", "job_id", id, "group", req.Group)
	return &snapshot, nil
}

// Get returns a copy of the job.
func (s *SyncJobService) Get(ctx context.Context, id string) (*models.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sync job not found")
	}
	snapshot := *job
	return &snapshot, nil
}

func (s *SyncJobService) handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.SyncRequest)
	if !ok {
		return appErrors.Clone(appErrors.ErrInternal, "unexpected sync job payload")
	}
	s.update(job.ID, func(j *models.SyncJob) {
		j.Status = models.SyncJobProcessing
		j.Attempts = job.Attempt + 1
	})

	outcome, err := s.runner.SyncSchedule(ctx, req)
	if err != nil {
		s.update(job.ID, func(j *models.SyncJob) { j.Error = err.Error() })
		return err
	}

	finished := s.now().UTC()
	s.update(job.ID, func(j *models.SyncJob) {
		j.Status = models.SyncJobFinished
		j.Outcome = outcome
		j.Error = ""
		j.FinishedAt = &finished
	})
	s.logger.Sugar().Infow("sync job finished", "job_id", job.ID, "status", outcome.Status)
	return nil
}

func (s *SyncJobService) giveUp(job jobs.Job, err error) {
	finished := s.now().UTC()
	s.update(job.ID, func(j *models.SyncJob) {
		j.Status = models.SyncJobFailed
		j.Error = err.Error()
		j.FinishedAt = &finished
	})
}

func (s *SyncJobService) update(id string, fn func(*models.SyncJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		fn(job)
	}
}

func (s *SyncJobService) prune() {
	cutoff := s.now().Add(-finishedJobTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}
