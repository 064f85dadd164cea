package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/dto"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
)

type scriptedRunner struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (r *scriptedRunner) SyncSchedule(ctx context.Context, req dto.SyncRequest) (*models.SyncOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.calls
	r.calls++
	if idx < len(r.errs) && r.errs[idx] != nil {
		return nil, r.errs[idx]
	}
	return &models.SyncOutcome{Status: models.SyncStatusSynced}, nil
}

func (r *scriptedRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func startJobService(t *testing.T, runner syncRunner, retries int) *SyncJobService {
	t.Helper()
	svc := NewSyncJobService(runner, SyncJobConfig{Workers: 1, MaxRetries: retries, RetryDelay: 5 * time.Millisecond}, nil, nil)
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func waitForStatus(t *testing.T, svc *SyncJobService, id string, status models.SyncJobStatus) *models.SyncJob {
	t.Helper()
	var job *models.SyncJob
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.Get(context.Background(), id)
		return err == nil && job.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestSyncJobServiceRunsJob(t *testing.T) {
	runner := &scriptedRunner{}
	svc := startJobService(t, runner, 2)

	job, err := svc.Enqueue(context.Background(), syncRequest())
	require.NoError(t, err)
	assert.Equal(t, models.SyncJobQueued, job.Status)
	require.NotEmpty(t, job.ID)

	done := waitForStatus(t, svc, job.ID, models.SyncJobFinished)
	require.NotNil(t, done.Outcome)
	assert.Equal(t, models.SyncStatusSynced, done.Outcome.Status)
	assert.NotNil(t, done.FinishedAt)
}

func TestSyncJobServiceRetriesCalendarOutage(t *testing.T) {
	runner := &scriptedRunner{errs: []error{appErrors.Clone(appErrors.ErrCalendarUnavailable, "")}}
	svc := startJobService(t, runner, 2)

	job, err := svc.Enqueue(context.Background(), syncRequest())
	require.NoError(t, err)

	done := waitForStatus(t, svc, job.ID, models.SyncJobFinished)
	assert.Equal(t, 2, done.Attempts)
	assert.Equal(t, 2, runner.count())
}

func TestSyncJobServiceDoesNotRetryOtherFailures(t *testing.T) {
	runner := &scriptedRunner{errs: []error{appErrors.Clone(appErrors.ErrAuthRequired, ""), nil}}
	svc := startJobService(t, runner, 2)

	job, err := svc.Enqueue(context.Background(), syncRequest())
	require.NoError(t, err)

	failed := waitForStatus(t, svc, job.ID, models.SyncJobFailed)
	assert.Contains(t, failed.Error, "sign in")
	assert.Equal(t, 1, runner.count())
}

func TestSyncJobServiceValidationAndLookup(t *testing.T) {
	svc := startJobService(t, &scriptedRunner{}, 0)

	_, err := svc.Enqueue(context.Background(), dto.SyncRequest{StartDate: "2024-09-01"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSyncJobServiceQueueStopped(t *testing.T) {
	svc := NewSyncJobService(&scriptedRunner{}, SyncJobConfig{}, nil, nil)

	_, err := svc.Enqueue(context.Background(), syncRequest())
	assert.True(t, errors.Is(err, appErrors.ErrQueueUnavailable))
}
