package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/dto"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/response"
)

type syncServiceMock struct {
	outcome *models.SyncOutcome
	err     error
	got     dto.SyncRequest
}

func (m *syncServiceMock) SyncSchedule(ctx context.Context, req dto.SyncRequest) (*models.SyncOutcome, error) {
	m.got = req
	return m.outcome, m.err
}

type syncJobServiceMock struct {
	jobs map[string]*models.SyncJob
	err  error
}

func (m *syncJobServiceMock) Enqueue(ctx context.Context, req dto.SyncRequest) (*models.SyncJob, error) {
	if m.err != nil {
		return nil, m.err
	}
	job := &models.SyncJob{ID: "job-1", Status: models.SyncJobQueued, Group: req.Group, CreatedAt: time.Now()}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *syncJobServiceMock) Get(ctx context.Context, id string) (*models.SyncJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sync job not found")
	}
	return job, nil
}

const syncPayload = `{"access_token":"ya29.token","start_date":"2024-09-02","end_date":"2024-09-06"}`

func postJSON(c *gin.Context, path, payload string) {
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
}

func TestSyncHandlerSync(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &syncServiceMock{outcome: &models.SyncOutcome{
		Status:  models.SyncStatusSynced,
		Lessons: []models.LessonRecord{sampleLesson(), sampleLesson(), sampleLesson()},
		Sync:    &models.SyncResult{CalendarID: "primary", Listed: 2, Deleted: 2, Inserted: 3},
	}}
	h := NewSyncHandler(svc, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/api/v1/sync", syncPayload)

	h.Sync(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ya29.token", svc.got.AccessToken)
	assert.Equal(t, "2024-09-02", svc.got.StartDate)

	var body models.SyncOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.SyncStatusSynced, body.Status)
	require.NotNil(t, body.Sync)
	assert.Equal(t, 3, body.Sync.Inserted)
}

func TestSyncHandlerSyncCalendarDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSyncHandler(&syncServiceMock{err: appErrors.Clone(appErrors.ErrCalendarUnavailable, "listing events failed")}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/api/v1/sync", syncPayload)

	h.Sync(c)

	require.Equal(t, http.StatusBadGateway, w.Code)
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "CALENDAR_UNAVAILABLE", body.Code)
}

func TestSyncHandlerSyncRejectsNonJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &syncServiceMock{}
	h := NewSyncHandler(svc, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/api/v1/sync", "not json")

	h.Sync(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.got.AccessToken)
}

func TestSyncHandlerJobs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jobs := &syncJobServiceMock{jobs: map[string]*models.SyncJob{}}
	h := NewSyncHandler(&syncServiceMock{}, jobs)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/api/v1/sync/jobs", syncPayload)

	h.Enqueue(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted dto.SyncJobAccepted
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Equal(t, "job-1", accepted.JobID)
	assert.Equal(t, string(models.SyncJobQueued), accepted.Status)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/sync/jobs/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	h.Job(c)

	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/sync/jobs/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Job(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncHandlerJobsDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSyncHandler(&syncServiceMock{}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/api/v1/sync/jobs", syncPayload)

	h.Enqueue(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
