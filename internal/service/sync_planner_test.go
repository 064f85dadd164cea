package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
)

type fakeCalendar struct {
	mu           sync.Mutex
	ids          []string
	listErr      error
	failDelete   map[string]bool
	failInsert   map[string]bool
	deleted      []string
	inserted     []models.CalendarEvent
	insertBefore int
	inFlight     int
	maxInFlight  int
}

func (f *fakeCalendar) enter() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	time.Sleep(time.Millisecond)
}

func (f *fakeCalendar) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeCalendar) ListEventIDs(ctx context.Context) ([]string, error) {
	return f.ids, f.listErr
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, id string) error {
	f.enter()
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inserted) > 0 {
		f.insertBefore++
	}
	if f.failDelete[id] {
		return errors.New("delete rejected")
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCalendar) InsertEvent(ctx context.Context, event models.CalendarEvent) (string, error) {
	f.enter()
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert[event.Summary] {
		return "", errors.New("insert rejected")
	}
	f.inserted = append(f.inserted, event)
	return fmt.Sprintf("evt-%d", len(f.inserted)), nil
}

type callCounter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *callCounter) ObserveCalendarCall(op models.SyncOperation, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[fmt.Sprintf("%s:%t", op, ok)]++
}

func newTestPlanner(t *testing.T, concurrency int, metrics calendarObserver) *SyncPlanner {
	t.Helper()
	planner, err := NewSyncPlanner(SyncPlannerConfig{CalendarID: "primary", TimeZone: "Europe/Kyiv", Concurrency: concurrency}, metrics, nil)
	require.NoError(t, err)
	return planner
}

func lessons() []models.LessonRecord {
	return []models.LessonRecord{
		{Date: "2024-09-02", LessonNumber: "1", Time: "08:30-09:50", Start: "08:30", End: "09:50", Teacher: "Доцент Іванов", Group: models.WholeGroup, Subject: "Математика"},
		{Date: "2024-09-02", LessonNumber: "2", Time: "за домовленістю", Group: models.WholeGroup, Subject: "Консультація"},
		{Date: "2024-09-03", LessonNumber: "1", Time: "08:30-09:50", Start: "08:30", End: "09:50", Teacher: "Професор Коваль", Group: models.WholeGroup, Subject: "Історія", Remote: true},
	}
}

func TestSyncPlannerReplacesCalendar(t *testing.T) {
	cal := &fakeCalendar{ids: []string{"a", "b", "c", "d", "e", "f"}}
	metrics := &callCounter{}
	planner := newTestPlanner(t, 2, metrics)

	result, err := planner.Sync(context.Background(), cal, lessons())

	require.NoError(t, err)
	assert.Equal(t, 6, result.Listed)
	assert.Equal(t, 6, result.Deleted)
	assert.Equal(t, 2, result.Inserted)
	assert.Empty(t, result.Failures)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 1, result.Skipped[0].RecordIndex)
	assert.Equal(t, "Консультація", result.Skipped[0].Subject)
	assert.Zero(t, cal.insertBefore, "inserts must start after every delete finished")
	assert.LessOrEqual(t, cal.maxInFlight, 2)
	assert.Equal(t, 1, metrics.calls["list:true"])
	assert.Equal(t, 6, metrics.calls["delete:true"])
	assert.Equal(t, 2, metrics.calls["insert:true"])
}

func TestSyncPlannerBuildsEvents(t *testing.T) {
	planner := newTestPlanner(t, 1, nil)
	records := lessons()

	onsite, err := planner.BuildEvent(records[0])
	require.NoError(t, err)
	assert.Equal(t, "Математика - Доцент Іванов", onsite.Summary)
	assert.Equal(t, "Аудиторно", onsite.Description)
	assert.Equal(t, "Europe/Kyiv", onsite.TimeZone)
	assert.Equal(t, "2024-09-02T08:30:00+03:00", onsite.Start.Format(time.RFC3339))
	assert.Equal(t, "2024-09-02T09:50:00+03:00", onsite.End.Format(time.RFC3339))

	remote, err := planner.BuildEvent(records[2])
	require.NoError(t, err)
	assert.Equal(t, "Дистанційно", remote.Description)

	_, err = planner.BuildEvent(records[1])
	require.Error(t, err)
}

func TestSyncPlannerAccumulatesFailures(t *testing.T) {
	cal := &fakeCalendar{
		ids:        []string{"a", "b", "c"},
		failDelete: map[string]bool{"b": true},
		failInsert: map[string]bool{"Історія - Професор Коваль": true},
	}
	planner := newTestPlanner(t, 4, nil)

	result, err := planner.Sync(context.Background(), cal, lessons())

	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrSyncPartial)
	var partial *SyncPartialFailure
	require.True(t, errors.As(err, &partial))
	require.Len(t, partial.Failures, 2)

	require.NotNil(t, result)
	assert.Equal(t, 2, result.Deleted)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, models.SyncOperationDelete, result.Failures[0].Operation)
	assert.Equal(t, "b", result.Failures[0].EventID)
	assert.Equal(t, models.SyncOperationInsert, result.Failures[1].Operation)
	assert.Equal(t, 2, result.Failures[1].RecordIndex)
	assert.ElementsMatch(t, []string{"a", "c"}, cal.deleted)
}

func TestSyncPlannerListFailureTouchesNothing(t *testing.T) {
	cal := &fakeCalendar{listErr: errors.New("503 backend error")}
	planner := newTestPlanner(t, 4, nil)

	result, err := planner.Sync(context.Background(), cal, lessons())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, appErrors.ErrCalendarUnavailable)
	assert.Empty(t, cal.deleted)
	assert.Empty(t, cal.inserted)
}

func TestNewSyncPlannerRejectsUnknownZone(t *testing.T) {
	_, err := NewSyncPlanner(SyncPlannerConfig{TimeZone: "Mars/Olympus"}, nil, nil)
	require.Error(t, err)
}
