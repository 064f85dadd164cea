package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
)

type cacheRepoStub struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	readErr error
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if r.readErr != nil {
		return r.readErr
	}
	raw, ok := r.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.data[key] = raw
	r.ttls[key] = ttl
	return nil
}

type cacheMetricsStub struct {
	hits, misses, writes int
}

func (m *cacheMetricsStub) RecordCacheOperation(hit bool, duration time.Duration) {
	if hit {
		m.hits++
		return
	}
	m.misses++
}

func (m *cacheMetricsStub) ObserveCacheWrite(duration time.Duration) { m.writes++ }

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newCacheRepoStub()
	metrics := &cacheMetricsStub{}
	svc := NewCacheService(repo, metrics, 5*time.Minute, nil, true)
	key := models.TimetableQuery{Group: "КН-21", StartDate: "02.09.2024", EndDate: "06.09.2024"}.CacheKey()

	var lessons []models.LessonRecord
	hit, err := svc.Get(context.Background(), key, &lessons)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), key, []models.LessonRecord{{Subject: "Фізика"}}, 0))
	assert.Equal(t, 5*time.Minute, repo.ttls[key])

	hit, err = svc.Get(context.Background(), key, &lessons)
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, lessons, 1)
	assert.Equal(t, "Фізика", lessons[0].Subject)

	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, metrics.writes)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newCacheRepoStub()
	svc := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", []int{1}, time.Minute))
	assert.Empty(t, repo.data)

	var out []int
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceReadFailure(t *testing.T) {
	repo := newCacheRepoStub()
	repo.readErr = errors.New("connection reset")
	svc := NewCacheService(repo, nil, 0, nil, true)

	var out []int
	hit, err := svc.Get(context.Background(), "k", &out)
	require.Error(t, err)
	assert.False(t, hit)
}
