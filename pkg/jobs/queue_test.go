package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRetryable = errors.New("retryable")

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var calls int32
	gaveUp := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errRetryable
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnGiveUp:   func(job Job, err error) { gaveUp <- job },
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue(Job{Type: "sync"})
	require.NoError(t, err)

	select {
	case job := <-gaveUp:
		assert.Equal(t, id, job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was never given up")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueRetryIfStopsEarly(t *testing.T) {
	var calls int32
	gaveUp := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("permanent")
	}, QueueConfig{
		MaxRetries: 5,
		RetryDelay: time.Millisecond,
		RetryIf:    func(err error) bool { return errors.Is(err, errRetryable) },
		OnGiveUp:   func(job Job, err error) { gaveUp <- err },
	})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{})
	require.NoError(t, err)

	select {
	case err := <-gaveUp:
		assert.EqualError(t, err, "permanent")
	case <-time.After(2 * time.Second):
		t.Fatal("job was never given up")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	_, err := q.Enqueue(Job{})
	require.Error(t, err)
}

func TestQueueFullBuffer(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(release)
		q.Stop()
	}()

	var full bool
	for i := 0; i < 4; i++ {
		if _, err := q.Enqueue(Job{}); err != nil {
			full = true
			break
		}
	}
	assert.True(t, full)
}
