package browser

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
)

type fakeSession struct {
	id      int
	healthy atomic.Bool
	closed  atomic.Bool
}

func (s *fakeSession) Submit(ctx context.Context, query models.TimetableQuery) (string, error) {
	return "", nil
}

func (s *fakeSession) Healthy() bool { return s.healthy.Load() && !s.closed.Load() }

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

func countingFactory(started *int32) Factory {
	return func() (Session, error) {
		n := atomic.AddInt32(started, 1)
		s := &fakeSession{id: int(n)}
		s.healthy.Store(true)
		return s, nil
	}
}

func TestPoolReusesInstance(t *testing.T) {
	var started int32
	pool := NewPool(1, countingFactory(&started), nil)

	first, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(first)

	second, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, started)
	pool.Release(second)
}

func TestPoolBlocksUntilReleaseOrCancel(t *testing.T) {
	var started int32
	pool := NewPool(1, countingFactory(&started), nil)

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	got := make(chan Session, 1)
	go func() {
		s, err := pool.Acquire(context.Background())
		if err == nil {
			got <- s
		}
	}()
	pool.Release(held)
	select {
	case s := <-got:
		assert.Same(t, held, s)
	case <-time.After(time.Second):
		t.Fatal("waiting caller was not handed the released browser")
	}
}

func TestPoolReplacesBrokenInstance(t *testing.T) {
	var started int32
	pool := NewPool(1, countingFactory(&started), nil)

	first, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	first.(*fakeSession).healthy.Store(false)
	pool.Release(first)
	assert.True(t, first.(*fakeSession).closed.Load())

	second, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, started)
}

func TestPoolFactoryErrorFreesSlot(t *testing.T) {
	calls := 0
	pool := NewPool(1, func() (Session, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("chrome not found")
		}
		s := &fakeSession{}
		s.healthy.Store(true)
		return s, nil
	}, nil)

	_, err := pool.Acquire(context.Background())
	require.Error(t, err)

	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestPoolClose(t *testing.T) {
	var started int32
	pool := NewPool(2, countingFactory(&started), nil)

	idle, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	lent, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(idle)

	pool.Close()
	assert.True(t, idle.(*fakeSession).closed.Load())

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)

	pool.Release(lent)
	assert.True(t, lent.(*fakeSession).closed.Load())
}

func TestCookieConversion(t *testing.T) {
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	params := toCookieParams([]models.Cookie{
		{Name: "session", Value: "v", Domain: "desk.nuwm.edu.ua", Path: "/", Secure: true, HTTPOnly: true, Expires: expires},
		{Name: "pref", Value: "1", Domain: "desk.nuwm.edu.ua", Path: "/"},
	})
	require.Len(t, params, 2)
	require.NotNil(t, params[0].Expires)
	assert.True(t, params[0].Expires.Time().Equal(expires))
	assert.Nil(t, params[1].Expires)
}

func TestJSString(t *testing.T) {
	lit, err := jsString(`Будь ласка, "увійдіть"`)
	require.NoError(t, err)
	assert.Equal(t, `"Будь ласка, \"увійдіть\""`, lit)
}
