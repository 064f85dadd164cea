package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("browser pool closed")

// Session is a browser instance handed out by the pool.
type Session interface {
	Submit(ctx context.Context, query models.TimetableQuery) (string, error)
	Healthy() bool
	Close() error
}

// Factory starts a new browser instance.
type Factory func() (Session, error)

// Pool lends at most size browser instances, each to one caller at a time.
// Instances are started lazily and replaced when they stop being healthy.
type Pool struct {
	slots   chan Session
	factory Factory
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewPool builds a pool with size slots.
func NewPool(size int, factory Factory, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	slots := make(chan Session, size)
	for i := 0; i < size; i++ {
		slots <- nil
	}
	return &Pool{slots: slots, factory: factory, logger: logger}
}

// Acquire waits for a free slot and returns its instance, starting one when needed.
func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	var session Session
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case session = <-p.slots:
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.slots <- session
		return nil, ErrPoolClosed
	}

	if session != nil && !session.Healthy() {
		p.logger.Warn("replacing unhealthy browser")
		_ = session.Close()
		session = nil
	}
	if session == nil {
		started, err := p.factory()
		if err != nil {
			p.slots <- nil
			return nil, fmt.Errorf("start browser: %w", err)
		}
		session = started
	}
	return session, nil
}

// Release returns session to the pool. Unhealthy instances are closed and their slot
// is refilled on the next Acquire.
func (p *Pool) Release(session Session) {
	if session != nil && !session.Healthy() {
		_ = session.Close()
		session = nil
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed && session != nil {
		_ = session.Close()
		session = nil
	}
	p.slots <- session
}

// Close stops idle instances. Instances still lent out are stopped on Release.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	drained := 0
	for drained < cap(p.slots) {
		select {
		case session := <-p.slots:
			if session != nil {
				_ = session.Close()
			}
			drained++
			continue
		default:
		}
		break
	}
	// Empty slots go back so waiting callers wake up and see ErrPoolClosed.
	for i := 0; i < drained; i++ {
		p.slots <- nil
	}
}
