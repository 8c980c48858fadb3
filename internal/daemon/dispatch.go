package daemon

import (
	"context"
	"sync"
)

// Dispatcher runs a delivery callback on some execution context, such as a
// UI event loop. Dispatch must not block until fn has run.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to the Dispatcher interface, e.g.
// DispatcherFunc(app.QueueUpdateDraw).
type DispatcherFunc func(fn func())

// Dispatch calls f(fn).
func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Queue is an unbounded FIFO executor. Callbacks run one at a time on the
// goroutine that calls Run, in the order they were dispatched.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{}
}

// NewQueue creates an empty Queue. Callbacks only run once Run is started.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Dispatch appends fn to the queue. It never blocks; after Close it is a
// no-op.
func (q *Queue) Dispatch(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run executes queued callbacks until ctx is cancelled or the queue is
// closed. Callbacks still pending at that point are dropped.
func (q *Queue) Run(ctx context.Context) error {
	for {
		fn, ok := q.next()
		if ok {
			fn()
			continue
		}

		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		}
	}
}

// Close stops accepting callbacks and wakes Run so it can return.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.pending = nil
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of callbacks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.pending) == 0 {
		return nil, false
	}
	fn := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return fn, true
}
