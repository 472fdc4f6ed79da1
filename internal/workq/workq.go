// internal/workq/workq.go
package workq

import (
	"context"
	"sync"
)

// Runner executes submitted tasks one at a time on a single goroutine.
// Submission order is execution order. Tasks may sleep; nothing else is
// scheduled on the runner while they do.
type Runner struct {
	q       chan func()
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// New creates a runner with the given queue depth.
func New(depth int) *Runner {
	if depth <= 0 {
		depth = 16 // safe default
	}
	return &Runner{
		q:       make(chan func(), depth),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches the runner goroutine. It exits when ctx is cancelled or
// Close is called; tasks still queued at that point never run.
func (r *Runner) Start(ctx context.Context) {
	go func() {
		defer close(r.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.quit:
				return
			case fn := <-r.q:
				if fn != nil {
					fn()
				}
			}
		}
	}()
}

// Submit queues a task. It returns false if the queue is full or the
// runner has been closed; the caller decides whether that is a drop or a
// retry.
func (r *Runner) Submit(fn func()) bool {
	select {
	case <-r.quit:
		return false
	default:
	}
	select {
	case r.q <- fn:
		return true
	default:
		return false
	}
}

// Drain blocks until every task submitted before the call has finished.
// It inserts a barrier task and waits for it; tasks submitted concurrently
// with Drain may or may not be covered.
func (r *Runner) Drain() {
	done := make(chan struct{})
	select {
	case r.q <- func() { close(done) }:
	case <-r.quit:
		return
	case <-r.stopped:
		return
	}
	select {
	case <-done:
	case <-r.stopped:
	}
}

// Close stops the runner goroutine and waits for it to exit. Tasks queued
// but not yet started are discarded; callers needing completion run Drain
// first.
func (r *Runner) Close() {
	r.once.Do(func() { close(r.quit) })
	<-r.stopped
}

// Stopped returns a channel closed once the runner goroutine has exited.
func (r *Runner) Stopped() <-chan struct{} { return r.stopped }
