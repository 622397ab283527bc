package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrTaskPanicked is reported to the failure hook when a task panics.
var ErrTaskPanicked = errors.New("scheduler: task panicked")

// Task is a long-running unit of work. It must return once ctx is cancelled.
type Task func(ctx context.Context) error

// Pool runs independent tasks on a bounded number of goroutines.
// A failing task is logged and dropped; it never cancels its siblings.
type Pool struct {
	eg     *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	running atomic.Int32
	closed  atomic.Bool

	onFailure func(name string, err error)
}

// New creates a Pool that runs at most size tasks at once.
func New(ctx context.Context, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	eg := &errgroup.Group{}
	eg.SetLimit(size)
	return &Pool{
		eg:     eg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnFailure registers a hook called when a task returns an error or panics.
func (p *Pool) OnFailure(fn func(name string, err error)) {
	p.onFailure = fn
}

// Go starts task unless the pool is saturated or shut down.
func (p *Pool) Go(name string, task Task) bool {
	if p.closed.Load() {
		return false
	}
	return p.eg.TryGo(func() error {
		p.running.Add(1)
		defer p.running.Add(-1)
		p.run(name, task)
		return nil
	})
}

func (p *Pool) run(name string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %s: %v", ErrTaskPanicked, name, r)
			slog.ErrorContext(p.ctx, "task panicked", "task", name, "panic", r, "stack", string(debug.Stack()))
			p.fail(name, err)
		}
	}()
	err := task(p.ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	slog.WarnContext(p.ctx, "task failed", "task", name, "err", err)
	p.fail(name, err)
}

func (p *Pool) fail(name string, err error) {
	if p.onFailure != nil {
		p.onFailure(name, err)
	}
}

// Running reports the number of tasks currently executing.
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// Context returns the cancellation token shared by every task.
func (p *Pool) Context() context.Context {
	return p.ctx
}

// Shutdown cancels every task and waits for them until ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closed.Store(true)
	p.cancel()
	done := make(chan struct{})
	go func() {
		_ = p.eg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every started task has returned.
func (p *Pool) Wait() {
	_ = p.eg.Wait()
}
