package handler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

var (
	ErrHandlerRequired = errors.New("loop: handler is required")
	ErrAlreadyStarted  = errors.New("loop: start called multiple times")
	ErrNotStarted      = errors.New("loop: not started")
	ErrStopped         = errors.New("loop: stopped")
)

// Handler processes requests submitted to the loop.
type Handler interface {
	Handle(ctx context.Context, req any) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req any) error

func (f HandlerFunc) Handle(ctx context.Context, req any) error { return f(ctx, req) }

// Config controls the behaviour of the single thread loop.
type Config struct {
	Handler   Handler
	QueueSize int
}

// Loop delivers incoming requests to the provided handler on a single goroutine.
// Player commands go through it so that they are applied one at a time, in arrival order.
type Loop struct {
	handler Handler
	queue   chan any

	started atomic.Bool
	stopped atomic.Bool

	stop chan struct{}
	done chan struct{}
}

// New creates a Loop with the supplied configuration.
func New(cfg Config) (*Loop, error) {
	if cfg.Handler == nil {
		return nil, ErrHandlerRequired
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Loop{
		handler: cfg.Handler,
		queue:   make(chan any, queueSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start launches the single-thread loop. It must be called once.
func (l *Loop) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go l.run(ctx)
	return nil
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "loop: context cancelled, shutting down", "err", ctx.Err())
			return
		case <-l.stop:
			slog.DebugContext(ctx, "loop: stopped, exiting", "pending", len(l.queue))
			return
		case req := <-l.queue:
			if err := l.handler.Handle(ctx, req); err != nil && !errors.Is(err, context.Canceled) {
				slog.WarnContext(ctx, "loop: handler error", "err", err)
			}
		}
	}
}

// Submit enqueues a request to be processed by the loop.
func (l *Loop) Submit(ctx context.Context, req any) error {
	if !l.started.Load() {
		return ErrNotStarted
	}
	if l.stopped.Load() {
		return ErrStopped
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stop:
		return ErrStopped
	case <-l.done:
		return ErrStopped
	case l.queue <- req:
		return nil
	}
}

// Stop stops accepting requests and waits for the in-flight one to finish.
// Requests still queued are discarded.
func (l *Loop) Stop(ctx context.Context) error {
	if !l.stopped.CompareAndSwap(false, true) {
		return ErrStopped
	}
	if !l.started.Load() {
		return nil
	}
	close(l.stop)
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DrainTimeout stops the loop and waits for completion with the given timeout.
func (l *Loop) DrainTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return l.Stop(ctx)
}
