package loop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Runner is a goroutine-backed Loop. Callbacks run on the goroutine that
// called Run.
type Runner struct {
	logger *slog.Logger

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewRunner creates a Runner. Nothing executes until Run is called.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Post is safe to call from any goroutine.
func (r *Runner) Post(fn func()) {
	r.mu.Lock()
	r.queue = append(r.queue, fn)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default: // already signalled
	}
}

// AfterFunc is safe to call from any goroutine.
func (r *Runner) AfterFunc(d time.Duration, fn func()) Timer {
	t := &runnerTimer{}
	t.timer = time.AfterFunc(d, func() {
		r.Post(func() {
			if t.stopped.Load() {
				return
			}
			t.fired.Store(true)
			fn()
		})
	})
	return t
}

// Run executes posted callbacks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
			r.drain()
		}
	}
}

// Do runs fn on the loop and waits for it to return.
func (r *Runner) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	r.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("loop call: %w", ctx.Err())
	}
}

func (r *Runner) drain() {
	for {
		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		r.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			r.invoke(fn)
		}
	}
}

func (r *Runner) invoke(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("loop callback panicked", "panic", rec)
		}
	}()
	fn()
}

type runnerTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
	fired   atomic.Bool
}

func (t *runnerTimer) Stop() bool {
	if t.fired.Load() || t.stopped.Swap(true) {
		return false
	}
	t.timer.Stop()
	return true
}
