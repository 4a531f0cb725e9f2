package forum

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type task struct {
	name string
	fn   func(context.Context) error
}

// TaskRunner executes fire-and-forget side effects (repo tracking, mention
// notifications) after the primary transaction commits. Task failure is
// logged and counted but never rolled back into the primary result.
type TaskRunner struct {
	logger *slog.Logger
	ch     chan task
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewTaskRunner(logger *slog.Logger) *TaskRunner {
	r := &TaskRunner{
		logger: logger,
		ch:     make(chan task, 256),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *TaskRunner) run() {
	defer r.wg.Done()
	for t := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		start := time.Now()
		if err := t.fn(ctx); err != nil {
			postCommitTaskCount.WithLabelValues(t.name, "error").Inc()
			r.logger.Warn("post-commit task failed", "task", t.name, "err", err, "duration", time.Since(start))
		} else {
			postCommitTaskCount.WithLabelValues(t.name, "ok").Inc()
		}
		cancel()
	}
}

// Enqueue schedules a task. If the queue is full, or the runner has already
// shut down, the task is dropped with a warning rather than blocking the
// request path.
func (r *TaskRunner) Enqueue(name string, fn func(context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		postCommitTaskCount.WithLabelValues(name, "dropped").Inc()
		r.logger.Warn("post-commit task runner stopped, dropping task", "task", name)
		return
	}
	select {
	case r.ch <- task{name: name, fn: fn}:
	default:
		postCommitTaskCount.WithLabelValues(name, "dropped").Inc()
		r.logger.Warn("post-commit task queue full, dropping task", "task", name)
	}
}

// Shutdown stops accepting tasks and waits for in-flight ones, up to the
// context deadline.
func (r *TaskRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("task runner shutdown: %w", ctx.Err())
	}
}
