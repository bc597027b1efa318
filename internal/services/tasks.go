package services

import (
	"context"
	"log"
	"sync"

	"github.com/go-xpost/xpost/internal/metrics"
)

// Task is one scheduled unit of background work. Done is closed when the
// work finishes; Err then reports its outcome.
type Task struct {
	done chan struct{}

	mu  sync.Mutex
	err error
}

// Done returns a channel closed when the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task's final error. Valid only after Done is closed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// Runner executes background tasks with a global concurrency cap. Each
// submission gets its own goroutine; goroutines beyond the cap block on
// the semaphore before starting work, so Go never blocks the caller.
type Runner struct {
	sem     chan struct{}
	metrics metrics.Recorder

	taskCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	wg       sync.WaitGroup
	closed   bool
	inFlight int
}

// NewRunner creates a task runner allowing at most maxConcurrent tasks
// to run at once. Values below 1 are treated as 1.
func NewRunner(maxConcurrent int, m metrics.Recorder) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	taskCtx, cancel := context.WithCancel(context.Background())
	return &Runner{
		sem:     make(chan struct{}, maxConcurrent),
		metrics: m,
		taskCtx: taskCtx,
		cancel:  cancel,
	}
}

// Go schedules fn on its own goroutine and returns immediately. The
// context passed to fn is detached from any request; it is cancelled
// when the runner's Shutdown drain deadline expires, so tasks still
// running at that point get a stop signal at their next I/O boundary.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) (*Task, error) {
	task := &Task{done: make(chan struct{})}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRunnerClosed
	}
	r.wg.Add(1)
	r.inFlight++
	r.metrics.SetUploadsInFlight(r.inFlight)
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.inFlight--
			r.metrics.SetUploadsInFlight(r.inFlight)
			r.mu.Unlock()
			r.wg.Done()
		}()

		r.sem <- struct{}{}
		defer func() { <-r.sem }()

		err := fn(r.taskCtx)
		if err != nil {
			log.Printf("[Tasks] %s finished with error: %v", name, err)
		}
		task.finish(err)
	}()

	return task, nil
}

// Shutdown stops accepting new tasks and waits for in-flight tasks to
// drain. If ctx expires first, the shared task context is cancelled so
// stragglers stop at their next blocking call, and ctx.Err() is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	pending := r.inFlight
	r.mu.Unlock()

	if pending > 0 {
		log.Printf("[Tasks] Draining %d in-flight task(s)", pending)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		log.Println("[Tasks] Drain deadline reached, cancelling remaining tasks")
		r.cancel()
		return ctx.Err()
	}
}
