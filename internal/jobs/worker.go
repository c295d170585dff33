package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// HandlerFunc runs one job. Returned errors are logged; the job is not retried.
type HandlerFunc func(ctx context.Context, job Job) error

// Worker polls a Queue and dispatches jobs to handlers by name.
type Worker struct {
	queue    *Queue
	interval time.Duration
	batch    int
	now      func() time.Time

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewWorker(queue *Queue, interval time.Duration, batch int) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 20
	}
	return &Worker{
		queue:    queue,
		interval: interval,
		batch:    batch,
		now:      time.Now,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a handler to a job name, replacing any previous one.
func (w *Worker) Register(name string, fn HandlerFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[name] = fn
}

// Handle registers a handler that receives the decoded payload of type T.
func Handle[T any](w *Worker, name string, fn func(ctx context.Context, appID string, payload T) error) {
	w.Register(name, func(ctx context.Context, job Job) error {
		var payload T
		if err := json.Unmarshal(job.Data, &payload); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", name, err)
		}
		return fn(ctx, job.AppID, payload)
	})
}

// Run polls until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				slog.Error("job poll failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce requeues expired jobs, then claims and runs one batch of due jobs.
// It returns how many jobs ran.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	now := w.now()
	if n, err := w.queue.RequeueExpired(ctx, now); err != nil {
		slog.Error("failed to requeue expired jobs", "error", err)
	} else if n > 0 {
		slog.Warn("requeued expired jobs", "count", n)
	}

	claimed, err := w.queue.Claim(ctx, now, w.batch)
	for _, job := range claimed {
		w.process(ctx, job)
	}
	return len(claimed), err
}

func (w *Worker) process(ctx context.Context, job Job) {
	defer func() {
		if err := w.queue.Ack(ctx, job.ID); err != nil {
			slog.Error("failed to ack job", "job_id", job.ID, "action", job.Name, "error", err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panicked", "job_id", job.ID, "action", job.Name, "app_id", job.AppID, "error", fmt.Sprint(r))
		}
	}()

	w.mu.RLock()
	fn, ok := w.handlers[job.Name]
	w.mu.RUnlock()
	if !ok {
		slog.Error("no handler for job", "job_id", job.ID, "action", job.Name)
		return
	}

	start := time.Now()
	if err := fn(ctx, job); err != nil {
		slog.Error("job failed", "job_id", job.ID, "action", job.Name, "app_id", job.AppID, "attempt", job.Attempts, "error", err)
		return
	}
	slog.Info("job done", "job_id", job.ID, "action", job.Name, "app_id", job.AppID,
		"latency_ms", float64(time.Since(start).Microseconds())/1000)
}
