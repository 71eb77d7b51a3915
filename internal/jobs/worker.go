package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nyumba/nyumba-api/pkg/logger"
)

// Job is a unit of background work. It receives the worker's context so
// in-flight jobs observe shutdown.
type Job func(ctx context.Context) error

// Worker runs fire-and-forget side effects (receipts, emails, SMS) and
// scheduled jobs like the daily billing sweep. Concurrency is bounded by
// a semaphore so a burst of webhook callbacks cannot spawn unbounded
// goroutines.
type Worker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	sem           chan struct{}
	maxConcurrent int
	stats         WorkerStats
	statsMu       sync.RWMutex
}

// WorkerStats is a snapshot of worker activity for the jobs status endpoint.
type WorkerStats struct {
	ActiveJobs    int   `json:"active_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	MaxConcurrent int   `json:"max_concurrent"`
}

// NewWorker returns a worker allowing up to maxConcurrent jobs at once.
// Values below 1 are raised to a usable floor.
func NewWorker(maxConcurrent int) *Worker {
	if maxConcurrent < 1 {
		maxConcurrent = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		ctx:           ctx,
		cancel:        cancel,
		sem:           make(chan struct{}, maxConcurrent),
		maxConcurrent: maxConcurrent,
	}
}

// EnqueueAsync runs job in its own goroutine, blocking on the semaphore
// when the worker is saturated. Errors and panics are logged, never
// propagated; callers treat these jobs as best effort.
func (w *Worker) EnqueueAsync(job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		select {
		case w.sem <- struct{}{}:
			defer func() { <-w.sem }()
		case <-w.ctx.Done():
			return
		}

		w.runJob("async", job)
	}()
}

// ScheduleEvery runs job at fixed intervals. The first run happens after
// one interval, not at registration.
func (w *Worker) ScheduleEvery(interval time.Duration, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.runJob("scheduled", job)
			}
		}
	}()
}

// ScheduleAt runs job once at the given time. Past times fire immediately.
func (w *Worker) ScheduleAt(at time.Time, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		timer := time.NewTimer(time.Until(at))
		defer timer.Stop()

		select {
		case <-w.ctx.Done():
			return
		case <-timer.C:
			w.runJob("scheduled", job)
		}
	}()
}

func (w *Worker) runJob(kind string, job Job) {
	w.trackStart()
	defer w.trackEnd()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("[Worker] %s job panic: %v", kind, r))
			w.trackFailure()
		}
	}()

	start := time.Now()
	if err := job(w.ctx); err != nil {
		logger.Error(fmt.Sprintf("[Worker] %s job error: %v", kind, err))
		w.trackFailure()
		return
	}
	logger.Debug(fmt.Sprintf("[Worker] %s job completed in %v", kind, time.Since(start)))
}

// Shutdown cancels the worker context and waits for in-flight jobs and
// schedulers to exit.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}

// GetStats returns a copy of the current counters. CompletedJobs counts
// every finished job; FailedJobs is the errored subset.
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.MaxConcurrent = w.maxConcurrent
	return stats
}

func (w *Worker) trackStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

func (w *Worker) trackEnd() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++
}

func (w *Worker) trackFailure() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.FailedJobs++
}
