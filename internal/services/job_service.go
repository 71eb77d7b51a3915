package services

import (
	"context"
	"sync"
	"time"

	"github.com/nyumba/nyumba-api/internal/jobs"
)

// JobService exposes worker health and lets operators trigger the
// billing sweep outside its schedule.
type JobService struct {
	worker     *jobs.Worker
	billingSvc *BillingService

	mu        sync.Mutex
	lastSweep *SweepSummary
}

func NewJobService(worker *jobs.Worker, billingSvc *BillingService) *JobService {
	return &JobService{
		worker:     worker,
		billingSvc: billingSvc,
	}
}

func (s *JobService) GetStatus() map[string]interface{} {
	stats := s.worker.GetStats()
	status := map[string]interface{}{
		"active_jobs":    stats.ActiveJobs,
		"completed_jobs": stats.CompletedJobs,
		"failed_jobs":    stats.FailedJobs,
		"max_concurrent": stats.MaxConcurrent,
	}

	s.mu.Lock()
	if s.lastSweep != nil {
		status["last_sweep"] = s.lastSweep
	}
	s.mu.Unlock()

	return status
}

// RunBillingSweep runs a sweep now and remembers the summary for the
// status endpoint.
func (s *JobService) RunBillingSweep(ctx context.Context) (*SweepSummary, error) {
	summary, err := s.billingSvc.RunDailySweep(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastSweep = summary
	s.mu.Unlock()

	return summary, nil
}
