package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/Mirai3103/fib-api/internal/config"
	"github.com/Mirai3103/fib-api/internal/core"
	"github.com/Mirai3103/fib-api/internal/logging"
	"github.com/Mirai3103/fib-api/internal/metrics"
	"github.com/Mirai3103/fib-api/internal/models"
)

var log = logging.For("worker")

// JobHandler bounds how many computations run at once. Both transports share one.
type JobHandler struct {
	runner       *core.Runner
	metrics      *metrics.Metrics
	jobSemaphore chan struct{}
}

// NewJobHandler sizes the semaphore from runnerCfg.MaxConcurrentJobs; 0 or a
// nil config means no limit.
func NewJobHandler(runner *core.Runner, runnerCfg *config.RunnerConfig, m *metrics.Metrics) *JobHandler {
	var sem chan struct{}
	maxJobs := 0
	if runnerCfg != nil {
		maxJobs = runnerCfg.MaxConcurrentJobs
	}
	if maxJobs > 0 {
		sem = make(chan struct{}, maxJobs)
		log.Infof("JobHandler initialized with MaxConcurrentJobs: %d", maxJobs)
	} else {
		log.Infof("JobHandler initialized with unlimited concurrent jobs (MaxConcurrentJobs is %d)", maxJobs)
	}

	return &JobHandler{
		runner:       runner,
		metrics:      m,
		jobSemaphore: sem,
	}
}

// Handle waits for a free slot and runs req. The only error is ctx ending
// while waiting.
func (h *JobHandler) Handle(ctx context.Context, req models.FibRequest) (models.FibResult, error) {
	h.metrics.ObserveRequest(string(req.Source))

	if h.jobSemaphore != nil {
		now := time.Now()
		select {
		case h.jobSemaphore <- struct{}{}:
		case <-ctx.Done():
			return models.FibResult{}, fmt.Errorf("waiting for worker slot: %w", ctx.Err())
		}
		defer func() { <-h.jobSemaphore }()
		if waited := time.Since(now); waited > 100*time.Millisecond {
			log.Debugf("Worker slot acquired after %s (%d/%d in use)", waited, len(h.jobSemaphore), cap(h.jobSemaphore))
		}
	}

	done := h.metrics.TrackInFlight()
	defer done()

	return h.runner.Run(ctx, req), nil
}
