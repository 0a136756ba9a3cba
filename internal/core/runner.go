package core

import (
	"context"
	"time"

	"github.com/Mirai3103/fib-api/internal/config"
	"github.com/Mirai3103/fib-api/internal/logging"
	"github.com/Mirai3103/fib-api/internal/metrics"
	"github.com/Mirai3103/fib-api/internal/models"
)

var log = logging.For("runner")

// ResultPublisher receives an event after every computation.
type ResultPublisher interface {
	PublishResult(ctx context.Context, event models.ResultEvent) error
}

// Runner resolves a request to a clamped index and computes the term.
type Runner struct {
	ceiling   uint64
	publisher ResultPublisher // may be nil
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewRunner creates a Runner bounded by fibCfg.Ceiling. publisher and m may be nil.
func NewRunner(publisher ResultPublisher, fibCfg *config.FibConfig, m *metrics.Metrics) *Runner {
	ceiling := DefaultCeiling
	if fibCfg != nil && fibCfg.Ceiling > 0 {
		ceiling = fibCfg.Ceiling
	}
	return &Runner{
		ceiling:   ceiling,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for result timestamps.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Ceiling is the highest index the runner computes.
func (r *Runner) Ceiling() uint64 {
	return r.ceiling
}

// Resolve returns the requested index before and after clamping.
func (r *Runner) Resolve(req models.FibRequest) (requested, n uint64) {
	if req.N != nil {
		requested = *req.N
	} else {
		requested = Extract(req.Path)
		// Counts /api/fib/0 as well; the two cases are indistinguishable here.
		if requested == DefaultIndex {
			r.metrics.IncDefaultIndex()
		}
		log.WithField("path", req.Path).Debugf("Extracted index %d", requested)
	}
	n = Clamp(requested, r.ceiling)
	if n != requested {
		r.metrics.IncClamped()
		log.Debugf("Index %d clamped to %d", requested, n)
	}
	return requested, n
}

// Run computes the result for req. It never fails; ctx only bounds publishing.
func (r *Runner) Run(ctx context.Context, req models.FibRequest) models.FibResult {
	requested, n := r.Resolve(req)

	start := time.Now()
	value := Compute(n).String()
	elapsed := time.Since(start)
	r.metrics.ObserveCompute(elapsed)

	result := models.FibResult{
		N:         n,
		Fibonacci: value,
		Timestamp: r.now().UTC().Format(time.RFC3339Nano),
	}

	if r.publisher != nil {
		event := models.ResultEvent{
			N:              n,
			Requested:      requested,
			Digits:         len(value),
			DurationMicros: elapsed.Microseconds(),
			Source:         req.Source,
		}
		if err := r.publisher.PublishResult(ctx, event); err != nil {
			log.Warnf("Failed to publish result event for n=%d: %v", n, err)
		}
	}
	return result
}
