package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fibapi"

// Metrics groups the service collectors. A nil *Metrics is valid and records
// nothing, which keeps the core usable from the CLI and from tests.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     prometheus.Histogram
	clamped      prometheus.Counter
	defaultIndex prometheus.Counter
	inFlight     prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Fibonacci requests handled, by transport.",
		}, []string{"source"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compute_duration_seconds",
			Help:      "Time spent computing a single term.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		clamped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clamped_total",
			Help:      "Requests whose index was above the ceiling.",
		}),
		defaultIndex: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "default_index_total",
			Help:      "Path requests resolved to index 0, whether asked for explicitly or unparseable.",
		}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight",
			Help:      "Computations currently holding a worker slot.",
		}),
	}
}

// ObserveRequest counts one request from source.
func (m *Metrics) ObserveRequest(source string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(source).Inc()
}

// ObserveCompute records how long one computation took.
func (m *Metrics) ObserveCompute(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// IncClamped counts a request whose index was lowered to the ceiling.
func (m *Metrics) IncClamped() {
	if m == nil {
		return
	}
	m.clamped.Inc()
}

// IncDefaultIndex counts a path that resolved to index 0. An explicit
// /api/fib/0 cannot be told apart from a path that failed to parse.
func (m *Metrics) IncDefaultIndex() {
	if m == nil {
		return
	}
	m.defaultIndex.Inc()
}

// TrackInFlight bumps the in-flight gauge and returns the matching decrement.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}
