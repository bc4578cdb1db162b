// Package metrics exposes prometheus metrics for the sync machinery.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SyncCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lockin_sync_cycles_total",
			Help: "Total number of completed sync cycles",
		},
	)

	SyncErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lockin_sync_errors_total",
			Help: "Total number of sync cycles that ended with an error",
		},
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lockin_sync_duration_seconds",
			Help:    "Sync cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockin_retry_attempts_total",
			Help: "Total number of remote call attempts made by the retry driver, by operation and result",
		},
		[]string{"operation", "result"},
	)

	OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lockin_outbox_pending",
			Help: "Number of mutation intents waiting in the outbox",
		},
	)

	DirtyTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lockin_dirty_tasks",
			Help: "Number of ongoing tasks with unflushed local edits",
		},
	)
)

func init() {
	prometheus.MustRegister(SyncCyclesTotal)
	prometheus.MustRegister(SyncErrorsTotal)
	prometheus.MustRegister(SyncDuration)
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(OutboxPending)
	prometheus.MustRegister(DirtyTasks)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in seconds on h.
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}
