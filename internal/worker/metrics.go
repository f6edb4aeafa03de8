package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"content-harvest/internal/pkg/config"
)

// Metrics tracks the worker's own configuration health and cron job
// execution, separate from the per-source metrics in observability/metrics.
type Metrics struct {
	*config.ConfigMetrics

	JobRunsTotal          *prometheus.CounterVec
	JobDurationSeconds    prometheus.Histogram
	JobSourcesTotal       prometheus.Counter
	JobLastSuccessSeconds prometheus.Gauge
}

// NewMetrics creates worker metrics, auto-registered with Prometheus.
func NewMetrics() *Metrics {
	return &Metrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_job_runs_total",
			Help: "Total number of scheduled ingest runs by outcome (started/success/partial/failure)",
		}, []string{"status"}),

		JobDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of a scheduled ingest run",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		JobSourcesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_job_sources_total",
			Help: "Total number of sources processed across all scheduled runs",
		}),

		JobLastSuccessSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_job_last_success_timestamp",
			Help: "Unix timestamp of the last scheduled run with zero failures",
		}),
	}
}

func (m *Metrics) RecordJobRun(status string) {
	m.JobRunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordJobDuration(seconds float64) {
	m.JobDurationSeconds.Observe(seconds)
}

func (m *Metrics) RecordSourcesProcessed(count int) {
	m.JobSourcesTotal.Add(float64(count))
}

func (m *Metrics) RecordLastSuccess() {
	m.JobLastSuccessSeconds.SetToCurrentTime()
}
