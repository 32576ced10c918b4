package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder receives one observation per submission attempt.
type MetricsRecorder interface {
	ObserveSubmission(orderType, outcome string, elapsed time.Duration)
}

// PrometheusMetrics implements MetricsRecorder on prometheus collectors.
type PrometheusMetrics struct {
	submissions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// NewPrometheusMetrics builds the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_order_submissions_total",
			Help: "Order submissions by type and outcome.",
		}, []string{"order_type", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cg_order_submission_seconds",
			Help:    "End to end submission latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"order_type"}),
	}
	if reg != nil {
		reg.MustRegister(m.submissions, m.latency)
	}
	return m
}

func (m *PrometheusMetrics) ObserveSubmission(orderType, outcome string, elapsed time.Duration) {
	m.submissions.WithLabelValues(orderType, outcome).Inc()
	m.latency.WithLabelValues(orderType).Observe(elapsed.Seconds())
}
