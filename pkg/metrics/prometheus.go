package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain metrics using Prometheus.
type Recorder struct {
	intervalsIngested *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	rateLimitDenied   prometheus.Counter
	lastRRP           *prometheus.GaugeVec
	latency           *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		intervalsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpull_intervals_ingested_total",
				Help: "Total number of price intervals newly inserted",
			},
			[]string{"regionid"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		rateLimitDenied: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gridpull_rate_limit_denied_total",
				Help: "Total number of requests denied by the rate limiter",
			},
		),
		lastRRP: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gridpull_last_rrp",
				Help: "Last ingested regional reference price",
			},
			[]string{"regionid"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordIngested records newly inserted intervals for a region.
func (r *Recorder) RecordIngested(regionID string, n int) {
	r.intervalsIngested.WithLabelValues(regionID).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordRateLimitDenied records a rate-limit denial.
func (r *Recorder) RecordRateLimitDenied() {
	r.rateLimitDenied.Inc()
}

// RecordLastRRP records the last ingested price for a region.
func (r *Recorder) RecordLastRRP(regionID string, rrp float64) {
	r.lastRRP.WithLabelValues(regionID).Set(rrp)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
