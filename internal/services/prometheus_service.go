package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhaozkTHU/oj/internal/models"
)

// Metrics is a self-contained Prometheus registry (not the global default
// registry) exposed at GET /metrics, grounded in the teacher's
// PrometheusService — trimmed down from queue/worker/resource gauges that
// belonged to the teacher's distributed worker pool to the handful of
// series this synchronous judge server actually produces.
type Metrics struct {
	registry *prometheus.Registry

	jobsByVerdict    *prometheus.CounterVec
	judgingDuration  prometheus.Histogram
	ranklistDuration prometheus.Histogram
	circuitBreaker   prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		jobsByVerdict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oj_jobs_total",
			Help: "Total finalized jobs, labeled by aggregated verdict.",
		}, []string{"verdict"}),
		judgingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oj_judging_duration_seconds",
			Help:    "Wall-clock time spent judging one submission, start to finish.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		ranklistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oj_ranklist_duration_seconds",
			Help:    "Time spent computing a rank list.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		circuitBreaker: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oj_judge_circuit_breaker_trips_total",
			Help: "Total number of judge operations that returned an error, including calls rejected by the open circuit breaker.",
		}),
	}

	registry.MustRegister(m.jobsByVerdict, m.judgingDuration, m.ranklistDuration, m.circuitBreaker)
	return m
}

func (m *Metrics) RecordJob(verdict models.Verdict) {
	m.jobsByVerdict.WithLabelValues(string(verdict)).Inc()
}

func (m *Metrics) ObserveJudgingDuration(d time.Duration) {
	m.judgingDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveRanklistDuration(d time.Duration) {
	m.ranklistDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordCircuitBreakerTrip() {
	m.circuitBreaker.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
