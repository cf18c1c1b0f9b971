package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attrition"

// Metrics holds the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	predictions       *prometheus.CounterVec
	predictionLatency prometheus.Histogram
	trainingRuns      *prometheus.CounterVec
	trainingDuration  prometheus.Histogram
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions served, by risk level.",
		}, []string{"risk_level"}),
		predictionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent computing one prediction.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		trainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Training pipeline runs, by final status.",
		}, []string{"status"}),
		trainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time of completed training runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.predictions,
		m.predictionLatency,
		m.trainingRuns,
		m.trainingDuration,
		m.httpRequests,
		m.httpLatency,
	)
	return m
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObservePrediction records one served prediction
func (m *Metrics) ObservePrediction(riskLevel string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(riskLevel).Inc()
	m.predictionLatency.Observe(elapsed.Seconds())
}

// ObserveTrainingRun records a finished training run
func (m *Metrics) ObserveTrainingRun(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.trainingRuns.WithLabelValues(status).Inc()
	m.trainingDuration.Observe(elapsed.Seconds())
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}
