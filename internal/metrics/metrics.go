// Package metrics provides Prometheus metrics collection for the exoplanet
// prediction API. It defines the prediction, model and HTTP metrics exposed
// on the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// ML and prediction metrics
	MLPredictions      *prometheus.CounterVec // Predictions made, by decision
	MLFailures         prometheus.Counter     // Predictions that failed
	MLLatency          prometheus.Histogram   // End-to-end classification latency
	MLPredictionScores prometheus.Histogram   // Distribution of positive-class probabilities
	MLModelLoads       *prometheus.CounterVec // Model load attempts, by result
	MLModelLoadSeconds prometheus.Histogram   // Model load duration
	MLModelLoaded      prometheus.Gauge       // 1 when a model is loaded

	// HTTP metrics
	HTTPRequests       *prometheus.CounterVec // Requests, by route and status code
	ValidationFailures prometheus.Counter     // Requests rejected by input validation
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MLPredictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of ML predictions made",
		}, []string{"decision"}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of ML prediction failures",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "ML prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_prediction_scores",
			Help:    "Distribution of positive-class probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		MLModelLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_model_loads_total",
			Help: "Total number of model load attempts",
		}, []string{"result"}),
		MLModelLoadSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_model_load_seconds",
			Help:    "Model load duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		MLModelLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_loaded",
			Help: "Whether the model is loaded (1) or not (0)",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "code"}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_failures_total",
			Help: "Total number of requests rejected by input validation",
		}),
	}
}
