package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestWrapper() (*Metrics, *MetricsWrapper) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	return metrics, NewWrapper(metrics)
}

func TestNewWrapper(t *testing.T) {
	metrics, wrapper := newTestWrapper()

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != metrics {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_Predictions(t *testing.T) {
	metrics, wrapper := newTestWrapper()

	wrapper.MLPredictionsInc("Planet/PC")
	wrapper.MLPredictionsInc("Planet/PC")
	wrapper.MLPredictionsInc("Non-planet (FP)")

	if v := testutil.ToFloat64(metrics.MLPredictions.WithLabelValues("Planet/PC")); v != 2 {
		t.Errorf("Expected 2 positive predictions, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.MLPredictions.WithLabelValues("Non-planet (FP)")); v != 1 {
		t.Errorf("Expected 1 negative prediction, got %f", v)
	}

	wrapper.MLFailuresInc()
	if v := testutil.ToFloat64(metrics.MLFailures); v != 1 {
		t.Errorf("Expected 1 failure, got %f", v)
	}
}

func TestMetricsWrapper_Histograms(t *testing.T) {
	metrics, wrapper := newTestWrapper()

	wrapper.MLLatencyObserve(0.02)
	wrapper.MLPredictionScoresObserve(0.51)
	wrapper.MLPredictionScoresObserve(0.12)

	if n := testutil.CollectAndCount(metrics.MLLatency); n != 1 {
		t.Errorf("Expected latency histogram to be collected once, got %d", n)
	}
	if n := testutil.CollectAndCount(metrics.MLPredictionScores); n != 1 {
		t.Errorf("Expected score histogram to be collected once, got %d", n)
	}
}

func TestMetricsWrapper_ModelLoad(t *testing.T) {
	metrics, wrapper := newTestWrapper()

	wrapper.MLModelLoadObserve(0.5, false)
	if v := testutil.ToFloat64(metrics.MLModelLoaded); v != 0 {
		t.Errorf("Expected model loaded gauge 0 after failure, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.MLModelLoads.WithLabelValues("error")); v != 1 {
		t.Errorf("Expected 1 failed load, got %f", v)
	}

	wrapper.MLModelLoadObserve(0.5, true)
	if v := testutil.ToFloat64(metrics.MLModelLoaded); v != 1 {
		t.Errorf("Expected model loaded gauge 1, got %f", v)
	}
}

func TestMetricsWrapper_HTTP(t *testing.T) {
	metrics, wrapper := newTestWrapper()

	wrapper.HTTPRequestObserve("/predict", 400)
	wrapper.ValidationFailuresInc()

	if v := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/predict", "400")); v != 1 {
		t.Errorf("Expected 1 request, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.ValidationFailures); v != 1 {
		t.Errorf("Expected 1 validation failure, got %f", v)
	}
}
