package ml

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"exoplanet-api/internal/features"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      map[string]int
	failures         int
	latencySum       float64
	predictionScores []float64
	loads            int
	failedLoads      int
}

func (m *MockMetrics) MLPredictionsInc(decision string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictions == nil {
		m.predictions = make(map[string]int)
	}
	m.predictions[decision]++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

func (m *MockMetrics) MLModelLoadObserve(_ float64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if !ok {
		m.failedLoads++
	}
}

// fakeModel returns a fixed output and records the last row it saw.
type fakeModel struct {
	mu            sync.Mutex
	features      []string
	classLabels   []any
	positiveClass any
	out           Output
	err           error
	lastRow       features.Record
}

func (f *fakeModel) FeatureNames() ([]string, bool) { return f.features, f.features != nil }
func (f *fakeModel) ClassLabels() ([]any, bool)     { return f.classLabels, f.classLabels != nil }
func (f *fakeModel) PositiveClass() (any, bool)     { return f.positiveClass, f.positiveClass != nil }

func (f *fakeModel) PredictProba(_ context.Context, row features.Record) (Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRow = row
	return f.out, f.err
}

func staticLoader(m Model) Loader {
	return func(string) (Model, error) { return m, nil }
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, manifestFile), []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return dir
}

const testManifest = `
format: logistic
version: "2024-10-05"
features: [mission, t_mag, period_days, dur_hr, depth_ppm, rprstar]
class_labels: [0, 1]
positive_class: 1
intercept: -2.0
weights:
  depth_ppm: 0.0001
  rprstar: 8.0
  t_mag: -0.05
impute:
  t_mag: 12.0
categorical:
  mission:
    kepler: 0.3
    k2: 0.1
    tess: -0.2
`
