package ml

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"exoplanet-api/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := Load(dir, LoadOptions{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelNotFound))
	assert.Contains(t, err.Error(), dir)
}

func TestLoad_PathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := Load(file, LoadOptions{})

	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestLoad_EmptyDirectory(t *testing.T) {
	_, err := Load(t.TempDir(), LoadOptions{})

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrModelNotFound))
	assert.Contains(t, err.Error(), "model.yaml")
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	dir := writeManifest(t, "format: xgboost\n")

	_, err := Load(dir, LoadOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "xgboost")
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := writeManifest(t, "features: [unterminated\n")

	_, err := Load(dir, LoadOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoad_LogisticIntrospection(t *testing.T) {
	dir := writeManifest(t, testManifest)

	model, err := Load(dir, LoadOptions{})
	require.NoError(t, err)

	names, ok := model.FeatureNames()
	require.True(t, ok)
	assert.Equal(t, []string{"mission", "t_mag", "period_days", "dur_hr", "depth_ppm", "rprstar"}, names)

	labels, ok := model.ClassLabels()
	require.True(t, ok)
	assert.Equal(t, []any{0.0, 1.0}, labels)

	positive, ok := model.PositiveClass()
	require.True(t, ok)
	assert.Equal(t, 1.0, positive)
}

func TestLogisticModel_PredictProba(t *testing.T) {
	dir := writeManifest(t, testManifest)
	model, err := Load(dir, LoadOptions{})
	require.NoError(t, err)

	row := features.Record{
		{Name: "mission", Value: "kepler"},
		{Name: "t_mag", Value: nil},
		{Name: "period_days", Value: 3.52},
		{Name: "dur_hr", Value: nil},
		{Name: "depth_ppm", Value: 15000.0},
		{Name: "rprstar", Value: 0.105},
	}

	out, err := model.PredictProba(context.Background(), row)
	require.NoError(t, err)

	dist, ok := out.(Distribution)
	require.True(t, ok, "expected a distribution, got %T", out)
	require.Len(t, dist, 2)

	// z = -2 + 1.5 + 0.84 - 0.6 + 0.3
	expected := 1 / (1 + math.Exp(-0.04))
	assert.Equal(t, 0.0, dist[0].Label)
	assert.Equal(t, 1.0, dist[1].Label)
	assert.InDelta(t, expected, dist[1].Probability, 1e-9)
	assert.InDelta(t, 1-expected, dist[0].Probability, 1e-9)
}

func TestLogisticModel_ScalarOutputAndScaling(t *testing.T) {
	dir := writeManifest(t, `
output: scalar
intercept: 0
weights:
  teff_k: 1.0
scaling:
  teff_k: {mean: 5000, std: 1000}
`)
	model, err := Load(dir, LoadOptions{})
	require.NoError(t, err)

	_, known := model.FeatureNames()
	assert.False(t, known)
	_, hasLabels := model.ClassLabels()
	assert.False(t, hasLabels)
	_, hasPositive := model.PositiveClass()
	assert.False(t, hasPositive)

	out, err := model.PredictProba(context.Background(), features.Record{{Name: "teff_k", Value: 6000.0}})
	require.NoError(t, err)

	p, ok := out.(PositiveProbability)
	require.True(t, ok, "expected scalar output, got %T", out)
	assert.InDelta(t, 1/(1+math.Exp(-1)), float64(p), 1e-9)
}

func TestLogisticModel_InvalidManifests(t *testing.T) {
	testCases := []struct {
		name     string
		manifest string
		errPart  string
	}{
		{"three classes", "class_labels: [a, b, c]\n", "2 classes"},
		{"unknown positive", "class_labels: [0, 1]\npositive_class: 2\n", "positive class"},
		{"zero std", "scaling:\n  x: {mean: 1, std: 0}\n", "zero std"},
		{"unknown output", "output: matrix\n", "output shape"},
		{"list labels", "class_labels: [[0], [1]]\n", "unsupported class label"},
		{"map positive class", "class_labels: [0, 1]\npositive_class: {id: 1}\n", "unsupported class label"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeManifest(t, tc.manifest), LoadOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errPart)
		})
	}
}

func TestLogisticModel_ContextCancelled(t *testing.T) {
	model, err := Load(writeManifest(t, testManifest), LoadOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = model.PredictProba(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_PickleWithoutManifestSelectsAutoGluon(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, autogluonPickle), []byte{}, 0o600))

	// a missing interpreter keeps the test independent of the host
	_, err := Load(dir, LoadOptions{PythonPath: filepath.Join(dir, "no-python")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "AutoGluon")
}
