package main

import (
	"context"
	"fmt"
	"path/filepath"

	"exoplanet-api/internal/common"
	"exoplanet-api/internal/features"
	"exoplanet-api/internal/ml"
	"exoplanet-api/internal/schema"
)

// InspectReport describes a model directory and one sample classification.
type InspectReport struct {
	ModelDir      string               `json:"model_dir"`
	Features      []string             `json:"features"`
	ClassLabels   []any                `json:"class_labels"`
	PositiveClass any                  `json:"positive_class"`
	Sample        features.Record      `json:"sample"`
	Prediction    *ml.PredictionResult `json:"prediction"`
}

// sampleCandidate is a hot Jupiter transit on a Kepler target.
var sampleCandidate = map[string]any{
	"mission":     "kepler",
	"period_days": 3.52,
	"depth_ppm":   15000.0,
	"rprstar":     0.105,
}

// inspectModel loads dir in-process and classifies the sample candidate.
func inspectModel(ctx context.Context, dir, pythonPath string, threshold *float64) (*InspectReport, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve model path: %w", err)
	}

	cache := ml.NewCache(abs, ml.NewLoader(ml.LoadOptions{PythonPath: pythonPath}), nil)
	defer cache.Reset()

	model, err := cache.Get()
	if err != nil {
		return nil, err
	}

	report := &InspectReport{ModelDir: abs}
	report.Features, _ = model.FeatureNames()
	report.ClassLabels, _ = model.ClassLabels()
	report.PositiveClass, _ = model.PositiveClass()

	sample, errs := schema.Validate(sampleCandidate, schema.Exoplanet, schema.Options{})
	if len(errs) > 0 {
		return nil, fmt.Errorf("sample candidate is invalid: %v", errs)
	}
	report.Sample = sample

	adapter := ml.NewAdapter(cache, common.DefaultThreshold, nil)
	report.Prediction, err = adapter.Classify(ctx, sample, threshold)
	if err != nil {
		return nil, err
	}
	return report, nil
}
