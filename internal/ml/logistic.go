package ml

import (
	"context"
	"fmt"
	"math"

	"exoplanet-api/internal/features"
)

// LogisticModel is a binary logistic regression evaluated natively.
type LogisticModel struct {
	features      []string
	classLabels   []any
	positiveClass any
	scalar        bool
	intercept     float64
	weights       map[string]float64
	categorical   map[string]map[string]float64
	scaling       map[string]Scale
	impute        map[string]float64
}

func newLogisticModel(m *Manifest) (*LogisticModel, error) {
	labels := normalizeLabels(m.ClassLabels)
	if len(labels) > 2 {
		return nil, fmt.Errorf("logistic model supports 2 classes, got %d", len(labels))
	}
	positive := normalizeLabel(m.PositiveClass)
	if err := checkLabels(labels, positive); err != nil {
		return nil, err
	}
	if positive != nil && len(labels) > 0 && indexOf(labels, positive) < 0 {
		return nil, fmt.Errorf("positive class %v is not one of %v", positive, labels)
	}

	switch m.Output {
	case "", outputDistribute, outputScalar:
	default:
		return nil, fmt.Errorf("unknown output shape %q", m.Output)
	}

	for name, s := range m.Scaling {
		if s.Std == 0 {
			return nil, fmt.Errorf("feature %s has zero std", name)
		}
	}

	return &LogisticModel{
		features:      m.Features,
		classLabels:   labels,
		positiveClass: positive,
		scalar:        m.Output == outputScalar,
		intercept:     m.Intercept,
		weights:       m.Weights,
		categorical:   m.Categorical,
		scaling:       m.Scaling,
		impute:        m.Impute,
	}, nil
}

func (m *LogisticModel) FeatureNames() ([]string, bool) {
	if len(m.features) == 0 {
		return nil, false
	}
	return append([]string(nil), m.features...), true
}

func (m *LogisticModel) ClassLabels() ([]any, bool) {
	if len(m.classLabels) == 0 {
		return nil, false
	}
	return append([]any(nil), m.classLabels...), true
}

func (m *LogisticModel) PositiveClass() (any, bool) {
	return m.positiveClass, m.positiveClass != nil
}

// PredictProba scores the row. Missing numeric features use the imputed
// value when one is declared and contribute nothing otherwise.
func (m *LogisticModel) PredictProba(ctx context.Context, row features.Record) (Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := row.Map()
	z := m.intercept
	for name, w := range m.weights {
		x, ok := values[name].(float64)
		if !ok {
			if x, ok = m.impute[name]; !ok {
				continue
			}
		}
		if s, ok := m.scaling[name]; ok {
			x = (x - s.Mean) / s.Std
		}
		z += w * x
	}
	for name, levels := range m.categorical {
		if v, ok := values[name].(string); ok {
			z += levels[v]
		}
	}

	p := sigmoid(z)
	if m.scalar {
		return PositiveProbability(p), nil
	}
	return m.distribution(p), nil
}

func (m *LogisticModel) distribution(p float64) Distribution {
	labels := m.classLabels
	if len(labels) == 0 {
		labels = []any{0.0, 1.0}
	}
	if len(labels) == 1 {
		return Distribution{{Label: labels[0], Probability: p}}
	}

	positive := m.positiveClass
	if positive == nil {
		positive = labels[len(labels)-1]
	}

	dist := make(Distribution, len(labels))
	for i, l := range labels {
		prob := 1 - p
		if l == positive {
			prob = p
		}
		dist[i] = ClassProbability{Label: l, Probability: prob}
	}
	return dist
}

// sigmoid converts a score to a probability
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func indexOf(labels []any, v any) int {
	for i, l := range labels {
		if l == v {
			return i
		}
	}
	return -1
}
