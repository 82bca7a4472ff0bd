// Package ml loads the exoplanet classifier from its model directory, keeps
// a single process-wide handle to it, and turns its raw probability output
// into a thresholded decision.
//
// Two model formats are supported: a native logistic model described by a
// model.yaml manifest, and an AutoGluon predictor served through a Python
// bridge. Both hide library version differences behind the Model interface.
package ml

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"exoplanet-api/internal/features"
)

// ErrModelNotFound is returned when the model directory does not exist.
var ErrModelNotFound = errors.New("model directory not found")

// Model is a loaded classifier. The introspection methods report false when
// the underlying model does not expose the information.
type Model interface {
	// FeatureNames returns the ordered feature list seen at training time.
	FeatureNames() ([]string, bool)

	// ClassLabels returns the model-native class labels.
	ClassLabels() ([]any, bool)

	// PositiveClass returns the label representing a planet or candidate.
	PositiveClass() (any, bool)

	// PredictProba classifies a single row.
	PredictProba(ctx context.Context, row features.Record) (Output, error)
}

// Output is the probability output of a model, either a Distribution or a
// PositiveProbability.
type Output interface {
	isOutput()
}

// ClassProbability is the probability assigned to one class label.
type ClassProbability struct {
	Label       any     `json:"label"`
	Probability float64 `json:"probability"`
}

// Distribution is a full probability distribution in class order.
type Distribution []ClassProbability

// PositiveProbability is the probability of the positive class alone.
type PositiveProbability float64

func (Distribution) isOutput()        {}
func (PositiveProbability) isOutput() {}

// normalizeLabel converts numeric labels to float64 so labels decoded from
// YAML, JSON and Python compare equal.
func normalizeLabel(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

func normalizeLabels(labels []any) []any {
	out := make([]any, len(labels))
	for i, l := range labels {
		out[i] = normalizeLabel(l)
	}
	return out
}

// checkLabels rejects class labels that cannot be compared with ==, such as
// lists or maps decoded from a manifest.
func checkLabels(labels []any, positive any) error {
	for _, l := range labels {
		if !comparableLabel(l) {
			return fmt.Errorf("unsupported class label %v of type %T", l, l)
		}
	}
	if !comparableLabel(positive) {
		return fmt.Errorf("unsupported class label %v of type %T", positive, positive)
	}
	return nil
}

func comparableLabel(v any) bool {
	switch v.(type) {
	case nil, string, float64, bool:
		return true
	}
	return false
}

// labelText renders a label the way it is displayed when no presentation
// text exists for it.
func labelText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
