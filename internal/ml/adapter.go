package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"exoplanet-api/internal/features"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines metrics methods needed by the adapter
type MetricsInterface interface {
	MLPredictionsInc(decision string)
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLPredictionScoresObserve(float64)
	MLModelLoadObserve(seconds float64, ok bool)
}

// Presentation text for the binary labels.
const (
	DecisionNegative = "Non-planet (FP)"
	DecisionPositive = "Planet/PC"
)

// PredictionResult is the outcome of classifying one record.
type PredictionResult struct {
	Decision      string   `json:"decision"`
	Label         any      `json:"label"`
	ProbaPositive float64  `json:"proba_positive"`
	Threshold     float64  `json:"threshold"`
	PositiveClass any      `json:"positive_class"`
	ClassLabels   []any    `json:"class_labels"`
	UsedFeatures  []string `json:"used_features"`
}

// Adapter classifies validated records with the cached model.
type Adapter struct {
	cache            *Cache
	defaultThreshold float64
	metrics          MetricsInterface
}

// NewAdapter creates an adapter. defaultThreshold applies when a request
// does not carry its own.
func NewAdapter(cache *Cache, defaultThreshold float64, metrics MetricsInterface) *Adapter {
	return &Adapter{
		cache:            cache,
		defaultThreshold: defaultThreshold,
		metrics:          metrics,
	}
}

// DefaultThreshold returns the threshold used when none is supplied.
func (a *Adapter) DefaultThreshold() float64 {
	return a.defaultThreshold
}

// Classify aligns rec with the model's features, runs the model and applies
// the threshold. A nil threshold selects the default.
func (a *Adapter) Classify(ctx context.Context, rec features.Record, threshold *float64) (*PredictionResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.MLLatencyObserve(time.Since(start).Seconds())
		}
	}()

	result, err := a.classify(ctx, rec, threshold)
	if err != nil {
		if a.metrics != nil {
			a.metrics.MLFailuresInc()
		}
		return nil, err
	}

	if a.metrics != nil {
		a.metrics.MLPredictionsInc(result.Decision)
		a.metrics.MLPredictionScoresObserve(result.ProbaPositive)
	}
	log.Debug().
		Str("decision", result.Decision).
		Float64("proba_positive", result.ProbaPositive).
		Float64("threshold", result.Threshold).
		Msg("Prediction successful")

	return result, nil
}

func (a *Adapter) classify(ctx context.Context, rec features.Record, threshold *float64) (*PredictionResult, error) {
	model, err := a.cache.Get()
	if err != nil {
		return nil, err
	}

	expected, known := model.FeatureNames()
	row, used := features.Align(features.Coerce(rec), expected, known)

	out, err := model.PredictProba(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("predict_proba failed: %w", err)
	}

	positive, hasPositive := model.PositiveClass()
	p, err := PositiveClassProbability(out, positive, hasPositive)
	if err != nil {
		return nil, err
	}

	t := a.defaultThreshold
	if threshold != nil {
		t = *threshold
	}

	labels, hasLabels := model.ClassLabels()
	label := Decide(p, t, labels, hasLabels, positive, hasPositive)

	if !hasLabels {
		labels = []any{0.0, 1.0}
	}
	if !hasPositive {
		positive = nil
	}

	return &PredictionResult{
		Decision:      DecisionText(label),
		Label:         label,
		ProbaPositive: p,
		Threshold:     t,
		PositiveClass: positive,
		ClassLabels:   labels,
		UsedFeatures:  used,
	}, nil
}

// PositiveClassProbability extracts the positive-class probability from a
// model output. For a distribution the positive column is the declared
// positive class, else a class labelled 1, else the most probable class.
func PositiveClassProbability(out Output, positive any, hasPositive bool) (float64, error) {
	var p float64
	switch o := out.(type) {
	case PositiveProbability:
		p = float64(o)
	case Distribution:
		if len(o) == 0 {
			return 0, errors.New("model returned an empty distribution")
		}
		idx := -1
		if hasPositive {
			idx = o.index(normalizeLabel(positive))
			if idx < 0 {
				return 0, fmt.Errorf("positive class %v not in model output", positive)
			}
		} else {
			idx = o.indexFunc(isUnitLabel)
			if idx < 0 {
				idx = o.argmax()
			}
		}
		p = o[idx].Probability
	default:
		return 0, fmt.Errorf("unsupported model output %T", out)
	}

	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("invalid probability %f", p)
	}
	return p, nil
}

// Decide maps a probability to a model-native label. With declared labels
// and positive class the positive label wins when p >= threshold, otherwise
// the first other label does. Without them the decision is 1 or 0.
func Decide(p, threshold float64, labels []any, hasLabels bool, positive any, hasPositive bool) any {
	if hasLabels && hasPositive {
		positive = normalizeLabel(positive)
		if p >= threshold {
			return positive
		}
		for _, l := range labels {
			if l != positive {
				return l
			}
		}
		return 0.0
	}
	if p >= threshold {
		return 1.0
	}
	return 0.0
}

// DecisionText returns the display text for a label. Labels without an
// entry are shown as their literal text.
func DecisionText(label any) string {
	switch l := normalizeLabel(label).(type) {
	case float64:
		switch l {
		case 0:
			return DecisionNegative
		case 1:
			return DecisionPositive
		}
	case bool:
		if l {
			return DecisionPositive
		}
		return DecisionNegative
	}
	return labelText(normalizeLabel(label))
}

func isUnitLabel(l any) bool {
	return l == true || labelText(l) == "1"
}

func (d Distribution) index(label any) int {
	return d.indexFunc(func(l any) bool { return l == label })
}

func (d Distribution) indexFunc(match func(any) bool) int {
	for i, cp := range d {
		if match(cp.Label) {
			return i
		}
	}
	return -1
}

func (d Distribution) argmax() int {
	best := 0
	for i, cp := range d {
		if cp.Probability > d[best].Probability {
			best = i
		}
	}
	return best
}
