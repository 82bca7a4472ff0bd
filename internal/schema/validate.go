package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"exoplanet-api/internal/features"
)

var errInvalidFormat = errors.New("invalid format")

// Options tunes validation behaviour.
type Options struct {
	// KeepRejected keeps values that failed a range or option check in the
	// validated record. The error is reported either way.
	KeepRejected bool
}

// Validate checks raw against the table and returns the coerced fields that
// passed together with every validation message. An empty message list means
// the record is valid. Fields not declared in the table are ignored.
func Validate(raw map[string]any, table Table, opts Options) (features.Record, []string) {
	validated := make(features.Record, 0, len(table))
	var errs []string

	for _, spec := range table {
		value, present := raw[spec.Name]
		if !present || isEmpty(value) {
			if spec.Required {
				errs = append(errs, fmt.Sprintf("field '%s' is required", spec.Name))
			}
			continue
		}

		var (
			coerced   any
			fieldErrs []string
		)
		switch spec.Type {
		case Number:
			f, err := toFloat(value)
			if err != nil {
				errs = append(errs, fmt.Sprintf("'%s' has an invalid format", spec.Name))
				continue
			}
			coerced, fieldErrs = f, checkRange(spec, f)
		case String:
			s, err := toText(value)
			if err != nil {
				errs = append(errs, fmt.Sprintf("'%s' has an invalid format", spec.Name))
				continue
			}
			s = strings.ToLower(strings.TrimSpace(s))
			coerced, fieldErrs = s, checkOptions(spec, s)
		default:
			errs = append(errs, fmt.Sprintf("'%s' has an unsupported type %q", spec.Name, spec.Type))
			continue
		}

		errs = append(errs, fieldErrs...)
		if len(fieldErrs) == 0 || opts.KeepRejected {
			validated = append(validated, features.Field{Name: spec.Name, Value: coerced})
		}
	}

	return validated, errs
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func checkRange(spec FieldSpec, v float64) []string {
	var errs []string
	if spec.Min != nil && v < *spec.Min {
		errs = append(errs, fmt.Sprintf("'%s' must be >= %s", spec.Name, formatBound(*spec.Min)))
	}
	if spec.Max != nil && v > *spec.Max {
		errs = append(errs, fmt.Sprintf("'%s' must be <= %s", spec.Name, formatBound(*spec.Max)))
	}
	return errs
}

func checkOptions(spec FieldSpec, v string) []string {
	if len(spec.Options) == 0 || slices.Contains(spec.Options, v) {
		return nil
	}
	return []string{fmt.Sprintf("'%s' must be one of [%s]", spec.Name, strings.Join(spec.Options, ", "))}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toFloat(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, errInvalidFormat
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, errInvalidFormat
		}
		f = parsed
	case bool:
		if t {
			f = 1
		}
	default:
		return 0, errInvalidFormat
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errInvalidFormat
	}
	return f, nil
}

func toText(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", errInvalidFormat
	}
}

// ThresholdKey is the optional request field overriding the decision threshold.
const ThresholdKey = "threshold"

// Threshold extracts the optional decision threshold from raw. It returns nil
// when the field is absent or empty, and a message when it is not a number in [0, 1].
func Threshold(raw map[string]any) (*float64, string) {
	value, present := raw[ThresholdKey]
	if !present || isEmpty(value) {
		return nil, ""
	}
	f, err := toFloat(value)
	if err != nil {
		return nil, fmt.Sprintf("'%s' has an invalid format", ThresholdKey)
	}
	if f < 0 || f > 1 {
		return nil, fmt.Sprintf("'%s' must be between 0 and 1", ThresholdKey)
	}
	return &f, ""
}
