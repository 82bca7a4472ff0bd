package features

import (
	"math"
	"strconv"
	"strings"

	"exoplanet-api/internal/common"
)

var (
	categoricalColumns = []string{common.CategoricalColumn}
	numericColumns     = []string{common.NumericColumn}
)

// Coerce forces the dtype of a few known columns, skipping columns that are
// absent. Categorical columns become strings. Numeric columns become float64,
// with unparsable values turned into nil.
func Coerce(r Record) Record {
	out := r.Clone()
	for _, col := range categoricalColumns {
		if v, ok := out.Get(col); ok && v != nil {
			out = out.Set(col, toCategory(v))
		}
	}
	for _, col := range numericColumns {
		if v, ok := out.Get(col); ok {
			out = out.Set(col, toNumeric(v))
		}
	}
	return out
}

// Align reshapes r to the expected feature list. When known is false the
// record passes through untouched and its own column order is reported.
func Align(r Record, expected []string, known bool) (Record, []string) {
	if !known {
		return r.Clone(), r.Keys()
	}

	values := r.Map()
	aligned := make(Record, 0, len(expected))
	for _, name := range expected {
		// missing columns get the null marker
		aligned = append(aligned, Field{Name: name, Value: values[name]})
	}

	used := make([]string, len(expected))
	copy(used, expected)
	return aligned, used
}

func toCategory(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func toNumeric(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case bool:
		if t {
			return 1.0
		}
		return 0.0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	default:
		return nil
	}
}
