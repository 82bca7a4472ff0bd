package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() map[string]any {
	return map[string]any{
		"mission":     "kepler",
		"period_days": 3.52,
		"depth_ppm":   15000.0,
		"rprstar":     0.105,
	}
}

func containsMessage(errs []string, parts ...string) bool {
	for _, e := range errs {
		ok := true
		for _, p := range parts {
			if !strings.Contains(e, p) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func TestValidate_ValidRecord(t *testing.T) {
	rec, errs := Validate(validInput(), Exoplanet, Options{})

	require.Empty(t, errs)
	assert.Equal(t, []string{"mission", "period_days", "depth_ppm", "rprstar"}, rec.Keys())

	mission, _ := rec.Get("mission")
	assert.Equal(t, "kepler", mission)
	period, _ := rec.Get("period_days")
	assert.Equal(t, 3.52, period)
}

func TestValidate_MissingRequiredField(t *testing.T) {
	for _, field := range []string{"mission", "period_days", "depth_ppm"} {
		t.Run(field, func(t *testing.T) {
			raw := validInput()
			delete(raw, field)

			rec, errs := Validate(raw, Exoplanet, Options{})

			require.NotEmpty(t, errs)
			assert.True(t, containsMessage(errs, field, "required"), "errors: %v", errs)
			assert.False(t, rec.Has(field))
		})
	}
}

func TestValidate_EmptyValuesTreatedAsAbsent(t *testing.T) {
	raw := validInput()
	raw["period_days"] = ""
	raw["t_mag"] = nil
	raw["dur_hr"] = ""

	rec, errs := Validate(raw, Exoplanet, Options{})

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "period_days")
	assert.False(t, rec.Has("t_mag"))
	assert.False(t, rec.Has("dur_hr"))
}

func TestValidate_RangeBoundaries(t *testing.T) {
	testCases := []struct {
		name  string
		field string
		value float64
		valid bool
	}{
		{"t_mag at min", "t_mag", 0, true},
		{"t_mag at max", "t_mag", 20, true},
		{"t_mag below min", "t_mag", -0.0001, false},
		{"t_mag above max", "t_mag", 20.0001, false},
		{"rprstar at max", "rprstar", 1, true},
		{"rprstar above max", "rprstar", 1.01, false},
		{"dec at min", "dec_deg", -90, true},
		{"dec below min", "dec_deg", -90.5, false},
		{"ra at max", "ra_deg", 360, true},
		{"ra above max", "ra_deg", 360.1, false},
		{"period at zero", "period_days", 0, true},
		{"period negative", "period_days", -1, false},
		{"logg unbounded", "logg_cgs", -1000, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := validInput()
			raw[tc.field] = tc.value

			rec, errs := Validate(raw, Exoplanet, Options{})

			if tc.valid {
				assert.Empty(t, errs)
				v, ok := rec.Get(tc.field)
				require.True(t, ok)
				assert.Equal(t, tc.value, v)
			} else {
				require.Len(t, errs, 1)
				assert.Contains(t, errs[0], tc.field)
				assert.Contains(t, errs[0], "must be")
			}
		})
	}
}

func TestValidate_OutOfRangeStrictExcludesValue(t *testing.T) {
	raw := validInput()
	raw["rprstar"] = 1.5

	rec, errs := Validate(raw, Exoplanet, Options{})

	require.Len(t, errs, 1)
	assert.Equal(t, "'rprstar' must be <= 1", errs[0])
	assert.False(t, rec.Has("rprstar"))
}

func TestValidate_OutOfRangeLenientKeepsValue(t *testing.T) {
	raw := validInput()
	raw["rprstar"] = 1.5

	rec, errs := Validate(raw, Exoplanet, Options{KeepRejected: true})

	require.Len(t, errs, 1)
	v, ok := rec.Get("rprstar")
	require.True(t, ok)
	assert.Equal(t, 1.5, v)
}

func TestValidate_CategoricalNormalization(t *testing.T) {
	a := validInput()
	a["mission"] = " Kepler "
	b := validInput()
	b["mission"] = "kepler"

	recA, errsA := Validate(a, Exoplanet, Options{})
	recB, errsB := Validate(b, Exoplanet, Options{})

	assert.Empty(t, errsA)
	assert.Empty(t, errsB)
	assert.Equal(t, recB, recA)
}

func TestValidate_InvalidEnum(t *testing.T) {
	raw := validInput()
	raw["mission"] = "mars"

	rec, errs := Validate(raw, Exoplanet, Options{})

	require.Len(t, errs, 1)
	assert.Equal(t, "'mission' must be one of [kepler, k2, tess]", errs[0])
	assert.False(t, rec.Has("mission"))

	rec, _ = Validate(raw, Exoplanet, Options{KeepRejected: true})
	v, _ := rec.Get("mission")
	assert.Equal(t, "mars", v)
}

func TestValidate_Coercion(t *testing.T) {
	testCases := []struct {
		name     string
		value    any
		expected float64
		valid    bool
	}{
		{"json number", json.Number("3.25"), 3.25, true},
		{"numeric string", " 4.5 ", 4.5, true},
		{"exponent string", "1e2", 100, true},
		{"integer", 7, 7, true},
		{"bool true", true, 1, true},
		{"word", "three", 0, false},
		{"nan string", "NaN", 0, false},
		{"object", map[string]any{"v": 1}, 0, false},
		{"array", []any{1.0}, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := validInput()
			raw["dur_hr"] = tc.value

			rec, errs := Validate(raw, Exoplanet, Options{})

			if !tc.valid {
				assert.Equal(t, []string{"'dur_hr' has an invalid format"}, errs)
				assert.False(t, rec.Has("dur_hr"))
				return
			}
			require.Empty(t, errs)
			v, _ := rec.Get("dur_hr")
			assert.Equal(t, tc.expected, v)
		})
	}
}

func TestValidate_StringFromNonString(t *testing.T) {
	table := Table{{Name: "code", Type: String}}

	rec, errs := Validate(map[string]any{"code": 42.0}, table, Options{})
	require.Empty(t, errs)
	v, _ := rec.Get("code")
	assert.Equal(t, "42", v)

	_, errs = Validate(map[string]any{"code": []any{"x"}}, table, Options{})
	assert.Equal(t, []string{"'code' has an invalid format"}, errs)
}

func TestValidate_UnknownFieldsIgnored(t *testing.T) {
	raw := validInput()
	raw["planet_name"] = "Kepler-7b"
	raw["threshold"] = 0.5

	rec, errs := Validate(raw, Exoplanet, Options{})

	assert.Empty(t, errs)
	assert.False(t, rec.Has("planet_name"))
	assert.False(t, rec.Has("threshold"))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	raw := map[string]any{
		"mission": "mars",
		"t_mag":   "dim",
		"ra_deg":  400.0,
	}

	_, errs := Validate(raw, Exoplanet, Options{})

	assert.Len(t, errs, 5)
	assert.True(t, containsMessage(errs, "period_days", "required"))
	assert.True(t, containsMessage(errs, "depth_ppm", "required"))
	assert.True(t, containsMessage(errs, "mission", "one of"))
	assert.True(t, containsMessage(errs, "t_mag", "invalid format"))
	assert.True(t, containsMessage(errs, "ra_deg", "<= 360"))
}

func TestThreshold(t *testing.T) {
	testCases := []struct {
		name     string
		raw      map[string]any
		expected *float64
		wantMsg  bool
	}{
		{"absent", map[string]any{}, nil, false},
		{"null", map[string]any{"threshold": nil}, nil, false},
		{"float", map[string]any{"threshold": 0.7}, bound(0.7), false},
		{"string", map[string]any{"threshold": "0.25"}, bound(0.25), false},
		{"edge one", map[string]any{"threshold": 1.0}, bound(1), false},
		{"too large", map[string]any{"threshold": 1.2}, nil, true},
		{"negative", map[string]any{"threshold": -0.1}, nil, true},
		{"garbage", map[string]any{"threshold": "high"}, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, msg := Threshold(tc.raw)
			assert.Equal(t, tc.wantMsg, msg != "", "message: %q", msg)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestTable_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Exoplanet)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Len(t, decoded, len(Exoplanet))
	assert.Equal(t, "string", decoded["mission"]["type"])
	assert.Equal(t, true, decoded["mission"]["required"])
	assert.Equal(t, []any{"kepler", "k2", "tess"}, decoded["mission"]["options"])
	assert.Equal(t, 20.0, decoded["t_mag"]["max"])
	assert.NotContains(t, decoded["logg_cgs"], "min")
	assert.True(t, strings.HasPrefix(string(data), `{"mission":`))
}
