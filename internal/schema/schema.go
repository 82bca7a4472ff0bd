// Package schema declares the input fields accepted by the prediction API and
// validates raw client records against them.
package schema

import (
	"bytes"
	"encoding/json"
)

// FieldType is the declared type of an input field.
type FieldType string

const (
	Number FieldType = "number"
	String FieldType = "string"
)

// FieldSpec describes one accepted input field.
type FieldSpec struct {
	Name     string    `json:"-"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Options  []string  `json:"options,omitempty"`
}

// Table is an ordered list of field specs. Validation output follows its order.
type Table []FieldSpec

// Lookup returns the spec for a field name.
func (t Table) Lookup(name string) (FieldSpec, bool) {
	for _, s := range t {
		if s.Name == name {
			return s, true
		}
	}
	return FieldSpec{}, false
}

// Names returns the declared field names in order.
func (t Table) Names() []string {
	names := make([]string, len(t))
	for i, s := range t {
		names[i] = s.Name
	}
	return names
}

// MarshalJSON encodes the table as an object keyed by field name.
func (t Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func bound(v float64) *float64 { return &v }

// Exoplanet is the field table for transit candidates.
var Exoplanet = Table{
	{Name: "mission", Type: String, Required: true, Options: []string{"kepler", "k2", "tess"}},
	{Name: "t_mag", Type: Number, Min: bound(0), Max: bound(20)},
	{Name: "period_days", Type: Number, Required: true, Min: bound(0)},
	{Name: "dur_hr", Type: Number, Min: bound(0)},
	{Name: "depth_ppm", Type: Number, Required: true, Min: bound(0)},
	{Name: "rprstar", Type: Number, Min: bound(0), Max: bound(1)},
	{Name: "a_over_rstar", Type: Number, Min: bound(0)},
	{Name: "radius_rearth", Type: Number, Min: bound(0)},
	{Name: "insol_earth", Type: Number, Min: bound(0)},
	{Name: "eq_temp_k", Type: Number, Min: bound(0)},
	{Name: "teff_k", Type: Number, Min: bound(0)},
	{Name: "logg_cgs", Type: Number},
	{Name: "star_rad_rsun", Type: Number, Min: bound(0)},
	{Name: "ra_deg", Type: Number, Min: bound(0), Max: bound(360)},
	{Name: "dec_deg", Type: Number, Min: bound(-90), Max: bound(90)},
}
