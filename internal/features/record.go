// Package features holds the ordered record type passed to models and the
// logic that reconciles a client record with a model's feature schema.
package features

import (
	"bytes"
	"encoding/json"
)

// Field is a single named column of a one-row record.
// Value is a float64, a string, or nil for a missing numeric value.
type Field struct {
	Name  string
	Value any
}

// Record is a one-row table with ordered columns.
type Record []Field

// Keys returns column names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Name
	}
	return keys
}

// Get returns the value of a column and whether it exists.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether the column exists.
func (r Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Set replaces the value of an existing column or appends a new one.
func (r Record) Set(name string, value any) Record {
	for i := range r {
		if r[i].Name == name {
			r[i].Value = value
			return r
		}
	}
	return append(r, Field{Name: name, Value: value})
}

// Clone returns a shallow copy that can be modified independently.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// Map returns the record as an unordered map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Name] = f.Value
	}
	return m
}

// MarshalJSON encodes the record as a JSON object preserving column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
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
