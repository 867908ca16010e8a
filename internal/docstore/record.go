package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// Record is one schema-less document. The keys id, created_at and
// updated_at belong to the store.
type Record map[string]any

// ID returns the record id as an integer.
func (r Record) ID() (int64, bool) {
	return toInt(r[FieldID])
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Int returns field as an integer.
func (r Record) Int(field string) (int64, bool) {
	return toInt(r[field])
}

// String returns field as a string.
func (r Record) String(field string) (string, bool) {
	s, ok := r[field].(string)
	return s, ok
}

// normalize replaces decoded json.Number values with int64 or float64.
func (r Record) normalize() {
	for k, v := range r {
		r[k] = normalizeValue(v)
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeValue(t[k])
		}
		return t
	default:
		return v
	}
}

// Equal compares two field values. Numeric values are equal when they
// represent the same number. Other comparable values compare with ==, and
// slices, maps and other uncomparable values never match.
func Equal(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}

	if !isComparable(a) || !isComparable(b) {
		return false
	}
	return a == b
}

func isComparable(v any) bool {
	t := reflect.TypeOf(v)
	return t == nil || t.Comparable()
}

// Encode converts a JSON-tagged struct into a Record.
func Encode(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("docstore: encode record: %w", err)
	}
	r.normalize()
	return r, nil
}

// Decode fills the JSON-tagged struct v from r.
func Decode(r Record, v any) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("docstore: decode record: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("docstore: decode record: %w", err)
	}
	return nil
}

func toInt(v any) (int64, bool) {
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
