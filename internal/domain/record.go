package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// IDField is the key every record uses for its identifier.
const IDField = "id"

// Record is one row returned by the recon API. Records are schemaless;
// the catalog decides which fields a view shows.
type Record map[string]any

// GetID returns the record id as a string. Numeric ids are formatted
// without exponent or trailing zeros.
func (r Record) GetID() string {
	v, ok := r[IDField]
	if !ok || v == nil {
		return ""
	}
	return FormatValue(v)
}

// WithID returns a copy of the record carrying id.
func (r Record) WithID(id string) Record {
	out := r.Clone()
	out[IDField] = id
	return out
}

// Merge returns a copy of r with every top-level key of patch applied.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	return out
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Lookup resolves a dot-separated path ("registrant.name") into the record.
func (r Record) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case Record:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(m) {
				return nil, false
			}
			cur = m[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Text returns the formatted value at path, or "" when it is absent.
func (r Record) Text(path string) string {
	v, ok := r.Lookup(path)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Keys returns the record's top-level keys, id first, the rest sorted.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		if k != IDField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := r[IDField]; ok {
		keys = append([]string{IDField}, keys...)
	}
	return keys
}

// FormatValue renders a decoded JSON value for display.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, FormatValue(e))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	case map[string]any, Record:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
