// Package document holds the loosely typed JSON tree that every portal
// endpoint accepts, defaults and echoes back. A Document is built fresh for
// each request from a template plus caller input and is never retained.
package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Document is one resource instance: string keys mapped to scalars, lists
// or nested documents.
type Document map[string]interface{}

// Merge overlays overrides onto base and returns a new Document. Nested
// mappings present on both sides are merged key-wise; every other override
// value (lists included) replaces the base value with a deep copy. Neither
// argument is mutated.
func Merge(base, overrides Document) Document {
	result := Clone(base)
	if len(overrides) == 0 {
		return result
	}
	for key, value := range overrides {
		if om, ok := AsMap(value); ok {
			if bm, ok := AsMap(result[key]); ok {
				merged := Merge(bm, om)
				if _, plain := result[key].(map[string]interface{}); plain {
					result[key] = map[string]interface{}(merged)
				} else {
					result[key] = merged
				}
				continue
			}
		}
		result[key] = CloneValue(value)
	}
	return result
}

// Clone returns a deep copy of d. A nil Document clones to an empty one.
func Clone(d Document) Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies maps and lists and returns scalars as is. The
// concrete container type of v is preserved.
func CloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Document:
		return Clone(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			out[k] = CloneValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, inner := range t {
			out[i] = CloneValue(inner)
		}
		return out
	case []Document:
		out := make([]Document, len(t))
		for i, inner := range t {
			out[i] = Clone(inner)
		}
		return out
	case []map[string]interface{}:
		out := make([]map[string]interface{}, len(t))
		for i, inner := range t {
			out[i] = CloneValue(inner).(map[string]interface{})
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// EnsureList returns value itself when it is a non-empty []interface{};
// otherwise it returns a deep copy of def.
func EnsureList(value interface{}, def []interface{}) []interface{} {
	if list, ok := value.([]interface{}); ok && len(list) > 0 {
		return list
	}
	return CloneValue(def).([]interface{})
}

// AsMap reports whether v is a mapping and returns it as a Document that
// shares storage with v.
func AsMap(v interface{}) (Document, bool) {
	switch t := v.(type) {
	case Document:
		return t, t != nil
	case map[string]interface{}:
		return Document(t), t != nil
	default:
		return nil, false
	}
}

// AsList reports whether v is a list. Typed slices are converted to a new
// []interface{}.
func AsList(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []Document:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	case []string:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	default:
		return nil, false
	}
}

// Strings builds a list value from string literals.
func Strings(values ...string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Decode parses a JSON object. Anything that is not an object yields an
// empty Document.
func Decode(raw []byte) Document {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Document{}
	}
	if m, ok := v.(map[string]interface{}); ok {
		return Document(m)
	}
	return Document{}
}

// DecodeList parses a JSON array, returning an empty list on any other input.
func DecodeList(raw []byte) []interface{} {
	var v []interface{}
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return []interface{}{}
	}
	return v
}

// Truthy mirrors loose JSON truthiness: false, null, zero, "" and empty
// containers are false.
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		return t != ""
	}
	if m, ok := AsMap(v); ok {
		return len(m) > 0
	}
	if l, ok := AsList(v); ok {
		return len(l) > 0
	}
	return true
}

// ToFloat converts JSON numbers and numeric strings.
func ToFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// ToInt converts JSON numbers and integer strings, truncating fractions.
func ToInt(v interface{}) (int, bool) {
	if s, ok := v.(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil
	}
	f, ok := ToFloat(v)
	return int(f), ok
}

// ToString renders scalars as text. Maps, lists and null are not strings.
func ToString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int, int64, int32, bool, json.Number:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}
