package document

import "strings"

// Value returns d[key] when the key is present (even if null), else def.
func (d Document) Value(key string, def interface{}) interface{} {
	if v, ok := d[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is present.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String returns the string at key, or def when absent or not a string.
func (d Document) String(key, def string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return def
}

// NonEmpty returns the string at key when it is a non-empty string, else def.
func (d Document) NonEmpty(key, def string) string {
	if s, ok := d[key].(string); ok && s != "" {
		return s
	}
	return def
}

// Float returns the numeric value at key, or def when absent or not numeric.
func (d Document) Float(key string, def float64) float64 {
	v, ok := d[key]
	if !ok {
		return def
	}
	if f, ok := ToFloat(v); ok {
		return f
	}
	return def
}

// Int returns the integer value at key, or def when absent or not numeric.
func (d Document) Int(key string, def int) int {
	v, ok := d[key]
	if !ok {
		return def
	}
	if n, ok := ToInt(v); ok {
		return n
	}
	return def
}

// Bool returns the truthiness of d[key], or def when the key is absent.
func (d Document) Bool(key string, def bool) bool {
	v, ok := d[key]
	if !ok {
		return def
	}
	return Truthy(v)
}

// Map returns the mapping at key, or an empty Document.
func (d Document) Map(key string) Document {
	if m, ok := AsMap(d[key]); ok {
		return m
	}
	return Document{}
}

// List returns the list at key, or an empty list.
func (d Document) List(key string) []interface{} {
	if l, ok := AsList(d[key]); ok {
		return l
	}
	return []interface{}{}
}

// Lookup walks nested mappings and list indices ("0", "1", ...) and
// returns the value at the end of path.
func (d Document) Lookup(path ...string) (interface{}, bool) {
	var cur interface{} = d
	for _, p := range path {
		if m, ok := AsMap(cur); ok {
			v, ok := m[p]
			if !ok {
				return nil, false
			}
			cur = v
			continue
		}
		if l, ok := AsList(cur); ok {
			idx, ok := ToInt(p)
			if !ok || idx < 0 || idx >= len(l) {
				return nil, false
			}
			cur = l[idx]
			continue
		}
		return nil, false
	}
	return cur, true
}

// LookupString is Lookup narrowed to string values.
func (d Document) LookupString(path ...string) string {
	v, ok := d.Lookup(path...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// First returns the first element of a list value when it is a mapping.
func First(list interface{}) Document {
	l, ok := AsList(list)
	if !ok || len(l) == 0 {
		return Document{}
	}
	if m, ok := AsMap(l[0]); ok {
		return m
	}
	return Document{}
}

// CodeOf returns coding[0].code of a CodeableConcept value.
func CodeOf(concept interface{}) string {
	m, ok := AsMap(concept)
	if !ok {
		return ""
	}
	return First(m["coding"]).String("code", "")
}

// FirstCode returns coding[0].code of the first CodeableConcept in a list.
func FirstCode(concepts interface{}) string {
	return CodeOf(First(EnsureList(concepts, []interface{}{Document{}})))
}

// JoinNonEmpty joins the non-empty parts with a single space.
func JoinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// FullName renders the first HumanName of a name list as family followed by
// given names.
func FullName(names interface{}) string {
	n := First(names)
	parts := []string{n.String("family", "")}
	for _, g := range n.List("given") {
		if s, ok := g.(string); ok {
			parts = append(parts, s)
		}
	}
	return JoinNonEmpty(parts...)
}

// FirstValue returns value of the first Identifier in a list.
func FirstValue(identifiers interface{}) string {
	return First(identifiers).String("value", "")
}

// ParticipantReference returns the first participant actor reference that
// points at resourceType.
func ParticipantReference(participants interface{}, resourceType string) string {
	list, _ := AsList(participants)
	for _, p := range list {
		m, ok := AsMap(p)
		if !ok {
			continue
		}
		ref := m.Map("actor").String("reference", "")
		if strings.HasPrefix(ref, resourceType+"/") {
			return ref
		}
	}
	return ""
}

// ExtractQuantity returns valueQuantity.value, falling back to the first
// component's valueQuantity.value. The second result is false when neither
// is present.
func ExtractQuantity(obs Document) (interface{}, bool) {
	if q, ok := AsMap(obs["valueQuantity"]); ok {
		v, present := q["value"]
		return v, present
	}
	if q, ok := AsMap(First(obs["component"])["valueQuantity"]); ok {
		v, present := q["value"]
		return v, present
	}
	return nil, false
}
