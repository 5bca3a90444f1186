// Package dictify converts typed values to and from a plain tree of
// primitives, ordered lists and ordered string-keyed maps. The tree is the
// persisted form handed to tag storage.
//
// Encoding (Dictify) is driven by the runtime value; decoding is driven by a
// static Type description of the expected shape, so nested compositions such
// as a list of optional tagged unions are resolved without any per-type code
// beyond what each domain type contributes through its own descriptor.
package dictify

import "math"

// Value is a node of the plain tree: nil, bool, int64, float64, string,
// []Value or *Map.
type Value = any

// Map is a string-keyed map that remembers insertion order.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set stores v under key. A new key is appended at the end; an existing key
// keeps its position.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Kind names the runtime kind of a tree value, as used in error messages.
func Kind(v Value) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case []Value:
		return "list"
	case *Map:
		return "map"
	default:
		return "unknown"
	}
}

// Equal reports whether two trees are semantically equal. Maps compare
// without regard to key order; ints and floats never compare equal to each
// other, matching the strict kinds used when decoding.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && (av == bv || (math.IsNaN(av) && math.IsNaN(bv)))
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []Value:
		bv, ok := b.([]Value)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			other, ok := bv.Get(k)
			if !ok || !Equal(av.values[k], other) {
				return false
			}
		}
		return true
	}
	return false
}
