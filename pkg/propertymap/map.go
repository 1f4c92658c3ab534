// Package propertymap flattens connector configuration into the string to
// string mapping that the host framework ships to remote workers, and reads
// it back on the worker side.
//
// A Map is append-only and remembers insertion order. Optional values are
// omitted rather than written empty, so a decoder can tell "absent" from
// "intentionally empty".
package propertymap

import (
	"bytes"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
)

// Map is an ordered, append-only string to string mapping.
type Map struct {
	keys   []string
	values map[string]string
}

// New returns an empty Map.
func New() *Map {
	return &Map{values: make(map[string]string)}
}

// FromMap copies a plain map into a Map. Keys are ordered lexically since a
// plain map has no order of its own.
func FromMap(in map[string]string) *Map {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := New()
	for _, k := range keys {
		m.Set(k, in[k])
	}
	return m
}

// Set appends key. Setting a key twice is a bug in the encoder and panics.
func (m *Map) Set(key, value string) *Map {
	if _, exists := m.values[key]; exists {
		panic(fmt.Sprintf("propertymap: duplicate key %q", key))
	}
	m.keys = append(m.keys, key)
	m.values[key] = value
	return m
}

// SetIfNotEmpty appends key only when value is non-empty.
func (m *Map) SetIfNotEmpty(key, value string) *Map {
	if value == "" {
		return m
	}
	return m.Set(key, value)
}

// Lookup returns the value for key and whether it is present.
func (m *Map) Lookup(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Get returns the value for key, or "" when absent.
func (m *Map) Get(key string) string {
	v, _ := m.Lookup(key)
	return v
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Lookup(key)
	return ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// ToMap returns a plain copy, the form host frameworks usually transport.
func (m *Map) ToMap() map[string]string {
	out := make(map[string]string, m.Len())
	for _, k := range m.Keys() {
		out[k] = m.values[k]
	}
	return out
}

// MarshalJSON writes the map as a JSON object in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of strings. Keys are ordered lexically.
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = *FromMap(raw)
	return nil
}
