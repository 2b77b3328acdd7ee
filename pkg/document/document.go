// Package document defines the in-memory representation of a parsed YAML document.
//
// A document value is one of:
//   - *Mapping for mappings (keys keep their source order)
//   - string
//   - int64 or float64 for numbers
//   - bool
//   - []any for sequences
//   - nil for null
//   - time.Time, []byte, Undefined, Regexp or Function for the extended schema types
package document

import "iter"

// Mapping is an ordered set of string keys. Keys keep the position of their
// first insertion, even when their value is later replaced.
type Mapping struct {
	keys   []string
	values map[string]any
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]any)}
}

// MappingOf builds a mapping from alternating key/value arguments. It panics
// if a key is not a string, which makes it suitable for literals in tests.
func MappingOf(pairs ...any) *Mapping {
	if len(pairs)%2 != 0 {
		panic("document: MappingOf needs an even number of arguments")
	}
	m := NewMapping()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

// Set stores value under key.
func (m *Mapping) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// Keys returns the keys in iteration order.
func (m *Mapping) Keys() []string {
	return append([]string(nil), m.keys...)
}

// All iterates over the entries in insertion order.
func (m *Mapping) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Undefined is the value of a !!js/undefined node.
type Undefined struct{}

// Regexp is the value of a !!js/regexp node. It is never compiled.
type Regexp struct {
	Source string
	Flags  string
}

// Function is the value of a !!js/function node. Its source is kept as text
// and is never evaluated.
type Function struct {
	Source string
}
