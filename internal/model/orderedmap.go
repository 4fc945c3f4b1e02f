package model

// StringMap is an insertion-order-preserving string-to-string map. It
// is used for Run/Vector attribute bags and module-parameter
// assignments, where §3 requires "keys unique, insertion order
// preserved for serialisation."
type StringMap struct {
	keys   []string
	values map[string]string
}

// NewStringMap returns an empty ordered map.
func NewStringMap() *StringMap {
	return &StringMap{values: make(map[string]string)}
}

// Set inserts or updates name. Re-setting an existing key keeps its
// original position.
func (m *StringMap) Set(name, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, exists := m.values[name]; !exists {
		m.keys = append(m.keys, name)
	}
	m.values[name] = value
}

// Get returns the value for name and whether it was present.
func (m *StringMap) Get(name string) (string, bool) {
	if m.values == nil {
		return "", false
	}
	v, ok := m.values[name]
	return v, ok
}

// Keys returns the keys in insertion order. The returned slice must
// not be mutated by the caller.
func (m *StringMap) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *StringMap) Len() int {
	return len(m.keys)
}

// Equal reports whether two maps hold the same keys and values,
// irrespective of insertion order (§3 round-trip is defined "modulo
// map ordering").
func (m *StringMap) Equal(other *StringMap) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, k := range m.keys {
		v, ok := other.Get(k)
		if !ok || v != m.values[k] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (m *StringMap) Clone() *StringMap {
	out := NewStringMap()
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}
