package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Snapshot is a read-only copy of an instance's state handed to render
// functions. Mutating it is impossible, which keeps render free of state
// side effects.
type Snapshot struct {
	values map[string]any
}

// NewSnapshot copies values into a Snapshot.
func NewSnapshot(values map[string]any) Snapshot {
	return Snapshot{values: maps.Clone(values)}
}

// Get returns the value of a field, or nil when absent.
func (s Snapshot) Get(name string) any {
	return s.values[name]
}

// Lookup returns the value of a field and whether it exists.
func (s Snapshot) Lookup(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Int returns an int field, or 0 when absent or of another type.
func (s Snapshot) Int(name string) int {
	v, _ := s.values[name].(int)
	return v
}

// Float returns a float field, or 0.
func (s Snapshot) Float(name string) float64 {
	v, _ := s.values[name].(float64)
	return v
}

// String returns a string field, or "".
func (s Snapshot) String(name string) string {
	v, _ := s.values[name].(string)
	return v
}

// Bool returns a bool field, or false.
func (s Snapshot) Bool(name string) bool {
	v, _ := s.values[name].(bool)
	return v
}

// Names returns the field names in sorted order.
func (s Snapshot) Names() []string {
	return slices.Sorted(maps.Keys(s.values))
}

// Map returns a copy of the underlying values.
func (s Snapshot) Map() map[string]any {
	return maps.Clone(s.values)
}

// Format renders the snapshot as "kind{a=1 b=x}" with sorted keys. It is
// the default render output for views that only need to expose state.
func (s Snapshot) Format(kind string) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte('{')
	for i, name := range s.Names() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", name, s.values[name])
	}
	b.WriteByte('}')
	return b.String()
}
