package core

import (
	"fmt"

	"github.com/go-drift/viewcycle/pkg/errors"
)

// RenderFunc computes a view's output from its current state. It receives a
// read-only Snapshot and must not have side effects; the host emits the
// RENDER event around the call.
type RenderFunc func(state Snapshot) (any, error)

// HookFunc is a construct, appear or disappear callback.
type HookFunc func(inst *Instance) error

// ChangeFunc observes a watched field. It runs after the mutation is applied
// and before the resulting render.
type ChangeFunc func(old, new any) error

// Watcher binds a ChangeFunc to a field.
type Watcher struct {
	Field string
	Fn    ChangeFunc
}

// View describes a kind of view: its state schema, render function and
// lifecycle callbacks. A View is configuration; each construction produces a
// fresh Instance.
//
//	counter := &core.View{
//	    Kind:   "counter",
//	    Fields: []core.FieldSpec{{Name: "count", Type: core.TypeInt, Watch: true}},
//	    Render: func(s core.Snapshot) (any, error) {
//	        return fmt.Sprintf("Count: %d", s.Int("count")), nil
//	    },
//	}
type View struct {
	Kind        string
	Fields      []FieldSpec
	Render      RenderFunc
	OnConstruct HookFunc
	OnAppear    HookFunc
	OnDisappear HookFunc
	Watchers    []Watcher
}

// Field returns the spec for name.
func (v *View) Field(name string) (FieldSpec, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Validate checks the definition for structural mistakes.
func (v *View) Validate() error {
	if v == nil {
		return fmt.Errorf("%w: nil view", errors.ErrInvalidView)
	}
	if v.Kind == "" {
		return fmt.Errorf("%w: empty kind", errors.ErrInvalidView)
	}
	if v.Render == nil {
		return fmt.Errorf("%w: %s has no render function", errors.ErrInvalidView, v.Kind)
	}
	seen := make(map[string]bool, len(v.Fields))
	for _, f := range v.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s declares a field with no name", errors.ErrInvalidView, v.Kind)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %s declares field %q twice", errors.ErrInvalidView, v.Kind, f.Name)
		}
		seen[f.Name] = true
		if f.Default != nil {
			if _, err := normalize(f.Type, f.Default); err != nil {
				return fmt.Errorf("%w: %s.%s default: %v", errors.ErrInvalidView, v.Kind, f.Name, err)
			}
		}
	}
	for _, w := range v.Watchers {
		if !seen[w.Field] {
			return fmt.Errorf("%w: %s watches undeclared field %q", errors.ErrInvalidView, v.Kind, w.Field)
		}
		if w.Fn == nil {
			return fmt.Errorf("%w: %s has a nil watcher for %q", errors.ErrInvalidView, v.Kind, w.Field)
		}
	}
	return nil
}
