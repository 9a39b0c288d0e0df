package core

import (
	"fmt"
	"reflect"

	"github.com/go-drift/viewcycle/pkg/errors"
)

// Field is a typed handle on one declared field. Reads and writes both go
// through accessors supplied by the host, so a handle always addresses the
// same place and writes still trigger change notifications and renders.
//
//	count, _ := host.Bind[int](h, "/counter", "count")
//	count.Set(count.Value() + 1)
type Field[T any] struct {
	name string
	get  func(name string) (any, error)
	set  func(name string, value any) error
}

// NewField creates a typed handle on field name of view. It fails when name
// is not declared, or when T is not the Go type the field's values are
// stored as (int, float64, string or bool). Any T is accepted for TypeAny.
func NewField[T any](view *View, name string, get func(name string) (any, error), set func(name string, value any) error) (*Field[T], error) {
	spec, ok := view.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", errors.ErrUnknownField, view.Kind, name)
	}
	if want := spec.Type.goType(); want != nil {
		if got := reflect.TypeFor[T](); got != want {
			return nil, fmt.Errorf("%w: %s.%s holds %s values, not %s", errors.ErrFieldType, view.Kind, name, want, got)
		}
	}
	return &Field[T]{name: name, get: get, set: set}, nil
}

// Name returns the field name.
func (f *Field[T]) Name() string { return f.name }

// Value returns the current value, or the zero value of T when it cannot be
// read.
func (f *Field[T]) Value() T {
	v, _ := f.Load()
	return v
}

// Load returns the current value, or the error that prevented reading it.
func (f *Field[T]) Load() (T, error) {
	var zero T
	raw, err := f.get(f.name)
	if err != nil {
		return zero, err
	}
	if raw == nil {
		return zero, nil
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T is not %T", errors.ErrFieldType, raw, zero)
	}
	return v, nil
}

// Set writes a new value.
func (f *Field[T]) Set(value T) error {
	return f.set(f.name, value)
}

// Update applies a transformation to the current value.
func (f *Field[T]) Update(transform func(T) T) error {
	v, err := f.Load()
	if err != nil {
		return err
	}
	return f.set(f.name, transform(v))
}
