package core

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-drift/viewcycle/pkg/errors"
)

// FieldType constrains the values a declared field may hold.
type FieldType int

const (
	// TypeAny accepts any value, including nil.
	TypeAny FieldType = iota
	// TypeInt accepts Go integers and integral floats; stored as int.
	TypeInt
	// TypeFloat accepts Go integers and floats; stored as float64.
	TypeFloat
	// TypeString accepts strings.
	TypeString
	// TypeBool accepts booleans.
	TypeBool
)

func (t FieldType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	default:
		return "any"
	}
}

// goType returns the Go type values of t are stored as, or nil for TypeAny.
func (t FieldType) goType() reflect.Type {
	switch t {
	case TypeInt:
		return reflect.TypeFor[int]()
	case TypeFloat:
		return reflect.TypeFor[float64]()
	case TypeString:
		return reflect.TypeFor[string]()
	case TypeBool:
		return reflect.TypeFor[bool]()
	}
	return nil
}

// ParseFieldType converts a name such as "int" into a FieldType.
// The empty string maps to TypeAny.
func ParseFieldType(name string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "any":
		return TypeAny, nil
	case "int", "integer":
		return TypeInt, nil
	case "float", "number":
		return TypeFloat, nil
	case "string", "text":
		return TypeString, nil
	case "bool", "boolean":
		return TypeBool, nil
	}
	return TypeAny, fmt.Errorf("unknown field type %q", name)
}

// FieldSpec declares one piece of observable state.
type FieldSpec struct {
	Name string
	Type FieldType
	// Default is used when the initial state omits the field.
	Default any
	// Watch registers the field for change notifications even when no
	// watcher callback is attached.
	Watch bool
}

// normalize converts value into the canonical representation for t, or
// returns ErrFieldType.
func normalize(t FieldType, value any) (any, error) {
	if t == TypeAny {
		return value, nil
	}
	if value == nil {
		return nil, fmt.Errorf("%w: nil is not a %s", errors.ErrFieldType, t)
	}
	rv := reflect.ValueOf(value)
	switch t {
	case TypeInt:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return int(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if u := rv.Uint(); u <= math.MaxInt {
				return int(u), nil
			}
			return nil, fmt.Errorf("%w: %v overflows int", errors.ErrFieldType, value)
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if f != math.Trunc(f) || math.IsInf(f, 0) {
				break
			}
			// 2^63 is exactly representable, MaxInt64 is not.
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return nil, fmt.Errorf("%w: %v overflows int", errors.ErrFieldType, value)
			}
			return int(f), nil
		}
	case TypeFloat:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), nil
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		}
	case TypeString:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case TypeBool:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	}
	return nil, fmt.Errorf("%w: %T is not a %s", errors.ErrFieldType, value, t)
}
