// Package errors provides structured error handling for the viewcycle host.
//
// Two families of failure exist. Usage errors (double mount, writing to a
// destroyed instance, watching an undeclared field) are returned to the caller
// as *LifecycleError values wrapping one of the sentinel errors below, so
// callers can test them with errors.Is. Hook failures (a render, appear,
// disappear, construct or change callback that panics or returns an error)
// are captured as *HookError and reported to the installed ErrorHandler.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindUsage indicates the caller drove an instance through an illegal transition.
	KindUsage
	// KindHook indicates a user-supplied lifecycle callback failed.
	KindHook
	// KindPanic indicates a recovered panic outside of a hook.
	KindPanic
	// KindConfig indicates invalid configuration.
	KindConfig
	// KindScenario indicates a malformed or failing scenario script.
	KindScenario
)

func (k ErrorKind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindHook:
		return "hook"
	case KindPanic:
		return "panic"
	case KindConfig:
		return "config"
	case KindScenario:
		return "scenario"
	default:
		return "unknown"
	}
}

// Sentinel usage errors. LifecycleError unwraps to one of these.
var (
	ErrAlreadyMounted   = stderrors.New("instance is already mounted")
	ErrNotMounted       = stderrors.New("instance is not mounted")
	ErrStillMounted     = stderrors.New("instance must be unmounted before it is destroyed")
	ErrDestroyed        = stderrors.New("instance has been destroyed")
	ErrInstanceFailed   = stderrors.New("instance is in the error state")
	ErrUnknownField     = stderrors.New("field is not declared by the view")
	ErrFieldType        = stderrors.New("value does not match the declared field type")
	ErrNotRenderable    = stderrors.New("instance cannot render in its current phase")
	ErrUnknownView      = stderrors.New("view kind is not registered")
	ErrPositionOccupied = stderrors.New("position already holds an instance")
	ErrNoInstance       = stderrors.New("no instance at position")
	ErrInvalidView      = stderrors.New("invalid view definition")
	ErrReentrant        = stderrors.New("operation is not allowed while the host is draining")
)

// LifecycleError is a structured, non-fatal usage error.
type LifecycleError struct {
	// Op is the operation that failed (e.g., "host.Mount").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Instance is the id of the affected instance, if any.
	Instance string
	// Position is the structural position of the affected instance, if any.
	Position string
	// Err is the underlying error, usually a sentinel.
	Err error
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *LifecycleError) Error() string {
	switch {
	case e.Position != "" && e.Instance != "":
		return fmt.Sprintf("%s [%s] %s (%s): %v", e.Op, e.Kind, e.Position, e.Instance, e.Err)
	case e.Position != "":
		return fmt.Sprintf("%s [%s] %s: %v", e.Op, e.Kind, e.Position, e.Err)
	case e.Instance != "":
		return fmt.Sprintf("%s [%s] %s: %v", e.Op, e.Kind, e.Instance, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// Usage builds a usage LifecycleError.
func Usage(op, instance string, err error) *LifecycleError {
	return &LifecycleError{Op: op, Kind: KindUsage, Instance: instance, Err: err}
}

// Hook names a lifecycle callback.
type Hook string

const (
	HookConstruct Hook = "construct"
	HookRender    Hook = "render"
	HookAppear    Hook = "appear"
	HookDisappear Hook = "disappear"
	HookChange    Hook = "change"
)

// HookError represents a failure inside a user-supplied lifecycle callback.
type HookError struct {
	// Instance is the id of the instance whose hook failed.
	Instance string
	// View is the view kind of that instance.
	View string
	// Position is filled in by the host.
	Position string
	// Hook is the callback that failed.
	Hook Hook
	// Field is set for change hooks.
	Field string
	// Recovered is the panic value (nil for returned errors).
	Recovered any
	// Err is the returned error (nil for panics).
	Err error
	// StackTrace contains the call stack at the time of a panic.
	StackTrace string
	// Timestamp is when the failure occurred.
	Timestamp time.Time
}

func (e *HookError) Error() string {
	name := string(e.Hook)
	if e.Field != "" {
		name += "(" + e.Field + ")"
	}
	if e.Recovered != nil {
		return fmt.Sprintf("panic in %s.%s hook: %v", e.View, name, e.Recovered)
	}
	if e.Err != nil {
		return fmt.Sprintf("error in %s.%s hook: %v", e.View, name, e.Err)
	}
	return fmt.Sprintf("unknown failure in %s.%s hook", e.View, name)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "host.AfterFunc").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors reported by the host.
type ErrorHandler interface {
	// HandleError is called for usage errors.
	HandleError(err *LifecycleError)
	// HandlePanic is called when a panic is recovered outside a hook.
	HandlePanic(err *PanicError)
	// HandleHookError is called when a lifecycle callback fails.
	HandleHookError(err *HookError)
}

// IsUsage reports whether err is a usage LifecycleError.
func IsUsage(err error) bool {
	var le *LifecycleError
	return stderrors.As(err, &le) && le.Kind == KindUsage
}

// AsHook extracts a *HookError from err.
func AsHook(err error) (*HookError, bool) {
	var he *HookError
	if stderrors.As(err, &he) {
		return he, true
	}
	return nil, false
}
