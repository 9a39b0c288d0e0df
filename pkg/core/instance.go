package core

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-drift/viewcycle/pkg/errors"
)

// Phase is the lifecycle phase of an Instance.
type Phase int

const (
	PhaseUnconstructed Phase = iota
	PhaseConstructed
	PhaseMounted
	PhaseUnmounted
	PhaseDestroyed
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseConstructed:
		return "constructed"
	case PhaseMounted:
		return "mounted"
	case PhaseUnmounted:
		return "unmounted"
	case PhaseDestroyed:
		return "destroyed"
	case PhaseError:
		return "error"
	default:
		return "unconstructed"
	}
}

// Change describes one applied SetField call.
type Change struct {
	Field string
	Old   any
	New   any
	// Watched reports whether change notifications are owed for Field.
	Watched bool
	// Dirty reports whether the new value differs from the old one.
	Dirty bool
}

// Instance is one constructed occurrence of a View. It holds observable state
// and enforces the per-instance lifecycle: construct, then any number of
// mount/unmount pairs with renders in between, then destroy.
//
// Instance is not safe for concurrent use; the host drives it from a single
// event loop.
type Instance struct {
	id          string
	view        *View
	state       map[string]any
	watchers    []Watcher
	watched     map[string]bool
	watchOrder  []string
	phase       Phase
	dirty       bool
	output      any
	hasOutput   bool
	renders     int
	appearances int
	disposers   []func()
	failure     *errors.HookError
}

// Construct allocates a fresh instance of view with the given initial state
// and runs the construction hook. Fields missing from initial take their
// declared defaults. It fails with a usage error when initial names an
// undeclared field or a value of the wrong type.
//
// When the construction hook fails, the returned instance is non-nil and in
// PhaseError, and the error is a *errors.HookError.
func Construct(view *View, id string, initial map[string]any) (*Instance, error) {
	const op = "core.Construct"
	if err := view.Validate(); err != nil {
		return nil, errors.Usage(op, id, err)
	}
	if id == "" {
		return nil, errors.Usage(op, id, fmt.Errorf("%w: empty instance id", errors.ErrInvalidView))
	}

	state := make(map[string]any, len(view.Fields))
	for _, f := range view.Fields {
		v, err := normalize(f.Type, f.Default)
		if err != nil {
			v = zeroValue(f.Type)
		}
		state[f.Name] = v
	}
	for name, value := range initial {
		spec, ok := view.Field(name)
		if !ok {
			return nil, errors.Usage(op, id, fmt.Errorf("%w: %s.%s", errors.ErrUnknownField, view.Kind, name))
		}
		v, err := normalize(spec.Type, value)
		if err != nil {
			return nil, errors.Usage(op, id, fmt.Errorf("%s.%s: %w", view.Kind, name, err))
		}
		state[name] = v
	}

	inst := &Instance{
		id:      id,
		view:    view,
		state:   state,
		watched: make(map[string]bool),
		dirty:   true,
	}
	for _, f := range view.Fields {
		if f.Watch {
			inst.markWatched(f.Name)
		}
	}
	for _, w := range view.Watchers {
		inst.watchers = append(inst.watchers, w)
		inst.markWatched(w.Field)
	}

	if view.OnConstruct != nil {
		if he := inst.call(errors.HookConstruct, "", func() error { return view.OnConstruct(inst) }); he != nil {
			return inst, he
		}
	}
	inst.phase = PhaseConstructed
	return inst, nil
}

func zeroValue(t FieldType) any {
	switch t {
	case TypeInt:
		return 0
	case TypeFloat:
		return 0.0
	case TypeString:
		return ""
	case TypeBool:
		return false
	}
	return nil
}

func (i *Instance) markWatched(field string) {
	if !i.watched[field] {
		i.watched[field] = true
		i.watchOrder = append(i.watchOrder, field)
	}
}

// ID returns the instance's identity.
func (i *Instance) ID() string { return i.id }

// Kind returns the view kind.
func (i *Instance) Kind() string { return i.view.Kind }

// View returns the definition this instance was constructed from.
func (i *Instance) View() *View { return i.view }

// Phase returns the current lifecycle phase.
func (i *Instance) Phase() Phase { return i.phase }

// IsMounted reports whether the instance is between appear and disappear.
func (i *Instance) IsMounted() bool { return i.phase == PhaseMounted }

// Dirty reports whether a render is owed.
func (i *Instance) Dirty() bool { return i.dirty }

// RenderCount returns the number of successful renders.
func (i *Instance) RenderCount() int { return i.renders }

// Appearances returns the number of successful mounts.
func (i *Instance) Appearances() int { return i.appearances }

// Failure returns the hook failure that moved the instance to PhaseError.
func (i *Instance) Failure() *errors.HookError { return i.failure }

// Output returns the most recent render output.
func (i *Instance) Output() (any, bool) { return i.output, i.hasOutput }

// Get returns the current value of a field.
func (i *Instance) Get(name string) any { return i.state[name] }

// State returns a read-only snapshot of the current state.
func (i *Instance) State() Snapshot { return NewSnapshot(i.state) }

// Watched reports whether field is registered for change notification.
func (i *Instance) Watched(field string) bool { return i.watched[field] }

// WatchedFields returns the watched field names in registration order.
func (i *Instance) WatchedFields() []string {
	return append([]string(nil), i.watchOrder...)
}

// usable reports a usage error for instances that no longer accept input.
func (i *Instance) usable(op string) error {
	switch i.phase {
	case PhaseDestroyed:
		return errors.Usage(op, i.id, errors.ErrDestroyed)
	case PhaseError:
		return errors.Usage(op, i.id, errors.ErrInstanceFailed)
	case PhaseUnconstructed:
		return errors.Usage(op, i.id, errors.ErrNotRenderable)
	}
	return nil
}

// CanRender reports whether Render is legal in the current phase. An
// unmounted instance may render, but the host only does so immediately
// before remounting it.
func (i *Instance) CanRender() bool {
	switch i.phase {
	case PhaseConstructed, PhaseMounted, PhaseUnmounted:
		return true
	}
	return false
}

// Render runs the render function against a snapshot of the current state,
// caches the output and clears the dirty flag. Calling it repeatedly with
// unchanged state yields equal output as long as the render function is pure.
func (i *Instance) Render() (any, error) {
	const op = "core.Render"
	if err := i.usable(op); err != nil {
		return nil, err
	}
	if !i.CanRender() {
		return nil, errors.Usage(op, i.id, errors.ErrNotRenderable)
	}
	var out any
	snap := NewSnapshot(i.state)
	he := i.call(errors.HookRender, "", func() error {
		var err error
		out, err = i.view.Render(snap)
		return err
	})
	if he != nil {
		return nil, he
	}
	i.output = out
	i.hasOutput = true
	i.dirty = false
	i.renders++
	return out, nil
}

// SetField updates one field. The instance becomes dirty when the new value
// differs from the old one by deep equality. Notification delivery is the
// caller's job: the returned Change says whether it is owed.
func (i *Instance) SetField(name string, value any) (Change, error) {
	const op = "core.SetField"
	if err := i.usable(op); err != nil {
		return Change{}, err
	}
	spec, ok := i.view.Field(name)
	if !ok {
		return Change{}, errors.Usage(op, i.id, fmt.Errorf("%w: %s.%s", errors.ErrUnknownField, i.view.Kind, name))
	}
	v, err := normalize(spec.Type, value)
	if err != nil {
		return Change{}, errors.Usage(op, i.id, fmt.Errorf("%s.%s: %w", i.view.Kind, name, err))
	}
	old := i.state[name]
	i.state[name] = v
	c := Change{
		Field:   name,
		Old:     old,
		New:     v,
		Watched: i.watched[name],
		Dirty:   !reflect.DeepEqual(old, v),
	}
	if c.Dirty {
		i.dirty = true
	}
	return c, nil
}

// Watch registers fn for change notifications on field.
func (i *Instance) Watch(field string, fn ChangeFunc) error {
	const op = "core.Watch"
	if err := i.usable(op); err != nil {
		return err
	}
	if _, ok := i.view.Field(field); !ok {
		return errors.Usage(op, i.id, fmt.Errorf("%w: %s.%s", errors.ErrUnknownField, i.view.Kind, field))
	}
	if fn == nil {
		return errors.Usage(op, i.id, fmt.Errorf("%w: nil watcher for %q", errors.ErrInvalidView, field))
	}
	i.watchers = append(i.watchers, Watcher{Field: field, Fn: fn})
	i.markWatched(field)
	return nil
}

// Notify delivers c to the field's watchers in registration order. The first
// failing watcher moves the instance to PhaseError and stops delivery.
func (i *Instance) Notify(c Change) error {
	if err := i.usable("core.Notify"); err != nil {
		return err
	}
	for _, w := range i.watchers {
		if w.Field != c.Field {
			continue
		}
		fn := w.Fn
		if he := i.call(errors.HookChange, c.Field, func() error { return fn(c.Old, c.New) }); he != nil {
			return he
		}
	}
	return nil
}

// Mount transitions the instance to PhaseMounted and runs the appear hook.
func (i *Instance) Mount() error {
	const op = "core.Mount"
	if err := i.usable(op); err != nil {
		return err
	}
	if i.phase == PhaseMounted {
		return errors.Usage(op, i.id, errors.ErrAlreadyMounted)
	}
	i.phase = PhaseMounted
	if i.view.OnAppear != nil {
		if he := i.call(errors.HookAppear, "", func() error { return i.view.OnAppear(i) }); he != nil {
			return he
		}
	}
	i.appearances++
	return nil
}

// Unmount transitions the instance to PhaseUnmounted and runs the disappear hook.
func (i *Instance) Unmount() error {
	const op = "core.Unmount"
	if err := i.usable(op); err != nil {
		return err
	}
	if i.phase != PhaseMounted {
		return errors.Usage(op, i.id, errors.ErrNotMounted)
	}
	i.phase = PhaseUnmounted
	if i.view.OnDisappear != nil {
		if he := i.call(errors.HookDisappear, "", func() error { return i.view.OnDisappear(i) }); he != nil {
			return he
		}
	}
	return nil
}

// Destroy runs registered disposers in reverse order and makes the instance
// terminal. A mounted instance must be unmounted first.
func (i *Instance) Destroy() error {
	const op = "core.Destroy"
	switch i.phase {
	case PhaseDestroyed:
		return errors.Usage(op, i.id, errors.ErrDestroyed)
	case PhaseMounted:
		return errors.Usage(op, i.id, errors.ErrStillMounted)
	}
	i.phase = PhaseDestroyed
	i.dirty = false
	i.runDisposers()
	return nil
}

// call runs a user callback, converting panics and returned errors into a
// HookError and moving the instance to PhaseError on failure.
func (i *Instance) call(hook errors.Hook, field string, fn func() error) *errors.HookError {
	var he *errors.HookError
	func() {
		defer func() {
			if r := recover(); r != nil {
				he = &errors.HookError{
					Recovered:  r,
					StackTrace: errors.CaptureStack(),
				}
			}
		}()
		if err := fn(); err != nil {
			he = &errors.HookError{Err: err}
		}
	}()
	if he == nil {
		return nil
	}
	he.Instance = i.id
	he.View = i.view.Kind
	he.Hook = hook
	he.Field = field
	he.Timestamp = time.Now()
	i.fail(he)
	return he
}

func (i *Instance) fail(he *errors.HookError) {
	i.phase = PhaseError
	i.failure = he
	i.dirty = false
}
