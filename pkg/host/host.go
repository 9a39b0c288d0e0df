// Package host implements the lifecycle host: the scheduler that owns
// instance identity by structural position, decides when instances are
// constructed, rendered, mounted, unmounted and destroyed, and delivers
// change notifications.
//
// All work runs on one logical event queue with run-to-completion
// semantics. Lifecycle commands (Construct, Mount, Unmount, Destroy,
// Transition, Reconcile) are queued behind any pending notifications and
// renders, and the queue is drained before the command returns. Set only
// mutates and queues; the work it schedules happens at the next drain
// (Pump, Output, Advance or any command).
//
// A command issued from inside a hook is queued and runs when the current
// drain reaches it. Its error goes to the error handler only.
//
// Host is not safe for concurrent use.
package host

import (
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-drift/viewcycle/internal/logger"
	"github.com/go-drift/viewcycle/pkg/core"
	"github.com/go-drift/viewcycle/pkg/errors"
	"github.com/go-drift/viewcycle/pkg/eventlog"
)

// slot is the instance table entry for one position.
type slot struct {
	pos    string
	inst   *core.Instance
	render *task // pending render, at most one
}

// Host is the lifecycle host simulator.
type Host struct {
	views    map[string]*core.View
	slots    map[string]*slot
	queue    queue
	log      *eventlog.Log
	clock    *Clock
	policy   Policy
	ids      IDGenerator
	handler  errors.ErrorHandler
	logger   logger.Logger
	draining bool

	failures []*errors.HookError
	// pending holds failures not yet returned by Pump.
	pending []error
}

// New creates a host with no registered views.
func New(opts ...Option) *Host {
	h := &Host{
		views:  make(map[string]*core.View),
		slots:  make(map[string]*slot),
		log:    eventlog.New(),
		clock:  NewClock(),
		policy: UnmountFirst,
		ids:    UUIDs(),
		logger: logger.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register makes view constructible under its kind.
func (h *Host) Register(views ...*core.View) error {
	const op = "host.Register"
	for _, v := range views {
		if err := v.Validate(); err != nil {
			return h.usage(op, "", "", err)
		}
		if _, dup := h.views[v.Kind]; dup {
			return h.usage(op, "", "", fmt.Errorf("%w: kind %q registered twice", errors.ErrInvalidView, v.Kind))
		}
		h.views[v.Kind] = v
	}
	return nil
}

// Views returns the registered kinds in sorted order.
func (h *Host) Views() []string {
	kinds := make([]string, 0, len(h.views))
	for k := range h.views {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Policy returns the transition ordering policy.
func (h *Host) Policy() Policy { return h.policy }

// Log returns the event log.
func (h *Host) Log() *eventlog.Log { return h.log }

// Clock returns the virtual clock.
func (h *Host) Clock() *Clock { return h.clock }

// Failures returns every hook failure observed so far, in order.
func (h *Host) Failures() []*errors.HookError {
	return append([]*errors.HookError(nil), h.failures...)
}

// Pending returns the number of queued events.
func (h *Host) Pending() int { return h.queue.Len() }

// Instance returns the live instance at pos, or nil.
func (h *Host) Instance(pos string) *core.Instance {
	if s, ok := h.slots[pos]; ok {
		return s.inst
	}
	return nil
}

// Positions returns the positions that hold an instance, sorted.
func (h *Host) Positions() []string {
	out := make([]string, 0, len(h.slots))
	for pos := range h.slots {
		out = append(out, pos)
	}
	sort.Strings(out)
	return out
}

// Construct creates a fresh instance of kind at pos. The position must be
// empty. The instance is not rendered until it is mounted.
func (h *Host) Construct(pos, kind string, initial map[string]any) error {
	return h.command("host.Construct", func() error { return h.construct(pos, kind, initial) })
}

// Mount renders the instance at pos and mounts it. Every appearance is
// preceded by its own render.
func (h *Host) Mount(pos string) error {
	return h.command("host.Mount", func() error { return h.mount(pos) })
}

// Unmount unmounts the instance at pos and cancels its pending render.
func (h *Host) Unmount(pos string) error {
	return h.command("host.Unmount", func() error { return h.unmount(pos) })
}

// Destroy destroys the instance at pos and frees the position. A mounted
// instance must be unmounted first; an instance in the error state may be
// destroyed directly.
func (h *Host) Destroy(pos string) error {
	return h.command("host.Destroy", func() error { return h.destroy(pos) })
}

// Set writes a field of the instance at pos. When the field is watched a
// change notification is queued; when the value changed and the instance is
// mounted a render is queued behind it. Set does not drain the queue.
func (h *Host) Set(pos, field string, value any) error {
	const op = "host.Set"
	s, err := h.live(op, pos)
	if err != nil {
		return err
	}
	c, err := s.inst.SetField(field, value)
	if err != nil {
		return h.usage(op, pos, s.inst.ID(), err)
	}
	if c.Watched {
		h.queue.push(&task{kind: taskNotify, op: op, slot: s, change: c})
	}
	if c.Dirty && s.inst.IsMounted() {
		h.scheduleRender(s)
	}
	return nil
}

// Get returns the current value of a field of the instance at pos.
func (h *Host) Get(pos, field string) (any, error) {
	s, err := h.live("host.Get", pos)
	if err != nil {
		return nil, err
	}
	return s.inst.Get(field), nil
}

// Watch registers fn for change notifications on field of the instance at
// pos.
func (h *Host) Watch(pos, field string, fn core.ChangeFunc) error {
	const op = "host.Watch"
	s, err := h.live(op, pos)
	if err != nil {
		return err
	}
	if err := s.inst.Watch(field, fn); err != nil {
		return h.usage(op, pos, s.inst.ID(), err)
	}
	return nil
}

// Pump drains the queue and returns the hook failures recorded since the
// previous Pump, joined. Calling Pump from inside a hook is a no-op.
func (h *Host) Pump() error {
	if h.draining {
		return nil
	}
	h.drain()
	errs := h.pending
	h.pending = nil
	return stderrors.Join(errs...)
}

// Output is an observation point: it drains the queue, renders the instance
// at pos once more if it is still dirty and mounted, and returns its latest
// output. From inside a hook it returns the cached output without draining.
//
// Renders happen only around mounts, so an instance that was constructed
// but never mounted has no output: Output returns ErrNotRenderable for it,
// dirty or not, and does not render it.
func (h *Host) Output(pos string) (any, error) {
	const op = "host.Output"
	if !h.draining {
		h.drain()
	}
	s, err := h.live(op, pos)
	if err != nil {
		return nil, err
	}
	inst := s.inst
	if inst.Phase() == core.PhaseError {
		return nil, h.usage(op, pos, inst.ID(), errors.ErrInstanceFailed)
	}
	if !h.draining && inst.IsMounted() && inst.Dirty() {
		h.cancelRender(s)
		if err := h.render(op, s); err != nil {
			return nil, err
		}
	}
	out, ok := inst.Output()
	if !ok {
		return nil, h.usage(op, pos, inst.ID(), errors.ErrNotRenderable)
	}
	return out, nil
}

// AfterFunc schedules fn to run as a queued event once the virtual clock
// has advanced by d. The returned function cancels the timer.
func (h *Host) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	return h.clock.schedule(d, fn)
}

// Advance moves the virtual clock forward by d, firing due timers in
// deadline order. Each timer runs as its own event and the queue is drained
// after it. Returns the failures Pump would return.
func (h *Host) Advance(d time.Duration) error {
	const op = "host.Advance"
	if h.draining {
		return h.usage(op, "", "", errors.ErrReentrant)
	}
	limit := h.clock.Now().Add(d)
	h.drain()
	for {
		t, ok := h.clock.next(limit)
		if !ok {
			break
		}
		fn := t.fn
		h.queue.push(&task{kind: taskTimer, op: "host.AfterFunc", run: func() error {
			fn()
			return nil
		}})
		h.drain()
	}
	if limit.After(h.clock.Now()) {
		h.clock.Set(limit)
	}
	return h.Pump()
}

// Shutdown unmounts and destroys every instance.
func (h *Host) Shutdown() error {
	return h.command("host.Shutdown", func() error {
		return h.transition(Transition{Discard: h.Positions()})
	})
}

// command queues run and, unless a drain is already in progress, drains
// the queue and returns run's error.
func (h *Host) command(op string, run func() error) error {
	t := &task{kind: taskCommand, op: op, run: run}
	h.queue.push(t)
	if h.draining {
		h.logger.Debug("%s queued behind %d events", op, h.queue.Len()-1)
		return nil
	}
	h.drain()
	return t.err
}

func (h *Host) drain() {
	if h.draining {
		return
	}
	h.draining = true
	defer func() { h.draining = false }()

	n := 0
	for {
		t, ok := h.queue.pop()
		if !ok {
			break
		}
		h.execute(t)
		n++
	}
	if n > 0 {
		h.logger.Debug("drained %d events, log at #%d", n, h.log.LastSeq())
	}
}

func (h *Host) execute(t *task) {
	switch t.kind {
	case taskCommand, taskTimer:
		t.err = h.protect(t.op, t.run)
	case taskNotify:
		h.deliver(t.slot, t.change)
	case taskRender:
		s := t.slot
		if s.render == t {
			s.render = nil
		}
		if s.inst.IsMounted() && s.inst.Dirty() {
			h.render("host.render", s)
		}
	}
}

// protect runs non-hook user code, converting a panic into a reported
// PanicError.
func (h *Host) protect(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &errors.PanicError{
				Op:         op,
				Value:      r,
				StackTrace: errors.CaptureStack(),
				Timestamp:  h.clock.Now(),
			}
			if hd := h.errorHandler(); hd != nil {
				hd.HandlePanic(pe)
			}
			h.logger.Error("%v", pe)
			h.pending = append(h.pending, pe)
			err = pe
		}
	}()
	return fn()
}

func (h *Host) construct(pos, kind string, initial map[string]any) error {
	const op = "host.Construct"
	if s, ok := h.slots[pos]; ok {
		return h.usage(op, pos, s.inst.ID(), errors.ErrPositionOccupied)
	}
	view, ok := h.views[kind]
	if !ok {
		return h.usage(op, pos, "", fmt.Errorf("%w: %q", errors.ErrUnknownView, kind))
	}
	inst, err := core.Construct(view, h.ids(kind), initial)
	if inst == nil {
		return h.usage(op, pos, "", err)
	}
	s := &slot{pos: pos, inst: inst}
	h.slots[pos] = s
	h.emit(s, eventlog.Event{Kind: eventlog.KindConstruct})
	if he, ok := errors.AsHook(err); ok {
		h.fail(s, he)
		return he
	}
	return nil
}

func (h *Host) mount(pos string) error {
	const op = "host.Mount"
	s, err := h.live(op, pos)
	if err != nil {
		return err
	}
	inst := s.inst
	if inst.IsMounted() || inst.Phase() == core.PhaseError {
		return h.usage(op, pos, inst.ID(), inst.Mount())
	}
	if err := h.render(op, s); err != nil {
		return err
	}
	h.emit(s, eventlog.Event{Kind: eventlog.KindMount})
	return h.check(op, s, inst.Mount())
}

func (h *Host) unmount(pos string) error {
	const op = "host.Unmount"
	s, err := h.live(op, pos)
	if err != nil {
		return err
	}
	inst := s.inst
	if !inst.IsMounted() {
		return h.usage(op, pos, inst.ID(), inst.Unmount())
	}
	h.cancelRender(s)
	h.emit(s, eventlog.Event{Kind: eventlog.KindUnmount})
	return h.check(op, s, inst.Unmount())
}

func (h *Host) destroy(pos string) error {
	const op = "host.Destroy"
	s, err := h.live(op, pos)
	if err != nil {
		return err
	}
	inst := s.inst
	if inst.IsMounted() {
		return h.usage(op, pos, inst.ID(), inst.Destroy())
	}
	h.queue.dropFor(s)
	s.render = nil
	h.emit(s, eventlog.Event{Kind: eventlog.KindDestroy})
	delete(h.slots, pos)
	return h.check(op, s, inst.Destroy())
}

// render logs RENDER and runs the render function.
func (h *Host) render(op string, s *slot) error {
	if !s.inst.CanRender() {
		return h.usage(op, s.pos, s.inst.ID(), errors.ErrNotRenderable)
	}
	h.emit(s, eventlog.Event{Kind: eventlog.KindRender})
	_, err := s.inst.Render()
	return h.check(op, s, err)
}

func (h *Host) deliver(s *slot, c core.Change) {
	h.emit(s, eventlog.Event{Kind: eventlog.KindChange, Field: c.Field, Old: c.Old, New: c.New})
	h.check("host.notify", s, s.inst.Notify(c))
}

func (h *Host) scheduleRender(s *slot) {
	h.cancelRender(s)
	t := &task{kind: taskRender, op: "host.render", slot: s}
	s.render = t
	h.queue.push(t)
}

func (h *Host) cancelRender(s *slot) {
	if s.render != nil {
		s.render.dropped = true
		s.render = nil
	}
}

// check classifies an error returned by an instance operation.
func (h *Host) check(op string, s *slot, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := errors.AsHook(err); ok {
		h.fail(s, he)
		return he
	}
	return h.usage(op, s.pos, s.inst.ID(), err)
}

// fail records a hook failure: the instance is already in the error state;
// its queued events are dropped and an ERROR event is logged.
func (h *Host) fail(s *slot, he *errors.HookError) {
	he.Position = s.pos
	he.Timestamp = h.clock.Now()
	h.queue.dropFor(s)
	s.render = nil
	h.emit(s, eventlog.Event{Kind: eventlog.KindError, Hook: string(he.Hook), Err: he.Error()})
	h.failures = append(h.failures, he)
	h.pending = append(h.pending, he)
	h.logger.Error("%s: %v", s.pos, he)
	errors.ReportHookTo(h.errorHandler(), he)
}

func (h *Host) emit(s *slot, e eventlog.Event) {
	e.Instance = s.inst.ID()
	e.Position = s.pos
	e.View = s.inst.Kind()
	e.Time = h.clock.Now()
	h.log.Append(e)
}

func (h *Host) live(op, pos string) (*slot, error) {
	s, ok := h.slots[pos]
	if !ok {
		return nil, h.usage(op, pos, "", errors.ErrNoInstance)
	}
	return s, nil
}

// usage wraps err as a usage error at pos, reports it and returns it.
func (h *Host) usage(op, pos, id string, err error) error {
	if err == nil {
		return nil
	}
	var le *errors.LifecycleError
	if !stderrors.As(err, &le) {
		le = errors.Usage(op, id, err)
	}
	if le.Position == "" {
		le.Position = pos
	}
	if le.Timestamp.IsZero() {
		le.Timestamp = h.clock.Now()
	}
	h.logger.Warn("%v", le)
	errors.ReportTo(h.errorHandler(), le)
	return le
}

func (h *Host) errorHandler() errors.ErrorHandler {
	if h.handler != nil {
		return h.handler
	}
	return errors.Handler()
}
