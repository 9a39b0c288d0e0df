package host

import (
	stderrors "errors"
	"fmt"

	"github.com/go-drift/viewcycle/pkg/errors"
)

// Slot names the kind of instance a position should hold and the state a
// fresh instance starts with.
type Slot struct {
	Position string
	Kind     string
	Initial  map[string]any
}

// Transition moves the host from one set of visible positions to another.
type Transition struct {
	// Leave lists positions to unmount and retain.
	Leave []string
	// Discard lists positions to unmount (when mounted) and destroy.
	Discard []string
	// Enter lists positions to mount, constructing a fresh instance where
	// the position is empty.
	Enter []Slot
}

// Transition applies tr as a single event. Under UnmountFirst the outgoing
// positions are unmounted before any incoming one mounts; under MountFirst
// the incoming positions mount first. A position that is both discarded and
// entered is replaced, and its old instance is always torn down first.
//
// Step failures do not abort the transition; they are joined and returned.
func (h *Host) Transition(tr Transition) error {
	return h.command("host.Transition", func() error { return h.transition(tr) })
}

// Reconcile makes reachable the exact set of live positions: every live
// instance at a position not in reachable, or of a different kind, is
// unmounted and destroyed, and every reachable position is mounted,
// constructing where needed.
func (h *Host) Reconcile(reachable []Slot) error {
	return h.command("host.Reconcile", func() error {
		want := make(map[string]string, len(reachable))
		for _, sl := range reachable {
			want[sl.Position] = sl.Kind
		}
		var discard []string
		for _, pos := range h.Positions() {
			kind, ok := want[pos]
			if !ok || (kind != "" && kind != h.slots[pos].inst.Kind()) {
				discard = append(discard, pos)
			}
		}
		return h.transition(Transition{Discard: discard, Enter: reachable})
	})
}

func (h *Host) transition(tr Transition) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	entering := make(map[string]bool, len(tr.Enter))
	for _, sl := range tr.Enter {
		entering[sl.Position] = true
	}
	var replaced, discarded []string
	for _, pos := range tr.Discard {
		if entering[pos] {
			replaced = append(replaced, pos)
		} else {
			discarded = append(discarded, pos)
		}
	}

	outgoing := func() {
		for _, pos := range tr.Leave {
			if inst := h.Instance(pos); inst != nil && inst.IsMounted() {
				collect(h.unmount(pos))
			}
		}
		for _, pos := range discarded {
			collect(h.discard(pos))
		}
	}
	incoming := func() {
		for _, sl := range tr.Enter {
			collect(h.enter(sl))
		}
	}

	for _, pos := range replaced {
		collect(h.discard(pos))
	}
	if h.policy == MountFirst {
		incoming()
		outgoing()
	} else {
		outgoing()
		incoming()
	}
	return stderrors.Join(errs...)
}

// discard unmounts and destroys the instance at pos. Missing positions are
// ignored.
func (h *Host) discard(pos string) error {
	inst := h.Instance(pos)
	if inst == nil {
		return nil
	}
	var errs []error
	if inst.IsMounted() {
		if err := h.unmount(pos); err != nil {
			errs = append(errs, err)
		}
	}
	if err := h.destroy(pos); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

func (h *Host) enter(sl Slot) error {
	const op = "host.Transition"
	inst := h.Instance(sl.Position)
	if inst == nil {
		if err := h.construct(sl.Position, sl.Kind, sl.Initial); err != nil {
			return err
		}
		inst = h.Instance(sl.Position)
	} else if sl.Kind != "" && inst.Kind() != sl.Kind {
		return h.usage(op, sl.Position, inst.ID(),
			fmt.Errorf("%w: holds %s, want %s", errors.ErrPositionOccupied, inst.Kind(), sl.Kind))
	}
	if inst.IsMounted() {
		return nil
	}
	return h.mount(sl.Position)
}

// Mounted returns the positions whose instance is mounted, sorted.
func (h *Host) Mounted() []string {
	var out []string
	for _, pos := range h.Positions() {
		if h.slots[pos].inst.IsMounted() {
			out = append(out, pos)
		}
	}
	return out
}
