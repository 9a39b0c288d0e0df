// Package core provides the view instance model and its lifecycle.
//
// A View is an immutable description of one kind of view: the fields of its
// observable state, a pure render function, and optional construct, appear,
// disappear and change callbacks. An Instance is one constructed occurrence
// of a View at a position chosen by the host.
//
// # Lifecycle
//
// Every instance moves through the same phases:
//
//	unconstructed -> constructed -> mounted <-> unmounted -> destroyed
//
// with render allowed while constructed or mounted, and an error phase
// reachable from any active phase when a callback fails. Mount and unmount
// strictly alternate; calling either twice is a usage error reported as a
// *errors.LifecycleError, never a panic.
//
// # State
//
// Fields are declared with a FieldSpec. SetField validates the value against
// the declared type, applies it, and reports whether the instance became
// dirty (the value changed by deep equality) and whether watchers are owed a
// notification:
//
//	c, err := inst.SetField("count", 1)
//	if c.Watched {
//	    inst.Notify(c)
//	}
//	if inst.Dirty() {
//	    inst.Render()
//	}
//
// Instances do not schedule anything on their own. Ordering of notifications,
// renders and lifecycle edges is the host's responsibility; see package host.
//
// # Render
//
// Render functions receive a Snapshot, a read-only copy of the state. They
// cannot mutate the instance, so rendering twice without an intervening
// SetField yields equal output.
package core
