// Package navigation provides stack and tab navigation on top of a lifecycle
// host.
//
// A [Navigator] keeps a stack of routes. Pushing a route unmounts the
// current top and retains it; popping destroys the top and remounts the
// route underneath with its state intact:
//
//	nav := navigation.NewNavigator(h, "/app")
//	nav.Push(navigation.Route{Name: "list", Kind: "list"})
//	nav.Push(navigation.Route{Name: "detail", Kind: "detail"})
//	nav.Pop() // detail destroyed, list remounted
//
// A [TabNavigator] owns one Navigator per tab. Each tab's root is
// constructed on first selection and retained across switches.
//
// Whether outgoing screens unmount before incoming ones mount is decided by
// the host's ordering policy.
package navigation

import (
	stderrors "errors"
	"fmt"

	"github.com/go-drift/viewcycle/pkg/host"
)

// ErrCannotPop is returned by Pop when the stack holds a single route.
var ErrCannotPop = stderrors.New("navigator is at its root route")

// ErrInactive is returned when a hidden navigator (an unselected tab) is
// asked to change its stack.
var ErrInactive = stderrors.New("navigator is not visible")

// Route describes one screen on a navigator stack.
type Route struct {
	// Name identifies the route within its navigator (e.g., "detail").
	Name string
	// Kind is the registered view kind that renders the route.
	Kind string
	// Initial is the state a fresh instance starts with.
	Initial map[string]any

	position string
}

// Position returns the host position the route occupies. It is empty until
// the route is placed on a stack.
func (r Route) Position() string { return r.position }

func (r Route) slot() host.Slot {
	return host.Slot{Position: r.position, Kind: r.Kind, Initial: r.Initial}
}

// NavigatorObserver receives navigation events.
type NavigatorObserver interface {
	DidPush(route, previousRoute Route)
	DidPop(route, previousRoute Route)
	DidReplace(newRoute, oldRoute Route)
}

// Navigator manages a stack of routes on a host.
type Navigator struct {
	host   *host.Host
	prefix string
	routes []Route
	hidden bool

	// Observers receive navigation events.
	Observers []NavigatorObserver
}

// NewNavigator creates an empty navigator whose routes live under prefix.
func NewNavigator(h *host.Host, prefix string, observers ...NavigatorObserver) *Navigator {
	return &Navigator{host: h, prefix: prefix, Observers: observers}
}

// Push places route on top of the stack. The previous top is unmounted and
// retained. The first push simply mounts the route.
func (n *Navigator) Push(route Route) error {
	if n.hidden {
		return ErrInactive
	}
	route.position = n.positionFor(route.Name, len(n.routes))
	previous, hasPrevious := n.Top()

	tr := host.Transition{Enter: []host.Slot{route.slot()}}
	if hasPrevious {
		tr.Leave = []string{previous.position}
	}
	err := n.host.Transition(tr)
	n.routes = append(n.routes, route)
	for _, o := range n.Observers {
		o.DidPush(route, previous)
	}
	return err
}

// Pop destroys the top route and remounts the one beneath it. The revealed
// instance keeps its state because it was never destroyed.
func (n *Navigator) Pop() (Route, error) {
	if n.hidden {
		return Route{}, ErrInactive
	}
	if !n.CanPop() {
		return Route{}, ErrCannotPop
	}
	popped := n.routes[len(n.routes)-1]
	n.routes = n.routes[:len(n.routes)-1]
	revealed := n.routes[len(n.routes)-1]

	err := n.host.Transition(host.Transition{
		Discard: []string{popped.position},
		Enter:   []host.Slot{revealed.slot()},
	})
	for _, o := range n.Observers {
		o.DidPop(popped, revealed)
	}
	return popped, err
}

// PopUntil pops routes until keep returns true for the top route or only
// the root remains. The discarded routes are torn down in one transition.
func (n *Navigator) PopUntil(keep func(Route) bool) error {
	if n.hidden {
		return ErrInactive
	}
	var discard []string
	var popped []Route
	for len(n.routes) > 1 && !keep(n.routes[len(n.routes)-1]) {
		top := n.routes[len(n.routes)-1]
		discard = append(discard, top.position)
		popped = append(popped, top)
		n.routes = n.routes[:len(n.routes)-1]
	}
	if len(discard) == 0 {
		return nil
	}
	revealed := n.routes[len(n.routes)-1]
	err := n.host.Transition(host.Transition{Discard: discard, Enter: []host.Slot{revealed.slot()}})
	for _, r := range popped {
		for _, o := range n.Observers {
			o.DidPop(r, revealed)
		}
	}
	return err
}

// Replace destroys the top route and mounts route in its place.
func (n *Navigator) Replace(route Route) error {
	if n.hidden {
		return ErrInactive
	}
	old, ok := n.Top()
	if !ok {
		return n.Push(route)
	}
	route.position = n.positionFor(route.Name, len(n.routes)-1)
	n.routes[len(n.routes)-1] = route

	err := n.host.Transition(host.Transition{
		Discard: []string{old.position},
		Enter:   []host.Slot{route.slot()},
	})
	for _, o := range n.Observers {
		o.DidReplace(route, old)
	}
	return err
}

// Top returns the visible route.
func (n *Navigator) Top() (Route, bool) {
	if len(n.routes) == 0 {
		return Route{}, false
	}
	return n.routes[len(n.routes)-1], true
}

// CanPop reports whether there is a route beneath the top.
func (n *Navigator) CanPop() bool {
	return len(n.routes) > 1
}

// Stack returns the routes from root to top.
func (n *Navigator) Stack() []Route {
	return append([]Route(nil), n.routes...)
}

// Depth returns the number of routes on the stack.
func (n *Navigator) Depth() int { return len(n.routes) }

// positionFor derives a position unique within this navigator. A route name
// appearing twice on the stack gets its depth appended.
func (n *Navigator) positionFor(name string, depth int) string {
	pos := n.prefix + "/" + name
	for i, r := range n.routes {
		if i != depth && r.position == pos {
			return fmt.Sprintf("%s@%d", pos, depth)
		}
	}
	return pos
}
