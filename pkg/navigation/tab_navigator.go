package navigation

import (
	"fmt"

	"github.com/go-drift/viewcycle/pkg/host"
)

// Tab configures one tab of a TabNavigator.
type Tab struct {
	// Name identifies the tab and prefixes the positions of its routes.
	Name string
	// Root is the route shown when the tab is first selected.
	Root Route
	// Observers receive navigation events for this tab's navigator.
	Observers []NavigatorObserver
}

// TabNavigator switches between tabs, each with its own navigator stack.
// Unselected tabs keep their instances unmounted but alive, so switching
// back restores their state.
type TabNavigator struct {
	host     *host.Host
	tabs     []Tab
	navs     []*Navigator
	selected int

	// Scope, when set, is told which tab navigator is active.
	Scope *Scope
}

// NewTabNavigator creates a tab navigator. No tab is selected until Select
// is called.
func NewTabNavigator(h *host.Host, prefix string, tabs ...Tab) *TabNavigator {
	t := &TabNavigator{host: h, tabs: tabs, selected: -1}
	for _, tab := range tabs {
		nav := NewNavigator(h, prefix+"/"+tab.Name, tab.Observers...)
		nav.hidden = true
		t.navs = append(t.navs, nav)
	}
	return t
}

// Select makes tab i visible. The previously selected tab's top route is
// unmounted; the new tab's root is constructed on first selection.
func (t *TabNavigator) Select(i int) error {
	if i < 0 || i >= len(t.tabs) {
		return fmt.Errorf("tab index %d out of range [0, %d)", i, len(t.tabs))
	}
	if i == t.selected {
		return nil
	}

	var tr host.Transition
	if t.selected >= 0 {
		prev := t.navs[t.selected]
		if top, ok := prev.Top(); ok {
			tr.Leave = []string{top.position}
		}
		prev.hidden = true
	}

	next := t.navs[i]
	if next.Depth() == 0 {
		root := t.tabs[i].Root
		if root.Name == "" {
			root.Name = t.tabs[i].Name
		}
		root.position = next.positionFor(root.Name, 0)
		next.routes = append(next.routes, root)
	}
	top, _ := next.Top()
	tr.Enter = []host.Slot{top.slot()}
	next.hidden = false
	t.selected = i

	if t.Scope != nil {
		t.Scope.SetActive(next)
	}
	return t.host.Transition(tr)
}

// Selected returns the index of the visible tab, or -1.
func (t *TabNavigator) Selected() int { return t.selected }

// Navigator returns the navigator of tab i.
func (t *TabNavigator) Navigator(i int) *Navigator {
	if i < 0 || i >= len(t.navs) {
		return nil
	}
	return t.navs[i]
}

// Current returns the navigator of the selected tab, or nil.
func (t *TabNavigator) Current() *Navigator {
	return t.Navigator(t.selected)
}

// Len returns the number of tabs.
func (t *TabNavigator) Len() int { return len(t.tabs) }

// Index returns the index of the tab called name, or -1.
func (t *TabNavigator) Index(name string) int {
	for i, tab := range t.tabs {
		if tab.Name == name {
			return i
		}
	}
	return -1
}
