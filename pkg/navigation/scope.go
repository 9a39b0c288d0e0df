package navigation

// Scope tracks which navigator receives back navigation.
//
// In apps with several navigators (a [TabNavigator] with per-tab stacks
// under a root stack), Scope routes a back request to the right one:
//
//   - The active navigator (set by TabNavigator on selection) pops first
//   - When the active navigator can't pop, the root does
type Scope struct {
	root   *Navigator
	active *Navigator
}

// SetRoot registers the root navigator.
func (s *Scope) SetRoot(nav *Navigator) {
	s.root = nav
	if s.active == nil {
		s.active = nav
	}
}

// SetActive sets which navigator receives back requests.
func (s *Scope) SetActive(nav *Navigator) {
	s.active = nav
}

// Active returns the currently focused navigator.
func (s *Scope) Active() *Navigator {
	if s.active != nil {
		return s.active
	}
	return s.root
}

// Root returns the root navigator, or nil.
func (s *Scope) Root() *Navigator { return s.root }

// Back pops the active navigator, falling back to the root when the active
// one is at its first route. It returns false when nothing could be popped.
func (s *Scope) Back() (bool, error) {
	nav := s.Active()
	if nav == nil {
		return false, nil
	}
	if nav.CanPop() {
		_, err := nav.Pop()
		return true, err
	}
	if nav != s.root && s.root != nil && s.root.CanPop() {
		_, err := s.root.Pop()
		return true, err
	}
	return false, nil
}
