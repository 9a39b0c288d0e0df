package core

import "github.com/go-drift/viewcycle/pkg/errors"

// OnDispose registers a cleanup function to run when the instance is
// destroyed. Returns an unregister function. On an already destroyed
// instance the cleanup runs immediately.
func (i *Instance) OnDispose(cleanup func()) func() {
	if cleanup == nil {
		return func() {}
	}
	if i.phase == PhaseDestroyed {
		cleanup()
		return func() {}
	}

	index := len(i.disposers)
	i.disposers = append(i.disposers, cleanup)

	return func() {
		if index < len(i.disposers) {
			i.disposers[index] = nil
		}
	}
}

// runDisposers executes registered disposers in reverse order (LIFO).
func (i *Instance) runDisposers() {
	for idx := len(i.disposers) - 1; idx >= 0; idx-- {
		if fn := i.disposers[idx]; fn != nil {
			func() {
				defer errors.Recover("core.Dispose")
				fn()
			}()
		}
	}
	i.disposers = nil
}
