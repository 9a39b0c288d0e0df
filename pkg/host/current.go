package host

import "sync/atomic"

var current atomic.Pointer[Host]

// SetCurrent installs h as the process-wide active host and returns a
// function restoring the previous one. Programs call it once at startup and
// run the restore at shutdown; tests defer it.
func SetCurrent(h *Host) (restore func()) {
	prev := current.Swap(h)
	return func() {
		current.Store(prev)
	}
}

// Current returns the active host, or nil before SetCurrent.
func Current() *Host {
	return current.Load()
}
