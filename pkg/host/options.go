package host

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/go-drift/viewcycle/internal/logger"
	"github.com/go-drift/viewcycle/pkg/errors"
)

// Policy decides the order of unmounts and mounts within a transition.
type Policy int

const (
	// UnmountFirst unmounts the outgoing instances before any incoming
	// instance mounts.
	UnmountFirst Policy = iota
	// MountFirst mounts the incoming instances first, the way an animated
	// transition keeps both screens on stage for a moment.
	MountFirst
)

func (p Policy) String() string {
	if p == MountFirst {
		return "mount-first"
	}
	return "unmount-first"
}

// ParsePolicy parses "unmount-first" or "mount-first". The empty string
// selects UnmountFirst.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unmount-first", "unmountfirst":
		return UnmountFirst, nil
	case "mount-first", "mountfirst":
		return MountFirst, nil
	}
	return UnmountFirst, fmt.Errorf("unknown ordering policy %q (want unmount-first or mount-first)", s)
}

// IDGenerator returns a fresh instance id for a view kind.
type IDGenerator func(kind string) string

// UUIDs generates ids of the form "counter-1b4e28ba".
func UUIDs() IDGenerator {
	return func(kind string) string {
		return kind + "-" + uuid.New().String()[:8]
	}
}

// Sequential generates ids of the form "counter#1", "list#2". The counter is
// shared across kinds so ids stay unique within one host.
func Sequential() IDGenerator {
	var n atomic.Uint64
	return func(kind string) string {
		return fmt.Sprintf("%s#%d", kind, n.Add(1))
	}
}

// Option configures a Host.
type Option func(*Host)

// WithPolicy sets the transition ordering policy.
func WithPolicy(p Policy) Option {
	return func(h *Host) {
		h.policy = p
	}
}

// WithIDGenerator replaces the default uuid-based id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(h *Host) {
		if gen != nil {
			h.ids = gen
		}
	}
}

// WithHandler routes usage errors and hook failures to handler instead of
// the global errors.Handler.
func WithHandler(handler errors.ErrorHandler) Option {
	return func(h *Host) {
		h.handler = handler
	}
}

// WithLogger sets the logger used for drain tracing and warnings.
func WithLogger(l logger.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock replaces the virtual clock.
func WithClock(c *Clock) Option {
	return func(h *Host) {
		if c != nil {
			h.clock = c
		}
	}
}
