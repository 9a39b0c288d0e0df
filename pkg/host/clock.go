package host

import (
	"sort"
	"time"
)

// Epoch is the instant a new Clock starts at.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock is the host's virtual time source. Time only moves when the host
// advances it, which keeps event timestamps and timer firing deterministic.
// Like the Host that owns it, a Clock is not safe for concurrent use.
type Clock struct {
	now    time.Time
	timers []*timer
	nextID uint64
}

type timer struct {
	id       uint64
	deadline time.Time
	fn       func()
}

// NewClock returns a Clock starting at Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the current virtual time.
func (c *Clock) Now() time.Time {
	return c.now
}

// Set sets the clock to an exact time without firing timers.
func (c *Clock) Set(t time.Time) {
	c.now = t
}

// schedule registers fn to fire d after the current time and returns a
// cancel function.
func (c *Clock) schedule(d time.Duration, fn func()) func() {
	c.nextID++
	t := &timer{id: c.nextID, deadline: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return func() {
		for i, other := range c.timers {
			if other.id == t.id {
				c.timers = append(c.timers[:i], c.timers[i+1:]...)
				return
			}
		}
	}
}

// next removes and returns the earliest timer due at or before limit,
// moving the clock to its deadline. Timers with equal deadlines fire in
// scheduling order.
func (c *Clock) next(limit time.Time) (*timer, bool) {
	if len(c.timers) == 0 {
		return nil, false
	}
	sort.SliceStable(c.timers, func(i, j int) bool {
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})
	t := c.timers[0]
	if t.deadline.After(limit) {
		return nil, false
	}
	c.timers = c.timers[1:]
	if t.deadline.After(c.now) {
		c.now = t.deadline
	}
	return t, true
}

// Pending returns the number of scheduled timers.
func (c *Clock) Pending() int {
	return len(c.timers)
}
