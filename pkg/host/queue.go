package host

import "github.com/go-drift/viewcycle/pkg/core"

type taskKind int

const (
	taskCommand taskKind = iota
	taskNotify
	taskRender
	taskTimer
)

func (k taskKind) String() string {
	switch k {
	case taskNotify:
		return "notify"
	case taskRender:
		return "render"
	case taskTimer:
		return "timer"
	}
	return "command"
}

// task is one queued unit of work. Dropped tasks stay in the queue and are
// skipped when reached.
type task struct {
	kind    taskKind
	op      string
	slot    *slot
	change  core.Change
	run     func() error
	dropped bool
	err     error
}

// queue is the host's FIFO event queue.
type queue struct {
	items []*task
}

func (q *queue) push(t *task) {
	q.items = append(q.items, t)
}

func (q *queue) pop() (*task, bool) {
	for len(q.items) > 0 {
		t := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		if !t.dropped {
			return t, true
		}
	}
	return nil, false
}

// dropFor marks every queued task of s as dropped.
func (q *queue) dropFor(s *slot) {
	for _, t := range q.items {
		if t.slot == s {
			t.dropped = true
		}
	}
}

// Len returns the number of live tasks.
func (q *queue) Len() int {
	n := 0
	for _, t := range q.items {
		if !t.dropped {
			n++
		}
	}
	return n
}
