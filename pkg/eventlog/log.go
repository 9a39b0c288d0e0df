package eventlog

// Log is an append-only sequence of events. It is owned by a single host
// event loop and is not safe for concurrent use.
type Log struct {
	events []Event
	seq    uint64
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// Append assigns the next sequence number to e and records it.
func (l *Log) Append(e Event) Event {
	l.seq++
	e.Seq = l.seq
	l.events = append(l.events, e)
	return e
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	return len(l.events)
}

// Events returns a copy of all recorded events.
func (l *Log) Events() []Event {
	return append([]Event(nil), l.events...)
}

// Since returns the events with a sequence number greater than seq.
func (l *Log) Since(seq uint64) []Event {
	for i, e := range l.events {
		if e.Seq > seq {
			return append([]Event(nil), l.events[i:]...)
		}
	}
	return nil
}

// LastSeq returns the sequence number of the newest event, or 0.
func (l *Log) LastSeq() uint64 {
	return l.seq
}

// ForInstance returns the events concerning one instance.
func (l *Log) ForInstance(id string) []Event {
	return Filter(l.events, func(e Event) bool { return e.Instance == id })
}

// ForPosition returns the events concerning any instance at pos.
func (l *Log) ForPosition(pos string) []Event {
	return Filter(l.events, func(e Event) bool { return e.Position == pos })
}

// Count returns how many events of kind were recorded.
func (l *Log) Count(kind Kind) int {
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Signatures returns the id-free signature of every event.
func (l *Log) Signatures() []string {
	return Signatures(l.events)
}

// Reset discards all events. Sequence numbers keep increasing.
func (l *Log) Reset() {
	l.events = nil
}

// Filter returns the events for which keep returns true.
func Filter(events []Event, keep func(Event) bool) []Event {
	var out []Event
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Signatures maps events to their signatures.
func Signatures(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Signature()
	}
	return out
}
