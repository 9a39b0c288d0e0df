package testing

import "github.com/go-drift/viewcycle/pkg/eventlog"

// CaptureSnapshot captures the signatures of the events logged after the
// mark.
func (t *HostTester) CaptureSnapshot() *eventlog.Snapshot {
	t.host.Pump()
	return eventlog.Capture(t.Since())
}

// CaptureFullSnapshot captures the signatures of the whole log.
func (t *HostTester) CaptureFullSnapshot() *eventlog.Snapshot {
	t.host.Pump()
	return eventlog.Capture(t.host.Log().Events())
}
