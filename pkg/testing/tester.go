package testing

import (
	stderrors "errors"
	"reflect"
	"testing"
	"time"

	"github.com/go-drift/viewcycle/internal/logger"
	"github.com/go-drift/viewcycle/pkg/core"
	"github.com/go-drift/viewcycle/pkg/errors"
	"github.com/go-drift/viewcycle/pkg/eventlog"
	"github.com/go-drift/viewcycle/pkg/host"
)

// SettleStep is how far Settle advances the virtual clock per iteration.
const SettleStep = 16 * time.Millisecond

// ErrSettleTimeout is returned when Settle exceeds its timeout.
var ErrSettleTimeout = stderrors.New("Settle timed out: timers are still pending")

// HostTester drives a host with deterministic ids, a collecting error
// handler and a buffered logger, and records a mark in the event log so
// tests can assert on the events of one step at a time.
type HostTester struct {
	host    *host.Host
	handler *errors.CollectingHandler
	logs    *logger.BufferLogger
	restore func()
	mark    uint64
}

// NewHostTester creates a tester and installs its host as the current
// host. Call Cleanup() when done, or use NewHostTesterWithT() instead.
func NewHostTester(opts ...host.Option) *HostTester {
	t := &HostTester{
		handler: &errors.CollectingHandler{},
		logs:    logger.NewBufferLogger(),
	}
	opts = append([]host.Option{
		host.WithIDGenerator(host.Sequential()),
		host.WithHandler(t.handler),
		host.WithLogger(t.logs),
	}, opts...)
	t.host = host.New(opts...)
	t.restore = host.SetCurrent(t.host)
	return t
}

// NewHostTesterWithT creates a tester that cleans up via t.Cleanup() and
// fails the test if the final log breaks a lifecycle rule.
// This is the recommended constructor for tests.
func NewHostTesterWithT(t *testing.T, opts ...host.Option) *HostTester {
	tester := NewHostTester(opts...)
	t.Cleanup(func() {
		tester.VerifyLog(t)
		tester.Cleanup()
	})
	return tester
}

// Cleanup restores the previously current host. Must be called if not
// using NewHostTesterWithT.
func (t *HostTester) Cleanup() {
	if t.restore != nil {
		t.restore()
		t.restore = nil
	}
}

// Host returns the host under test.
func (t *HostTester) Host() *host.Host { return t.host }

// Handler returns the handler that collected reported errors.
func (t *HostTester) Handler() *errors.CollectingHandler { return t.handler }

// Logs returns the logger the host writes to.
func (t *HostTester) Logs() *logger.BufferLogger { return t.logs }

// Register registers views with the host, panicking on invalid
// definitions.
func (t *HostTester) Register(views ...*core.View) {
	if err := t.host.Register(views...); err != nil {
		panic(err)
	}
}

// Pump drains the host queue and returns the hook failures since the
// previous Pump.
func (t *HostTester) Pump() error {
	return t.host.Pump()
}

// Advance moves the virtual clock forward by d, firing due timers.
func (t *HostTester) Advance(d time.Duration) error {
	return t.host.Advance(d)
}

// Settle advances the clock in SettleStep increments until no timers or
// events are pending. Returns ErrSettleTimeout if work remains after
// timeout.
func (t *HostTester) Settle(timeout time.Duration) error {
	var errs []error
	var elapsed time.Duration
	for {
		if err := t.host.Pump(); err != nil {
			errs = append(errs, err)
		}
		if !t.needsWork() {
			return stderrors.Join(errs...)
		}
		if elapsed >= timeout {
			return stderrors.Join(append(errs, ErrSettleTimeout)...)
		}
		if err := t.host.Advance(SettleStep); err != nil {
			errs = append(errs, err)
		}
		elapsed += SettleStep
	}
}

func (t *HostTester) needsWork() bool {
	return t.host.Pending() > 0 || t.host.Clock().Pending() > 0
}

// Mark records the current end of the log. Since and ExpectLog report the
// events appended after the most recent mark.
func (t *HostTester) Mark() {
	t.mark = t.host.Log().LastSeq()
}

// Since returns the events logged after the mark.
func (t *HostTester) Since() []eventlog.Event {
	return t.host.Log().Since(t.mark)
}

// Signatures returns the signatures of the events logged after the mark.
func (t *HostTester) Signatures() []string {
	return eventlog.Signatures(t.Since())
}

// ExpectLog drains the queue and checks that the events logged after the
// mark have exactly the signatures want. It moves the mark to the end of
// the log and reports whether the check passed.
func (t *HostTester) ExpectLog(tt eventlog.TestingT, want ...string) bool {
	tt.Helper()
	t.host.Pump()
	got := t.Signatures()
	t.Mark()
	if want == nil {
		want = []string{}
	}
	if !reflect.DeepEqual(got, want) {
		tt.Errorf("event log mismatch\n%s", eventlog.Diff(want, got))
		return false
	}
	return true
}

// VerifyLog reports every lifecycle rule the whole log breaks.
func (t *HostTester) VerifyLog(tt eventlog.TestingT) {
	tt.Helper()
	for _, v := range eventlog.Verify(t.host.Log().Events()) {
		tt.Errorf("lifecycle violation: %s", v)
	}
}
