package scenario

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/go-drift/viewcycle/internal/logger"
	"github.com/go-drift/viewcycle/pkg/errors"
	"github.com/go-drift/viewcycle/pkg/eventlog"
	"github.com/go-drift/viewcycle/pkg/host"
	"github.com/go-drift/viewcycle/pkg/navigation"
)

// TabsPrefix is the position prefix of the scenario tab navigator.
const TabsPrefix = "/tabs"

// Result is the outcome of one run.
type Result struct {
	Scenario *Scenario
	Policy   host.Policy
	Events   []eventlog.Event
	// Failures are the hook failures the host reported, in order.
	Failures []*errors.HookError
	// Usage holds the usage errors the host reported, including the ones
	// steps expected.
	Usage []*errors.LifecycleError
	// Mismatch is a diff between the expected and actual signatures, or
	// empty when they agree or no expectation was given.
	Mismatch string
	// Violations are lifecycle rule breaches found in the log.
	Violations []eventlog.Violation
	// WantFailures is the expected failure count, or -1.
	WantFailures int
}

// Passed reports whether the run met every expectation and the log obeys
// the lifecycle rules.
func (r *Result) Passed() bool {
	return len(r.Problems()) == 0
}

// Problems describes each way the run failed its expectations.
func (r *Result) Problems() []string {
	var out []string
	if r.Mismatch != "" {
		out = append(out, "event log does not match expect")
	}
	if r.WantFailures >= 0 && len(r.Failures) != r.WantFailures {
		out = append(out, fmt.Sprintf("got %d hook failures, want %d", len(r.Failures), r.WantFailures))
	}
	for _, v := range r.Violations {
		out = append(out, v.String())
	}
	return out
}

// RunOption configures Run.
type RunOption func(*runner)

// WithPolicy overrides the scenario's ordering policy.
func WithPolicy(p host.Policy) RunOption {
	return func(r *runner) { r.policy = p }
}

// WithLogger sets the logger handed to the host.
func WithLogger(l logger.Logger) RunOption {
	return func(r *runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithHostOptions appends options applied when the host is created.
func WithHostOptions(opts ...host.Option) RunOption {
	return func(r *runner) { r.hostOpts = append(r.hostOpts, opts...) }
}

type runner struct {
	sc       *Scenario
	policy   host.Policy
	logger   logger.Logger
	hostOpts []host.Option

	h     *host.Host
	scope *navigation.Scope
	tabs  *navigation.TabNavigator
	// timerErrs collects unexpected errors from steps run by timers.
	timerErrs []error
}

// Run executes sc on a fresh host. The returned error is non-nil when the
// scenario could not be carried out (a step failed unexpectedly or ctx was
// cancelled); expectation failures are reported through Result.
func Run(ctx context.Context, sc *Scenario, opts ...RunOption) (*Result, error) {
	const op = "scenario.Run"
	policy, err := host.ParsePolicy(sc.Policy)
	if err != nil {
		return nil, scenarioError(op, err)
	}
	r := &runner{sc: sc, policy: policy, logger: logger.Default()}
	for _, opt := range opts {
		opt(r)
	}
	views, err := sc.BuildViews()
	if err != nil {
		return nil, err
	}

	handler := &errors.CollectingHandler{}
	hostOpts := append([]host.Option{
		host.WithPolicy(r.policy),
		host.WithIDGenerator(host.Sequential()),
		host.WithHandler(handler),
		host.WithLogger(r.logger),
	}, r.hostOpts...)
	r.h = host.New(hostOpts...)
	if err := r.h.Register(views...); err != nil {
		return nil, scenarioError(op, err)
	}

	r.scope = &navigation.Scope{}
	r.scope.SetRoot(navigation.NewNavigator(r.h, ""))
	if len(sc.Tabs) > 0 {
		tabs := make([]navigation.Tab, 0, len(sc.Tabs))
		for _, t := range sc.Tabs {
			tabs = append(tabs, navigation.Tab{Name: t.Name, Root: navigation.Route{Kind: t.View, Initial: t.State}})
		}
		r.tabs = navigation.NewTabNavigator(r.h, TabsPrefix, tabs...)
		r.tabs.Scope = r.scope
	}

	r.logger.Debug("running scenario %q (%s)", sc.Name, r.policy)
	for i := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.step(i+1, &sc.Steps[i]); err != nil {
			return nil, err
		}
	}
	// Failures are read from the host below.
	_ = r.h.Pump()

	res := &Result{
		Scenario:     sc,
		Policy:       r.policy,
		Events:       r.h.Log().Events(),
		Failures:     r.h.Failures(),
		Usage:        handler.Usage(),
		WantFailures: -1,
	}
	if sc.Failures != nil {
		res.WantFailures = *sc.Failures
	}
	res.Violations = eventlog.Verify(res.Events)
	if len(sc.Expect) > 0 {
		want := make([]string, len(sc.Expect))
		for i, line := range sc.Expect {
			want[i] = normalizeSignature(line)
		}
		got := eventlog.Signatures(res.Events)
		for i, line := range got {
			got[i] = normalizeSignature(line)
		}
		if !slices.Equal(want, got) {
			res.Mismatch = eventlog.Diff(want, got)
		}
	}
	return res, nil
}

// normalizeSignature collapses runs of whitespace to one space and trims the
// ends, leaving double-quoted values (with backslash escapes) untouched.
func normalizeSignature(line string) string {
	var b strings.Builder
	quoted, escaped, space := false, false, false
	for _, c := range line {
		switch {
		case quoted:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				quoted = false
			}
		case unicode.IsSpace(c):
			space = true
			continue
		case c == '"':
			quoted = true
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(c)
	}
	return b.String()
}

func (r *runner) step(n int, st *Step) error {
	err := r.exec(st)
	if len(r.timerErrs) > 0 {
		err = stderrors.Join(append([]error{err}, r.timerErrs...)...)
		r.timerErrs = nil
	}
	if st.Error != "" {
		if err == nil || !strings.Contains(err.Error(), st.Error) {
			return stepError(n, st, fmt.Errorf("want error containing %q, got %v", st.Error, err))
		}
		return nil
	}
	if unexpected(err) {
		return stepError(n, st, err)
	}
	return nil
}

func (r *runner) exec(st *Step) error {
	h := r.h
	switch st.Op {
	case OpConstruct:
		return h.Construct(st.At, st.View, st.State)
	case OpMount:
		return h.Mount(st.At)
	case OpUnmount:
		return h.Unmount(st.At)
	case OpDestroy:
		return h.Destroy(st.At)
	case OpSet:
		return h.Set(st.At, st.Field, st.Value)
	case OpTap:
		v, err := h.Get(st.At, st.Field)
		if err != nil {
			return err
		}
		n, ok := v.(int)
		if !ok {
			return fmt.Errorf("tap: %s.%s holds %T, not int", st.At, st.Field, v)
		}
		return h.Set(st.At, st.Field, n+1)
	case OpWatch:
		return h.Watch(st.At, st.Field, func(old, new any) error {
			r.logger.Debug("%s.%s: %v -> %v", st.At, st.Field, old, new)
			return nil
		})
	case OpPump:
		return h.Pump()
	case OpObserve:
		out, err := h.Output(st.At)
		if err == nil {
			r.logger.Debug("%s renders %v", st.At, out)
		}
		return err
	case OpPush:
		return r.scope.Active().Push(st.route())
	case OpReplace:
		return r.scope.Active().Replace(st.route())
	case OpPop:
		ok, err := r.scope.Back()
		if !ok && err == nil {
			return navigation.ErrCannotPop
		}
		return err
	case OpTab:
		i := r.tabs.Index(st.Tab)
		if i < 0 {
			return fmt.Errorf("no tab named %q", st.Tab)
		}
		return r.tabs.Select(i)
	case OpReconcile:
		slots := make([]host.Slot, 0, len(st.Slots))
		for _, sl := range st.Slots {
			slots = append(slots, host.Slot{Position: sl.At, Kind: sl.View, Initial: sl.State})
		}
		return h.Reconcile(slots)
	case OpAfter:
		then := st.Then
		h.AfterFunc(st.Delay, func() {
			if err := r.exec(then); unexpected(err) {
				r.timerErrs = append(r.timerErrs, fmt.Errorf("timer step %s: %w", then.Op, err))
			}
		})
		return nil
	case OpAdvance:
		return h.Advance(st.Delay)
	case OpShutdown:
		return h.Shutdown()
	}
	return fmt.Errorf("unknown op %q", st.Op)
}

func (st *Step) route() navigation.Route {
	return navigation.Route{Name: st.Route, Kind: st.View, Initial: st.State}
}

// unexpected reports whether err should stop the run. Hook failures and
// recovered panics are outcomes the scenario observes, not step errors.
func unexpected(err error) bool {
	if err == nil {
		return false
	}
	if errors.IsUsage(err) {
		return true
	}
	if _, ok := errors.AsHook(err); ok {
		return false
	}
	var pe *errors.PanicError
	return !stderrors.As(err, &pe)
}

func stepError(n int, st *Step, err error) error {
	return &errors.LifecycleError{
		Op:       "scenario.Run",
		Kind:     errors.KindScenario,
		Position: st.At,
		Err:      fmt.Errorf("step %d (%s): %w", n, st.Op, err),
	}
}
