// Package scenario loads and runs scripted lifecycle scenarios.
//
// A scenario is a YAML document that declares view kinds, a list of steps
// to drive a host through, and optionally the event log the run must
// produce:
//
//	version: v1.0.0
//	name: counter
//	views:
//	  - kind: counter
//	    fields:
//	      - {name: count, type: int, watch: true}
//	steps:
//	  - {op: construct, at: /c, view: counter}
//	  - {op: mount, at: /c}
//	  - {op: tap, at: /c, field: count}
//	  - {op: observe, at: /c}
//	expect:
//	  - CONSTRUCT /c
//	  - RENDER /c
//	  - MOUNT /c
//	  - CHANGE /c count 0 1
//	  - RENDER /c
//
// Run executes a scenario on a fresh host and reports the log, the hook
// failures and any divergence from the expectations.
package scenario

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/viewcycle/pkg/core"
	"github.com/go-drift/viewcycle/pkg/errors"
	"github.com/go-drift/viewcycle/pkg/host"
)

// FormatVersion is the newest scenario format this package understands.
// Files must declare a version with the same major component.
const FormatVersion = "v1.1.0"

// Scenario is a parsed scenario file.
type Scenario struct {
	Version string     `yaml:"version"`
	Name    string     `yaml:"name"`
	Policy  string     `yaml:"policy,omitempty"`
	Views   []ViewSpec `yaml:"views"`
	Tabs    []TabSpec  `yaml:"tabs,omitempty"`
	Steps   []Step     `yaml:"steps"`
	// Expect lists the event signatures the run must log, in order. An
	// empty list disables the comparison.
	Expect []string `yaml:"expect,omitempty"`
	// Failures is the number of hook failures the run must report. Nil
	// disables the check.
	Failures *int `yaml:"failures,omitempty"`

	// Path is the file the scenario was loaded from, if any.
	Path string `yaml:"-"`
}

// ViewSpec declares a view kind. Every scenario view renders its state in
// the form "kind{field=value ...}".
type ViewSpec struct {
	Kind   string      `yaml:"kind"`
	Fields []FieldSpec `yaml:"fields,omitempty"`
	Fail   []FailSpec  `yaml:"fail,omitempty"`
}

// FieldSpec declares one field of a ViewSpec.
type FieldSpec struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type,omitempty"`
	Default any    `yaml:"default,omitempty"`
	Watch   bool   `yaml:"watch,omitempty"`
}

// FailSpec injects a failure into one of a view's hooks.
type FailSpec struct {
	// Hook is construct, render, appear, disappear or change.
	Hook string `yaml:"hook"`
	// Field selects the watched field for change hooks.
	Field string `yaml:"field,omitempty"`
	// Call is the 1-based call of the hook that fails, counted across all
	// instances of the kind. Zero fails every call.
	Call int `yaml:"call,omitempty"`
	// Panic makes the hook panic instead of returning an error.
	Panic   bool   `yaml:"panic,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// TabSpec declares one tab of the scenario's tab navigator.
type TabSpec struct {
	Name  string         `yaml:"name"`
	View  string         `yaml:"view"`
	State map[string]any `yaml:"state,omitempty"`
}

// Step is one scripted action. Op selects the action; the other fields are
// its arguments.
type Step struct {
	Op    string         `yaml:"op"`
	At    string         `yaml:"at,omitempty"`
	View  string         `yaml:"view,omitempty"`
	Field string         `yaml:"field,omitempty"`
	Value any            `yaml:"value,omitempty"`
	State map[string]any `yaml:"state,omitempty"`
	// Route names the route for push.
	Route string `yaml:"route,omitempty"`
	// Tab names the tab for tab.
	Tab string `yaml:"tab,omitempty"`
	// Slots is the reachable set for reconcile.
	Slots []SlotSpec `yaml:"slots,omitempty"`
	// Delay is the timer delay for after and the clock step for advance.
	Delay time.Duration `yaml:"delay,omitempty"`
	// Then is the step an after timer runs.
	Then *Step `yaml:"then,omitempty"`
	// Error, when set, requires the step to fail with a message containing
	// it.
	Error string `yaml:"error,omitempty"`
}

// SlotSpec is one reachable position in a reconcile step.
type SlotSpec struct {
	At    string         `yaml:"at"`
	View  string         `yaml:"view"`
	State map[string]any `yaml:"state,omitempty"`
}

// Step ops.
const (
	OpConstruct = "construct"
	OpMount     = "mount"
	OpUnmount   = "unmount"
	OpDestroy   = "destroy"
	OpSet       = "set"
	OpTap       = "tap"
	OpWatch     = "watch"
	OpPump      = "pump"
	OpObserve   = "observe"
	OpPush      = "push"
	OpPop       = "pop"
	OpReplace   = "replace"
	OpTab       = "tab"
	OpReconcile = "reconcile"
	OpAfter     = "after"
	OpAdvance   = "advance"
	OpShutdown  = "shutdown"
)

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.Path = path
	return sc, nil
}

// Parse decodes and validates a scenario document. Unknown keys are
// rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, invalid("empty document")
		}
		return nil, scenarioError("scenario.Parse", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario for structural mistakes without running it.
func (sc *Scenario) Validate() error {
	v := sc.Version
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return invalid("version %q is not a semantic version", sc.Version)
	}
	if semver.Major(v) != semver.Major(FormatVersion) {
		return invalid("version %s is not supported (want %s.x.x)", sc.Version, semver.Major(FormatVersion))
	}
	if semver.Compare(v, FormatVersion) > 0 {
		return invalid("version %s is newer than %s", sc.Version, FormatVersion)
	}
	if _, err := host.ParsePolicy(sc.Policy); err != nil {
		return invalid("%v", err)
	}

	kinds := make(map[string]bool, len(sc.Views))
	for _, vs := range sc.Views {
		if vs.Kind == "" {
			return invalid("view with empty kind")
		}
		if kinds[vs.Kind] {
			return invalid("view %q declared twice", vs.Kind)
		}
		kinds[vs.Kind] = true
		if _, err := vs.build(); err != nil {
			return invalid("view %s: %v", vs.Kind, err)
		}
	}
	for _, tab := range sc.Tabs {
		if tab.Name == "" || !kinds[tab.View] {
			return invalid("tab %q must name a declared view", tab.Name)
		}
	}
	if len(sc.Steps) == 0 {
		return invalid("no steps")
	}
	for i := range sc.Steps {
		if err := sc.Steps[i].validate(len(sc.Tabs) > 0); err != nil {
			return invalid("step %d: %v", i+1, err)
		}
	}
	if sc.Failures != nil && *sc.Failures < 0 {
		return invalid("failures must not be negative")
	}
	return nil
}

func (st *Step) validate(hasTabs bool) error {
	needAt := func() error {
		if st.At == "" {
			return fmt.Errorf("%s needs at", st.Op)
		}
		return nil
	}
	switch st.Op {
	case OpConstruct:
		if st.View == "" {
			return fmt.Errorf("construct needs view")
		}
		return needAt()
	case OpMount, OpUnmount, OpDestroy, OpObserve:
		return needAt()
	case OpSet, OpTap, OpWatch:
		if st.Field == "" {
			return fmt.Errorf("%s needs field", st.Op)
		}
		return needAt()
	case OpPump, OpPop, OpShutdown:
		return nil
	case OpPush, OpReplace:
		if st.Route == "" || st.View == "" {
			return fmt.Errorf("%s needs route and view", st.Op)
		}
	case OpTab:
		if !hasTabs {
			return fmt.Errorf("tab step without tabs")
		}
		if st.Tab == "" {
			return fmt.Errorf("tab needs tab")
		}
	case OpReconcile:
		for _, sl := range st.Slots {
			if sl.At == "" || sl.View == "" {
				return fmt.Errorf("reconcile slot needs at and view")
			}
		}
	case OpAfter:
		if st.Delay < 0 {
			return fmt.Errorf("negative delay")
		}
		if st.Then == nil {
			return fmt.Errorf("after needs then")
		}
		if st.Then.Op == OpAdvance {
			return fmt.Errorf("after cannot run advance")
		}
		return st.Then.validate(hasTabs)
	case OpAdvance:
		if st.Delay < 0 {
			return fmt.Errorf("negative delay")
		}
	case "":
		return fmt.Errorf("missing op")
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	return nil
}

// BuildViews builds the core views the scenario declares.
func (sc *Scenario) BuildViews() ([]*core.View, error) {
	views := make([]*core.View, 0, len(sc.Views))
	for _, vs := range sc.Views {
		v, err := vs.build()
		if err != nil {
			return nil, invalid("view %s: %v", vs.Kind, err)
		}
		views = append(views, v)
	}
	return views, nil
}

func invalid(format string, args ...any) error {
	return scenarioError("scenario.Validate", fmt.Errorf(format, args...))
}

func scenarioError(op string, err error) error {
	return &errors.LifecycleError{Op: op, Kind: errors.KindScenario, Err: err}
}
