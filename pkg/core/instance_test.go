package core

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/go-drift/viewcycle/pkg/errors"
)

func counterView() *View {
	return &View{
		Kind: "counter",
		Fields: []FieldSpec{
			{Name: "count", Type: TypeInt, Watch: true},
			{Name: "label", Type: TypeString, Default: "taps"},
		},
		Render: func(s Snapshot) (any, error) {
			return fmt.Sprintf("%s: %d", s.String("label"), s.Int("count")), nil
		},
	}
}

func mustConstruct(t *testing.T, v *View, initial map[string]any) *Instance {
	t.Helper()
	inst, err := Construct(v, "id-1", initial)
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	return inst
}

func TestConstruct_DefaultsAndInitialState(t *testing.T) {
	inst := mustConstruct(t, counterView(), map[string]any{"count": int64(3)})

	if inst.Phase() != PhaseConstructed {
		t.Errorf("phase = %v, want constructed", inst.Phase())
	}
	if got := inst.Get("count"); got != 3 {
		t.Errorf("count = %#v, want int 3", got)
	}
	if got := inst.Get("label"); got != "taps" {
		t.Errorf("label = %#v, want default", got)
	}
	if !inst.Dirty() {
		t.Error("fresh instance should owe its first render")
	}
	if inst.RenderCount() != 0 {
		t.Error("construction must not render")
	}
}

func TestConstruct_RejectsBadInitialState(t *testing.T) {
	tests := []struct {
		name    string
		initial map[string]any
		want    error
	}{
		{"unknown field", map[string]any{"nope": 1}, errors.ErrUnknownField},
		{"wrong type", map[string]any{"count": "three"}, errors.ErrFieldType},
		{"fractional int", map[string]any{"count": 1.5}, errors.ErrFieldType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Construct(counterView(), "id", tt.initial)
			if !stderrors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !errors.IsUsage(err) {
				t.Errorf("expected usage error, got %T", err)
			}
		})
	}
}

func TestConstruct_IntegralFloatAccepted(t *testing.T) {
	inst := mustConstruct(t, counterView(), map[string]any{"count": 2.0})
	if got := inst.Get("count"); got != 2 {
		t.Errorf("count = %#v, want int 2", got)
	}
}

func TestConstruct_HookRunsBeforeFirstRender(t *testing.T) {
	var order []string
	v := counterView()
	v.OnConstruct = func(inst *Instance) error {
		order = append(order, fmt.Sprintf("construct renders=%d", inst.RenderCount()))
		return nil
	}
	inner := v.Render
	v.Render = func(s Snapshot) (any, error) {
		order = append(order, "render")
		return inner(s)
	}

	inst := mustConstruct(t, v, nil)
	if _, err := inst.Render(); err != nil {
		t.Fatal(err)
	}
	want := []string{"construct renders=0", "render"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestConstruct_HookFailure(t *testing.T) {
	v := counterView()
	v.OnConstruct = func(*Instance) error { return stderrors.New("no backend") }

	inst, err := Construct(v, "id", nil)
	he, ok := errors.AsHook(err)
	if !ok {
		t.Fatalf("expected HookError, got %v", err)
	}
	if he.Hook != errors.HookConstruct {
		t.Errorf("hook = %q", he.Hook)
	}
	if inst == nil || inst.Phase() != PhaseError {
		t.Fatalf("instance should be returned in error phase")
	}
}

func TestRender_Idempotent(t *testing.T) {
	inst := mustConstruct(t, counterView(), map[string]any{"count": 7})
	a, err := inst.Render()
	if err != nil {
		t.Fatal(err)
	}
	b, err := inst.Render()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("render not idempotent: %v vs %v", a, b)
	}
	if a != "taps: 7" {
		t.Errorf("output = %v", a)
	}
	if inst.Dirty() {
		t.Error("render should clear dirty")
	}
}

func TestRender_PanicMovesToError(t *testing.T) {
	v := counterView()
	v.Render = func(Snapshot) (any, error) { panic("render exploded") }
	inst := mustConstruct(t, v, nil)

	_, err := inst.Render()
	he, ok := errors.AsHook(err)
	if !ok {
		t.Fatalf("expected HookError, got %v", err)
	}
	if he.Recovered != "render exploded" || he.StackTrace == "" {
		t.Errorf("unexpected hook error: %+v", he)
	}
	if inst.Phase() != PhaseError || inst.Failure() != he {
		t.Error("instance should record the failure")
	}
	if _, err := inst.Render(); !stderrors.Is(err, errors.ErrInstanceFailed) {
		t.Errorf("render after failure: %v", err)
	}
	if _, err := inst.SetField("count", 1); !stderrors.Is(err, errors.ErrInstanceFailed) {
		t.Errorf("SetField after failure: %v", err)
	}
}

func TestSetField(t *testing.T) {
	inst := mustConstruct(t, counterView(), nil)
	inst.Render()

	c, err := inst.SetField("count", 1)
	if err != nil {
		t.Fatal(err)
	}
	if c.Old != 0 || c.New != 1 || !c.Watched || !c.Dirty {
		t.Errorf("change = %+v", c)
	}
	if !inst.Dirty() {
		t.Error("instance should be dirty")
	}

	inst.Render()
	c, _ = inst.SetField("count", 1)
	if c.Dirty || inst.Dirty() {
		t.Error("equal value must not mark dirty")
	}
	if !c.Watched {
		t.Error("watched flag should not depend on equality")
	}

	c, _ = inst.SetField("label", "clicks")
	if c.Watched {
		t.Error("label is not watched")
	}

	if _, err := inst.SetField("missing", 1); !stderrors.Is(err, errors.ErrUnknownField) {
		t.Errorf("err = %v", err)
	}
	if _, err := inst.SetField("count", true); !stderrors.Is(err, errors.ErrFieldType) {
		t.Errorf("err = %v", err)
	}
}

func TestWatchAndNotify(t *testing.T) {
	inst := mustConstruct(t, counterView(), nil)
	var seen []string
	inst.Watch("count", func(old, new any) error {
		seen = append(seen, fmt.Sprintf("a %v->%v", old, new))
		return nil
	})
	inst.Watch("count", func(old, new any) error {
		seen = append(seen, fmt.Sprintf("b %v->%v", old, new))
		return nil
	})

	c, _ := inst.SetField("count", 5)
	if err := inst.Notify(c); err != nil {
		t.Fatal(err)
	}
	want := []string{"a 0->5", "b 0->5"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}

	if err := inst.Watch("nope", func(any, any) error { return nil }); !stderrors.Is(err, errors.ErrUnknownField) {
		t.Errorf("watching undeclared field: %v", err)
	}
	if got := inst.WatchedFields(); !reflect.DeepEqual(got, []string{"count"}) {
		t.Errorf("WatchedFields = %v", got)
	}
}

func TestNotify_FailureStopsDelivery(t *testing.T) {
	inst := mustConstruct(t, counterView(), nil)
	calls := 0
	inst.Watch("count", func(any, any) error { return stderrors.New("bad") })
	inst.Watch("count", func(any, any) error { calls++; return nil })

	c, _ := inst.SetField("count", 1)
	err := inst.Notify(c)
	he, ok := errors.AsHook(err)
	if !ok || he.Field != "count" || he.Hook != errors.HookChange {
		t.Fatalf("err = %v", err)
	}
	if calls != 0 {
		t.Error("later watchers must not run after a failure")
	}
	if inst.Phase() != PhaseError {
		t.Error("expected error phase")
	}
}

func TestMountUnmount(t *testing.T) {
	var events []string
	v := counterView()
	v.OnAppear = func(*Instance) error { events = append(events, "appear"); return nil }
	v.OnDisappear = func(*Instance) error { events = append(events, "disappear"); return nil }
	inst := mustConstruct(t, v, nil)

	if err := inst.Unmount(); !stderrors.Is(err, errors.ErrNotMounted) {
		t.Errorf("unmount before mount: %v", err)
	}
	if err := inst.Mount(); err != nil {
		t.Fatal(err)
	}
	if err := inst.Mount(); !stderrors.Is(err, errors.ErrAlreadyMounted) {
		t.Errorf("double mount: %v", err)
	}
	if err := inst.Destroy(); !stderrors.Is(err, errors.ErrStillMounted) {
		t.Errorf("destroy while mounted: %v", err)
	}
	if err := inst.Unmount(); err != nil {
		t.Fatal(err)
	}
	if err := inst.Unmount(); !stderrors.Is(err, errors.ErrNotMounted) {
		t.Errorf("double unmount: %v", err)
	}
	if _, err := inst.Render(); err != nil {
		t.Errorf("pre-mount render while unmounted: %v", err)
	}
	if err := inst.Mount(); err != nil {
		t.Fatal(err)
	}

	want := []string{"appear", "disappear", "appear"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	if inst.Appearances() != 2 {
		t.Errorf("appearances = %d", inst.Appearances())
	}
}

func TestAppearFailure(t *testing.T) {
	v := counterView()
	v.OnAppear = func(*Instance) error { panic("no window") }
	inst := mustConstruct(t, v, nil)

	err := inst.Mount()
	if he, ok := errors.AsHook(err); !ok || he.Hook != errors.HookAppear {
		t.Fatalf("err = %v", err)
	}
	if inst.IsMounted() || inst.Phase() != PhaseError {
		t.Errorf("phase = %v", inst.Phase())
	}
	if inst.Appearances() != 0 {
		t.Error("failed appearance must not count")
	}
}

func TestDestroy_RunsDisposersLIFO(t *testing.T) {
	inst := mustConstruct(t, counterView(), nil)
	var order []int
	inst.OnDispose(func() { order = append(order, 1) })
	unregister := inst.OnDispose(func() { order = append(order, 2) })
	inst.OnDispose(func() { order = append(order, 3) })
	unregister()

	if err := inst.Destroy(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(order, []int{3, 1}) {
		t.Errorf("order = %v", order)
	}
	if err := inst.Destroy(); !stderrors.Is(err, errors.ErrDestroyed) {
		t.Errorf("double destroy: %v", err)
	}
	if _, err := inst.SetField("count", 1); !stderrors.Is(err, errors.ErrDestroyed) {
		t.Errorf("SetField after destroy: %v", err)
	}

	ran := false
	inst.OnDispose(func() { ran = true })
	if !ran {
		t.Error("OnDispose after destroy should run immediately")
	}
}

func TestDestroy_AllowedFromError(t *testing.T) {
	v := counterView()
	v.Render = func(Snapshot) (any, error) { return nil, stderrors.New("x") }
	inst := mustConstruct(t, v, nil)
	inst.Mount()
	inst.Render()

	if err := inst.Destroy(); err != nil {
		t.Fatalf("destroy from error: %v", err)
	}
	if inst.Phase() != PhaseDestroyed {
		t.Errorf("phase = %v", inst.Phase())
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseUnconstructed, "unconstructed"},
		{PhaseConstructed, "constructed"},
		{PhaseMounted, "mounted"},
		{PhaseUnmounted, "unmounted"},
		{PhaseDestroyed, "destroyed"},
		{PhaseError, "error"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
