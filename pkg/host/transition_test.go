package host

import (
	stderrors "errors"
	"testing"

	"github.com/go-drift/viewcycle/pkg/errors"
)

func TestScenarioB_PushAndPopUnmountFirst(t *testing.T) {
	f := newFixture(t)
	f.must(t, f.h.Transition(Transition{Enter: []Slot{{Position: "/A", Kind: "list"}}}))
	listID := f.h.Instance("/A").ID()
	f.mark()

	f.must(t, f.h.Transition(Transition{Leave: []string{"/A"}, Enter: []Slot{{Position: "/B", Kind: "detail"}}}))
	f.must(t, f.h.Transition(Transition{Discard: []string{"/B"}, Enter: []Slot{{Position: "/A", Kind: "list"}}}))

	f.expect(t,
		"UNMOUNT /A",
		"CONSTRUCT /B",
		"RENDER /B",
		"MOUNT /B",
		"UNMOUNT /B",
		"DESTROY /B",
		"RENDER /A",
		"MOUNT /A",
	)
	if f.h.Instance("/A").ID() != listID {
		t.Error("retained instance should be remounted, not reconstructed")
	}
	if f.h.Instance("/A").Appearances() != 2 {
		t.Errorf("appearances = %d", f.h.Instance("/A").Appearances())
	}
}

func TestTransitionMountFirst(t *testing.T) {
	f := newFixture(t, WithPolicy(MountFirst))
	f.must(t, f.h.Transition(Transition{Enter: []Slot{{Position: "/A", Kind: "list"}}}))
	f.mark()

	f.must(t, f.h.Transition(Transition{Leave: []string{"/A"}, Enter: []Slot{{Position: "/B", Kind: "detail"}}}))
	f.must(t, f.h.Transition(Transition{Discard: []string{"/B"}, Enter: []Slot{{Position: "/A", Kind: "list"}}}))

	f.expect(t,
		"CONSTRUCT /B",
		"RENDER /B",
		"MOUNT /B",
		"UNMOUNT /A",
		"RENDER /A",
		"MOUNT /A",
		"UNMOUNT /B",
		"DESTROY /B",
	)
}

func TestTransitionReplacesPositionFirst(t *testing.T) {
	for _, policy := range []Policy{UnmountFirst, MountFirst} {
		t.Run(policy.String(), func(t *testing.T) {
			f := newFixture(t, WithPolicy(policy))
			f.must(t, f.h.Transition(Transition{Enter: []Slot{{Position: "/main", Kind: "list"}}}))
			f.mark()

			f.must(t, f.h.Transition(Transition{
				Discard: []string{"/main"},
				Enter:   []Slot{{Position: "/main", Kind: "detail"}},
			}))
			f.expect(t,
				"UNMOUNT /main",
				"DESTROY /main",
				"CONSTRUCT /main",
				"RENDER /main",
				"MOUNT /main",
			)
		})
	}
}

func TestTransitionCollectsStepErrors(t *testing.T) {
	f := newFixture(t)
	err := f.h.Transition(Transition{Enter: []Slot{
		{Position: "/x", Kind: "missing"},
		{Position: "/ok", Kind: "list"},
	}})
	if !stderrors.Is(err, errors.ErrUnknownView) {
		t.Fatalf("err = %v", err)
	}
	if inst := f.h.Instance("/ok"); inst == nil || !inst.IsMounted() {
		t.Error("a failing step must not abort the rest of the transition")
	}
}

func TestTransitionKindMismatch(t *testing.T) {
	f := newFixture(t)
	f.must(t, f.h.Construct("/main", "list", nil))
	err := f.h.Transition(Transition{Enter: []Slot{{Position: "/main", Kind: "detail"}}})
	if !stderrors.Is(err, errors.ErrPositionOccupied) {
		t.Errorf("err = %v", err)
	}
}

func TestReconcile(t *testing.T) {
	f := newFixture(t)
	f.must(t, f.h.Reconcile([]Slot{
		{Position: "/header", Kind: "list"},
		{Position: "/body", Kind: "counter", Initial: map[string]any{"count": 2}},
	}))
	f.mark()

	f.must(t, f.h.Reconcile([]Slot{
		{Position: "/header", Kind: "list"},
		{Position: "/body", Kind: "detail"},
		{Position: "/footer", Kind: "list"},
	}))

	f.expect(t,
		"UNMOUNT /body",
		"DESTROY /body",
		"CONSTRUCT /body",
		"RENDER /body",
		"MOUNT /body",
		"CONSTRUCT /footer",
		"RENDER /footer",
		"MOUNT /footer",
	)
	if got := f.h.Mounted(); len(got) != 3 {
		t.Errorf("mounted = %v", got)
	}

	f.mark()
	f.must(t, f.h.Reconcile(nil))
	if len(f.h.Positions()) != 0 {
		t.Errorf("positions = %v", f.h.Positions())
	}
	if n := len(f.h.Log().Since(f.since)); n != 6 {
		t.Errorf("teardown logged %d events, want 6", n)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
		ok   bool
	}{
		{"", UnmountFirst, true},
		{"unmount-first", UnmountFirst, true},
		{"Mount-First", MountFirst, true},
		{"sideways", UnmountFirst, false},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}
