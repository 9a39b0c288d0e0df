package errors

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"
)

func TestLifecycleErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *LifecycleError
		want string
	}{
		{
			name: "position and instance",
			err:  &LifecycleError{Op: "host.Mount", Kind: KindUsage, Position: "/counter", Instance: "ab12", Err: ErrAlreadyMounted},
			want: "host.Mount [usage] /counter (ab12): instance is already mounted",
		},
		{
			name: "position only",
			err:  &LifecycleError{Op: "host.Mount", Kind: KindUsage, Position: "/counter", Err: ErrNoInstance},
			want: "host.Mount [usage] /counter: no instance at position",
		},
		{
			name: "instance only",
			err:  &LifecycleError{Op: "core.Unmount", Kind: KindUsage, Instance: "ab12", Err: ErrNotMounted},
			want: "core.Unmount [usage] ab12: instance is not mounted",
		},
		{
			name: "bare",
			err:  &LifecycleError{Op: "config.Load", Kind: KindConfig, Err: stderrors.New("bad policy")},
			want: "config.Load [config]: bad policy",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLifecycleErrorUnwrap(t *testing.T) {
	var err error = Usage("core.Mount", "x", ErrAlreadyMounted)
	if !stderrors.Is(err, ErrAlreadyMounted) {
		t.Error("expected errors.Is to match ErrAlreadyMounted")
	}
	if !IsUsage(err) {
		t.Error("expected IsUsage to be true")
	}
	if IsUsage(ErrAlreadyMounted) {
		t.Error("bare sentinel is not a LifecycleError")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindUsage, "usage"},
		{KindHook, "hook"},
		{KindPanic, "panic"},
		{KindConfig, "config"},
		{KindScenario, "scenario"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestHookErrorString(t *testing.T) {
	err := &HookError{View: "counter", Hook: HookRender, Recovered: "boom"}
	if got, want := err.Error(), "panic in counter.render hook: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	inner := stderrors.New("nope")
	err = &HookError{View: "counter", Hook: HookChange, Field: "count", Err: inner}
	if got, want := err.Error(), "error in counter.change(count) hook: nope"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !stderrors.Is(err, inner) {
		t.Error("HookError should unwrap to its Err")
	}

	err = &HookError{View: "counter", Hook: HookAppear}
	if got, want := err.Error(), "unknown failure in counter.appear hook"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := error(&HookError{View: "v", Hook: HookRender, Recovered: 1})
	if he, ok := AsHook(wrapped); !ok || he.View != "v" {
		t.Errorf("AsHook failed: %v %v", he, ok)
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "test panic", Timestamp: time.Now()}
	if got, want := err.Error(), "panic: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
	err.Op = "host.AfterFunc"
	if got, want := err.Error(), "panic in host.AfterFunc: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	handler := &CollectingHandler{}
	SetHandler(handler)
	defer SetHandler(nil)

	Report(Usage("test.op", "id", ErrNotMounted))

	got := handler.Usage()
	if len(got) != 1 {
		t.Fatalf("expected 1 usage error, got %d", len(got))
	}
	if got[0].Op != "test.op" {
		t.Errorf("Op = %q, want %q", got[0].Op, "test.op")
	}
	if got[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestReportHook(t *testing.T) {
	handler := &CollectingHandler{}
	SetHandler(handler)
	defer SetHandler(nil)

	ReportHook(&HookError{View: "v", Hook: HookRender, Recovered: "x"})
	ReportHook(nil)

	hooks := handler.Hooks()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook error, got %d", len(hooks))
	}
	if hooks[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestRecover(t *testing.T) {
	handler := &CollectingHandler{}
	SetHandler(handler)
	defer SetHandler(nil)

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	panics := handler.Panics()
	if len(panics) != 1 {
		t.Fatal("expected panic to be recovered and captured")
	}
	if panics[0].Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", panics[0].Value, "intentional test panic")
	}
	if panics[0].Op != "test.recover" {
		t.Errorf("Op = %q, want %q", panics[0].Op, "test.recover")
	}
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	if stack == "" {
		t.Error("expected non-empty stack trace")
	}
	if !strings.Contains(stack, "testing") && !strings.Contains(stack, "runtime") {
		t.Errorf("stack trace should contain testing or runtime frames, got: %s", stack)
	}
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(nil)
	if _, ok := Handler().(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", Handler())
	}
}

func TestLogHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	h := &LogHandler{Out: &buf}

	h.HandleError(Usage("host.Mount", "id", ErrAlreadyMounted))
	h.HandleHookError(&HookError{View: "counter", Position: "/c", Hook: HookRender, Recovered: "boom"})
	h.HandlePanic(&PanicError{Op: "op", Value: "v"})

	out := buf.String()
	for _, want := range []string{
		"[viewcycle warning] host.Mount [usage] id: instance is already mounted",
		"[viewcycle hook error] /c: panic in counter.render hook: boom",
		"[viewcycle panic] op: v",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
