package scenario

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-drift/viewcycle/pkg/core"
	"github.com/go-drift/viewcycle/pkg/errors"
)

// injector fails one hook on a chosen call.
type injector struct {
	spec  FailSpec
	calls int
}

func (in *injector) trip() error {
	in.calls++
	if in.spec.Call != 0 && in.calls != in.spec.Call {
		return nil
	}
	msg := in.spec.Message
	if msg == "" {
		msg = fmt.Sprintf("injected %s failure on call %d", in.spec.Hook, in.calls)
	}
	if in.spec.Panic {
		panic(msg)
	}
	return stderrors.New(msg)
}

func (vs ViewSpec) build() (*core.View, error) {
	v := &core.View{Kind: vs.Kind}
	for _, fs := range vs.Fields {
		t, err := core.ParseFieldType(fs.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fs.Name, err)
		}
		v.Fields = append(v.Fields, core.FieldSpec{Name: fs.Name, Type: t, Default: fs.Default, Watch: fs.Watch})
	}

	kind := vs.Kind
	render := func(s core.Snapshot) (any, error) { return s.Format(kind), nil }
	v.Render = render

	for _, fs := range vs.Fail {
		in := &injector{spec: fs}
		if fs.Call < 0 {
			return nil, fmt.Errorf("fail %s: negative call", fs.Hook)
		}
		hook := errors.Hook(strings.ToLower(fs.Hook))
		switch hook {
		case errors.HookConstruct:
			v.OnConstruct = chain(v.OnConstruct, in)
		case errors.HookAppear:
			v.OnAppear = chain(v.OnAppear, in)
		case errors.HookDisappear:
			v.OnDisappear = chain(v.OnDisappear, in)
		case errors.HookRender:
			next := v.Render
			v.Render = func(s core.Snapshot) (any, error) {
				if err := in.trip(); err != nil {
					return nil, err
				}
				return next(s)
			}
		case errors.HookChange:
			if _, ok := v.Field(fs.Field); !ok {
				return nil, fmt.Errorf("fail change: field %q is not declared", fs.Field)
			}
			v.Watchers = append(v.Watchers, core.Watcher{
				Field: fs.Field,
				Fn:    func(old, new any) error { return in.trip() },
			})
		default:
			return nil, fmt.Errorf("fail: unknown hook %q", fs.Hook)
		}
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func chain(prev core.HookFunc, in *injector) core.HookFunc {
	return func(inst *core.Instance) error {
		if prev != nil {
			if err := prev(inst); err != nil {
				return err
			}
		}
		return in.trip()
	}
}
