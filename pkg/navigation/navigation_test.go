package navigation

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/go-drift/viewcycle/internal/logger"
	"github.com/go-drift/viewcycle/pkg/core"
	"github.com/go-drift/viewcycle/pkg/errors"
	"github.com/go-drift/viewcycle/pkg/eventlog"
	"github.com/go-drift/viewcycle/pkg/host"
)

func screen(kind string) *core.View {
	return &core.View{
		Kind:   kind,
		Fields: []core.FieldSpec{{Name: "scroll", Type: core.TypeInt}},
		Render: func(s core.Snapshot) (any, error) { return kind, nil },
	}
}

func newHost(t *testing.T, opts ...host.Option) *host.Host {
	t.Helper()
	opts = append([]host.Option{
		host.WithIDGenerator(host.Sequential()),
		host.WithHandler(&errors.CollectingHandler{}),
		host.WithLogger(logger.Noop()),
	}, opts...)
	h := host.New(opts...)
	if err := h.Register(screen("list"), screen("detail"), screen("settings"), screen("feed")); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if v := eventlog.Verify(h.Log().Events()); v != nil {
			t.Errorf("log violates lifecycle rules: %v", v)
		}
	})
	return h
}

func signaturesSince(h *host.Host, seq uint64) []string {
	return eventlog.Signatures(h.Log().Since(seq))
}

type recorder struct {
	events []string
}

func (r *recorder) DidPush(route, previous Route) {
	r.events = append(r.events, "push "+route.Name+" over "+previous.Name)
}

func (r *recorder) DidPop(route, previous Route) {
	r.events = append(r.events, "pop "+route.Name+" to "+previous.Name)
}

func (r *recorder) DidReplace(route, old Route) {
	r.events = append(r.events, "replace "+old.Name+" with "+route.Name)
}

func TestNavigator_PushPop(t *testing.T) {
	h := newHost(t)
	obs := &recorder{}
	nav := NewNavigator(h, "", obs)

	if err := nav.Push(Route{Name: "A", Kind: "list"}); err != nil {
		t.Fatal(err)
	}
	h.Set("/A", "scroll", 40)
	h.Pump()
	mark := h.Log().LastSeq()

	if err := nav.Push(Route{Name: "B", Kind: "detail"}); err != nil {
		t.Fatal(err)
	}
	popped, err := nav.Pop()
	if err != nil || popped.Name != "B" {
		t.Fatalf("Pop = %v, %v", popped, err)
	}

	want := []string{
		"UNMOUNT /A",
		"CONSTRUCT /B",
		"RENDER /B",
		"MOUNT /B",
		"UNMOUNT /B",
		"DESTROY /B",
		"RENDER /A",
		"MOUNT /A",
	}
	if got := signaturesSince(h, mark); !reflect.DeepEqual(got, want) {
		t.Errorf("log mismatch\n%s", eventlog.Diff(want, got))
	}
	if got := h.Instance("/A").Get("scroll"); got != 40 {
		t.Errorf("state lost across push/pop: scroll = %v", got)
	}
	wantObs := []string{"push A over ", "push B over A", "pop B to A"}
	if !reflect.DeepEqual(obs.events, wantObs) {
		t.Errorf("observer events = %v", obs.events)
	}
}

func TestNavigator_CannotPopRoot(t *testing.T) {
	h := newHost(t)
	nav := NewNavigator(h, "/app")
	if _, err := nav.Pop(); !stderrors.Is(err, ErrCannotPop) {
		t.Errorf("pop on empty: %v", err)
	}
	nav.Push(Route{Name: "home", Kind: "list"})
	if nav.CanPop() {
		t.Error("single route cannot pop")
	}
	if _, err := nav.Pop(); !stderrors.Is(err, ErrCannotPop) {
		t.Errorf("pop at root: %v", err)
	}
	if top, _ := nav.Top(); top.Position() != "/app/home" {
		t.Errorf("top position = %q", top.Position())
	}
}

func TestNavigator_DuplicateRouteNames(t *testing.T) {
	h := newHost(t)
	nav := NewNavigator(h, "")
	nav.Push(Route{Name: "item", Kind: "detail"})
	nav.Push(Route{Name: "item", Kind: "detail"})

	var positions []string
	for _, r := range nav.Stack() {
		positions = append(positions, r.Position())
	}
	if !reflect.DeepEqual(positions, []string{"/item", "/item@1"}) {
		t.Errorf("positions = %v", positions)
	}
	if !h.Instance("/item@1").IsMounted() || h.Instance("/item").IsMounted() {
		t.Error("only the top route should be mounted")
	}
}

func TestNavigator_Replace(t *testing.T) {
	h := newHost(t)
	obs := &recorder{}
	nav := NewNavigator(h, "", obs)
	nav.Push(Route{Name: "login", Kind: "list"})
	mark := h.Log().LastSeq()

	if err := nav.Replace(Route{Name: "home", Kind: "feed"}); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"UNMOUNT /login",
		"DESTROY /login",
		"CONSTRUCT /home",
		"RENDER /home",
		"MOUNT /home",
	}
	if got := signaturesSince(h, mark); !reflect.DeepEqual(got, want) {
		t.Errorf("log mismatch\n%s", eventlog.Diff(want, got))
	}
	if nav.Depth() != 1 || obs.events[len(obs.events)-1] != "replace login with home" {
		t.Errorf("depth = %d, events = %v", nav.Depth(), obs.events)
	}
}

func TestNavigator_PopUntil(t *testing.T) {
	h := newHost(t)
	nav := NewNavigator(h, "")
	for _, name := range []string{"root", "a", "b", "c"} {
		nav.Push(Route{Name: name, Kind: "detail"})
	}
	if err := nav.PopUntil(func(r Route) bool { return r.Name == "a" }); err != nil {
		t.Fatal(err)
	}
	if top, _ := nav.Top(); top.Name != "a" {
		t.Errorf("top = %s", top.Name)
	}
	if h.Instance("/b") != nil || h.Instance("/c") != nil {
		t.Error("popped routes should be destroyed")
	}
	if !h.Instance("/a").IsMounted() {
		t.Error("revealed route should be mounted")
	}
}

func TestNavigator_MountFirstPolicy(t *testing.T) {
	h := newHost(t, host.WithPolicy(host.MountFirst))
	nav := NewNavigator(h, "")
	nav.Push(Route{Name: "A", Kind: "list"})
	mark := h.Log().LastSeq()
	nav.Push(Route{Name: "B", Kind: "detail"})

	want := []string{"CONSTRUCT /B", "RENDER /B", "MOUNT /B", "UNMOUNT /A"}
	if got := signaturesSince(h, mark); !reflect.DeepEqual(got, want) {
		t.Errorf("log mismatch\n%s", eventlog.Diff(want, got))
	}
}

func TestTabNavigator_LazyAndRetained(t *testing.T) {
	h := newHost(t)
	tabs := NewTabNavigator(h, "/tabs",
		Tab{Name: "feed", Root: Route{Kind: "feed"}},
		Tab{Name: "settings", Root: Route{Kind: "settings"}},
	)

	if err := tabs.Select(0); err != nil {
		t.Fatal(err)
	}
	if h.Instance("/tabs/settings/settings") != nil {
		t.Error("unselected tab must not be constructed")
	}
	h.Set("/tabs/feed/feed", "scroll", 12)
	h.Pump()
	feedID := h.Instance("/tabs/feed/feed").ID()

	if err := tabs.Select(1); err != nil {
		t.Fatal(err)
	}
	mark := h.Log().LastSeq()
	if err := tabs.Select(0); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"UNMOUNT /tabs/settings/settings",
		"RENDER /tabs/feed/feed",
		"MOUNT /tabs/feed/feed",
	}
	if got := signaturesSince(h, mark); !reflect.DeepEqual(got, want) {
		t.Errorf("log mismatch\n%s", eventlog.Diff(want, got))
	}
	feed := h.Instance("/tabs/feed/feed")
	if feed.ID() != feedID || feed.Get("scroll") != 12 {
		t.Error("tab instance should be retained across switches")
	}
	if h.Log().Count(eventlog.KindConstruct) != 2 {
		t.Errorf("constructs = %d, want one per tab", h.Log().Count(eventlog.KindConstruct))
	}
	if err := tabs.Select(0); err != nil {
		t.Error("reselecting the current tab is a no-op")
	}
	if err := tabs.Select(5); err == nil {
		t.Error("expected range error")
	}
}

func TestTabNavigator_PerTabStacks(t *testing.T) {
	h := newHost(t)
	tabs := NewTabNavigator(h, "",
		Tab{Name: "feed", Root: Route{Name: "home", Kind: "feed"}},
		Tab{Name: "settings", Root: Route{Kind: "settings"}},
	)
	tabs.Select(0)
	if err := tabs.Current().Push(Route{Name: "post", Kind: "detail"}); err != nil {
		t.Fatal(err)
	}
	if err := tabs.Navigator(1).Push(Route{Name: "x", Kind: "detail"}); !stderrors.Is(err, ErrInactive) {
		t.Errorf("push on hidden tab: %v", err)
	}

	tabs.Select(1)
	if h.Instance("/feed/post").IsMounted() {
		t.Error("hidden tab's top should be unmounted")
	}
	tabs.Select(0)
	if !h.Instance("/feed/post").IsMounted() || h.Instance("/feed/home").IsMounted() {
		t.Error("returning to a tab should show its top route")
	}
	if tabs.Index("settings") != 1 || tabs.Len() != 2 {
		t.Error("tab lookup")
	}
}

func TestScope_Back(t *testing.T) {
	h := newHost(t)
	scope := &Scope{}
	root := NewNavigator(h, "/root")
	scope.SetRoot(root)
	root.Push(Route{Name: "shell", Kind: "list"})
	root.Push(Route{Name: "modal", Kind: "detail"})

	tabs := NewTabNavigator(h, "/tabs", Tab{Name: "feed", Root: Route{Kind: "feed"}})
	tabs.Scope = scope
	tabs.Select(0)
	tabs.Current().Push(Route{Name: "post", Kind: "detail"})

	if ok, err := scope.Back(); !ok || err != nil {
		t.Fatalf("Back = %v, %v", ok, err)
	}
	if tabs.Current().Depth() != 1 {
		t.Error("active tab should pop first")
	}
	if ok, _ := scope.Back(); !ok || root.Depth() != 1 {
		t.Error("root should pop when the active navigator cannot")
	}
	if ok, _ := scope.Back(); ok {
		t.Error("nothing left to pop")
	}
}
