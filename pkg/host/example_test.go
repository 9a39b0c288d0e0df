package host_test

import (
	"fmt"

	"github.com/go-drift/viewcycle/internal/logger"
	"github.com/go-drift/viewcycle/pkg/core"
	"github.com/go-drift/viewcycle/pkg/host"
)

func counter() *core.View {
	return &core.View{
		Kind:   "counter",
		Fields: []core.FieldSpec{{Name: "count", Type: core.TypeInt, Watch: true}},
		Render: func(s core.Snapshot) (any, error) {
			return fmt.Sprintf("count=%d", s.Int("count")), nil
		},
	}
}

func Example() {
	h := host.New(host.WithIDGenerator(host.Sequential()), host.WithLogger(logger.Noop()))
	h.Register(counter())

	h.Construct("/counter", "counter", map[string]any{"count": 0})
	h.Mount("/counter")
	h.Set("/counter", "count", 1)
	h.Set("/counter", "count", 2)

	out, _ := h.Output("/counter")
	fmt.Println(out)
	for _, line := range h.Log().Signatures() {
		fmt.Println(line)
	}
	// Output:
	// count=2
	// CONSTRUCT /counter
	// RENDER /counter
	// MOUNT /counter
	// CHANGE /counter count 0 1
	// CHANGE /counter count 1 2
	// RENDER /counter
}

func ExampleHost_Transition() {
	h := host.New(host.WithPolicy(host.MountFirst), host.WithLogger(logger.Noop()))
	h.Register(counter())
	h.Construct("/a", "counter", nil)
	h.Mount("/a")

	h.Transition(host.Transition{
		Leave: []string{"/a"},
		Enter: []host.Slot{{Position: "/b", Kind: "counter"}},
	})
	for _, line := range h.Log().Signatures()[3:] {
		fmt.Println(line)
	}
	fmt.Println(h.Mounted())
	// Output:
	// CONSTRUCT /b
	// RENDER /b
	// MOUNT /b
	// UNMOUNT /a
	// [/b]
}
