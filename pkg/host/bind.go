package host

import "github.com/go-drift/viewcycle/pkg/core"

// Bind returns a typed handle on field of the instance at pos. T must be the
// Go type the field is stored as. The handle addresses the position, not the
// instance: reads go through Get and writes through Set, so after the
// position is rebuilt the handle follows the new instance.
//
//	count, err := host.Bind[int](h, "/counter", "count")
//	...
//	count.Update(func(n int) int { return n + 1 })
func Bind[T any](h *Host, pos, field string) (*core.Field[T], error) {
	const op = "host.Bind"
	s, err := h.live(op, pos)
	if err != nil {
		return nil, err
	}
	f, err := core.NewField[T](s.inst.View(), field,
		func(name string) (any, error) { return h.Get(pos, name) },
		func(name string, value any) error { return h.Set(pos, name, value) },
	)
	if err != nil {
		return nil, h.usage(op, pos, s.inst.ID(), err)
	}
	return f, nil
}
