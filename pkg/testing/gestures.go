package testing

import "fmt"

// Tap increments the int field of the instance at pos, the way a button
// press updates a counter. Like Host.Set it only queues work; call Pump or
// ExpectLog to drain it.
func (t *HostTester) Tap(pos, field string) error {
	v, err := t.host.Get(pos, field)
	if err != nil {
		return err
	}
	n, ok := v.(int)
	if !ok {
		return fmt.Errorf("Tap: %s.%s holds %T, not int", pos, field, v)
	}
	return t.host.Set(pos, field, n+1)
}

// TapN taps n times without draining in between.
func (t *HostTester) TapN(pos, field string, n int) error {
	for range n {
		if err := t.Tap(pos, field); err != nil {
			return err
		}
	}
	return nil
}

// Toggle flips the bool field of the instance at pos.
func (t *HostTester) Toggle(pos, field string) error {
	v, err := t.host.Get(pos, field)
	if err != nil {
		return err
	}
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("Toggle: %s.%s holds %T, not bool", pos, field, v)
	}
	return t.host.Set(pos, field, !b)
}
