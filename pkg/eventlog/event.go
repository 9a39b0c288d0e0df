// Package eventlog records the ordered lifecycle events a host emits and
// checks them against the lifecycle invariants.
//
// Every event carries a monotonically increasing sequence number, the id of
// the instance it concerns and the structural position that instance
// occupies. Because instance ids are opaque (random by default),
// expectations are written against Signature, which omits the id:
//
//	CONSTRUCT /counter
//	RENDER /counter
//	MOUNT /counter
//	CHANGE /counter count 0 1
//	RENDER /counter
package eventlog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind tags an event.
type Kind int

const (
	KindConstruct Kind = iota + 1
	KindRender
	KindMount
	KindChange
	KindUnmount
	KindDestroy
	KindError
)

var kindNames = map[Kind]string{
	KindConstruct: "CONSTRUCT",
	KindRender:    "RENDER",
	KindMount:     "MOUNT",
	KindChange:    "CHANGE",
	KindUnmount:   "UNMOUNT",
	KindDestroy:   "DESTROY",
	KindError:     "ERROR",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a tag such as "MOUNT" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == upper {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Event is one entry in the log.
type Event struct {
	Seq      uint64    `json:"seq" yaml:"seq"`
	Kind     Kind      `json:"kind" yaml:"kind"`
	Instance string    `json:"instance" yaml:"instance"`
	Position string    `json:"position" yaml:"position"`
	View     string    `json:"view" yaml:"view"`
	Field    string    `json:"field,omitempty" yaml:"field,omitempty"`
	Old      any       `json:"old,omitempty" yaml:"old,omitempty"`
	New      any       `json:"new,omitempty" yaml:"new,omitempty"`
	Hook     string    `json:"hook,omitempty" yaml:"hook,omitempty"`
	Err      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Time     time.Time `json:"time" yaml:"time"`
}

// Signature returns the id-free form used in expectations.
func (e Event) Signature() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteByte(' ')
	b.WriteString(e.Position)
	switch e.Kind {
	case KindChange:
		fmt.Fprintf(&b, " %s %s %s", e.Field, FormatValue(e.Old), FormatValue(e.New))
	case KindError:
		if e.Hook != "" {
			b.WriteByte(' ')
			b.WriteString(e.Hook)
		}
	}
	return b.String()
}

func (e Event) String() string {
	return fmt.Sprintf("#%d %s [%s]", e.Seq, e.Signature(), e.Instance)
}

// FormatValue renders a field value for signatures: strings are quoted so
// that empty strings and values containing spaces stay unambiguous.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
