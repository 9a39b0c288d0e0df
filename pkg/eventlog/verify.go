package eventlog

import "fmt"

// Rule names a structural property of a well-formed log.
type Rule string

const (
	RuleConstructFirst  Rule = "construct-first"
	RuleAlternation     Rule = "mount-unmount-alternate"
	RuleRenderBefore    Rule = "render-before-mount"
	RuleNoRenderOffline Rule = "no-render-after-unmount"
	RuleTerminal        Rule = "nothing-after-destroy"
	RuleErrorSuppresses Rule = "error-suppresses-events"
	RuleUnmountFirst    Rule = "unmount-before-destroy"
)

// Violation is one broken rule, pinned to the offending event.
type Violation struct {
	Rule     Rule
	Seq      uint64
	Instance string
	Message  string
}

func (v Violation) String() string {
	return fmt.Sprintf("#%d %s: %s (%s)", v.Seq, v.Rule, v.Message, v.Instance)
}

type instanceTrack struct {
	seen      bool
	mounted   bool
	rendered  bool // since construction or the last unmount
	destroyed bool
	failed    bool
	// offline is the seq of a render issued while not mounted; the next
	// event for the instance must be MOUNT or ERROR.
	offline uint64
}

// Verify checks events against the lifecycle rules and returns every
// violation found, in log order. A nil result means the log is well formed.
func Verify(events []Event) []Violation {
	var out []Violation
	tracks := make(map[string]*instanceTrack)
	var order []string
	report := func(rule Rule, e Event, format string, args ...any) {
		out = append(out, Violation{Rule: rule, Seq: e.Seq, Instance: e.Instance, Message: fmt.Sprintf(format, args...)})
	}

	for _, e := range events {
		tr := tracks[e.Instance]
		if tr == nil {
			tr = &instanceTrack{}
			tracks[e.Instance] = tr
			order = append(order, e.Instance)
		}
		if !tr.seen {
			tr.seen = true
			if e.Kind != KindConstruct && e.Kind != KindError {
				report(RuleConstructFirst, e, "%s before CONSTRUCT", e.Kind)
			}
		}
		if tr.destroyed {
			report(RuleTerminal, e, "%s after DESTROY", e.Kind)
			continue
		}
		if tr.failed && e.Kind != KindDestroy {
			report(RuleErrorSuppresses, e, "%s after ERROR", e.Kind)
			continue
		}
		if tr.offline != 0 && e.Kind != KindMount && e.Kind != KindError {
			report(RuleNoRenderOffline, e, "render #%d while unmounted was not followed by MOUNT", tr.offline)
		}
		if e.Kind != KindRender {
			tr.offline = 0
		}

		switch e.Kind {
		case KindRender:
			tr.rendered = true
			if !tr.mounted {
				tr.offline = e.Seq
			}
		case KindMount:
			if tr.mounted {
				report(RuleAlternation, e, "MOUNT while mounted")
			}
			if !tr.rendered {
				report(RuleRenderBefore, e, "MOUNT without a preceding RENDER")
			}
			tr.mounted = true
		case KindUnmount:
			if !tr.mounted {
				report(RuleAlternation, e, "UNMOUNT while not mounted")
			}
			tr.mounted = false
			tr.rendered = false
		case KindDestroy:
			if tr.mounted && !tr.failed {
				report(RuleUnmountFirst, e, "DESTROY while mounted")
			}
			tr.destroyed = true
		case KindError:
			tr.failed = true
		}
	}

	for _, id := range order {
		if tr := tracks[id]; tr.offline != 0 {
			out = append(out, Violation{
				Rule:     RuleNoRenderOffline,
				Seq:      tr.offline,
				Instance: id,
				Message:  "render while unmounted was not followed by MOUNT",
			})
		}
	}
	return out
}
