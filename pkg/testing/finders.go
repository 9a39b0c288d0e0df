package testing

import (
	"fmt"
	"strings"

	"github.com/go-drift/viewcycle/pkg/core"
)

// Match is one instance found by a Finder.
type Match struct {
	Position string
	Instance *core.Instance
}

// Finder selects instances in the host's table.
type Finder interface {
	// Matches reports whether the instance at pos is selected.
	Matches(pos string, inst *core.Instance) bool
	// Description returns a human-readable description for error messages.
	Description() string
}

// FinderResult wraps finder results with convenient accessors.
type FinderResult struct {
	matches []Match
	finder  Finder
}

// First returns the first match by position. Panics if no matches.
func (r FinderResult) First() Match {
	if len(r.matches) == 0 {
		panic(fmt.Sprintf("Finder found no instances: %s", r.describe()))
	}
	return r.matches[0]
}

// FirstOrNil returns the first matched instance, or nil if none.
func (r FinderResult) FirstOrNil() *core.Instance {
	if len(r.matches) == 0 {
		return nil
	}
	return r.matches[0].Instance
}

// All returns all matches sorted by position.
func (r FinderResult) All() []Match {
	return r.matches
}

// Positions returns the matched positions.
func (r FinderResult) Positions() []string {
	out := make([]string, len(r.matches))
	for i, m := range r.matches {
		out[i] = m.Position
	}
	return out
}

// Count returns the number of matches.
func (r FinderResult) Count() int {
	return len(r.matches)
}

// Exists returns true if at least one match was found.
func (r FinderResult) Exists() bool {
	return len(r.matches) > 0
}

func (r FinderResult) describe() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

// Find evaluates finder against every live instance.
func (t *HostTester) Find(finder Finder) FinderResult {
	result := FinderResult{finder: finder}
	for _, pos := range t.host.Positions() {
		inst := t.host.Instance(pos)
		if finder.Matches(pos, inst) {
			result.matches = append(result.matches, Match{Position: pos, Instance: inst})
		}
	}
	return result
}

type kindFinder struct{ kind string }

func (f kindFinder) Matches(_ string, inst *core.Instance) bool { return inst.Kind() == f.kind }
func (f kindFinder) Description() string                       { return fmt.Sprintf("ByKind(%q)", f.kind) }

// ByKind finds instances of a view kind.
func ByKind(kind string) Finder { return kindFinder{kind} }

type prefixFinder struct{ prefix string }

func (f prefixFinder) Matches(pos string, _ *core.Instance) bool {
	return pos == f.prefix || strings.HasPrefix(pos, strings.TrimSuffix(f.prefix, "/")+"/")
}
func (f prefixFinder) Description() string { return fmt.Sprintf("UnderPosition(%q)", f.prefix) }

// UnderPosition finds the instance at prefix and every instance whose
// position nests beneath it.
func UnderPosition(prefix string) Finder { return prefixFinder{prefix} }

type phaseFinder struct{ phase core.Phase }

func (f phaseFinder) Matches(_ string, inst *core.Instance) bool { return inst.Phase() == f.phase }
func (f phaseFinder) Description() string                       { return fmt.Sprintf("ByPhase(%s)", f.phase) }

// ByPhase finds instances in phase.
func ByPhase(phase core.Phase) Finder { return phaseFinder{phase} }

// Mounted finds mounted instances.
func Mounted() Finder { return ByPhase(core.PhaseMounted) }

type predicateFinder struct {
	fn   func(pos string, inst *core.Instance) bool
	desc string
}

func (f predicateFinder) Matches(pos string, inst *core.Instance) bool { return f.fn(pos, inst) }
func (f predicateFinder) Description() string                         { return f.desc }

// ByPredicate finds instances for which fn returns true.
func ByPredicate(desc string, fn func(pos string, inst *core.Instance) bool) Finder {
	return predicateFinder{fn: fn, desc: desc}
}
