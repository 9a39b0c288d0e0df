package eventlog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UpdateSnapshotsEnv names the variable that makes MatchesFile rewrite
// golden files instead of comparing against them.
const UpdateSnapshotsEnv = "VIEWCYCLE_UPDATE_SNAPSHOTS"

// TestingT is the subset of *testing.T used by MatchesFile, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot is the golden form of a log: one signature per line.
type Snapshot struct {
	Lines []string
}

// Capture builds a snapshot from events.
func Capture(events []Event) *Snapshot {
	return &Snapshot{Lines: Signatures(events)}
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When
// VIEWCYCLE_UPDATE_SNAPSHOTS=1 is set, the file is silently updated instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv(UpdateSnapshotsEnv) == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := LoadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: %s=1 go test -run %s", path, UpdateSnapshotsEnv, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s\n%s\n\nTo update: %s=1 go test -run %s", path, diff, UpdateSnapshotsEnv, t.Name())
	}
}

// UpdateFile writes this snapshot to the given path, creating directories
// as needed.
func (s *Snapshot) UpdateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, s.bytes(), 0o644)
}

// Diff returns a line diff between other (expected) and this snapshot
// (actual). Returns empty string if equal.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, b := s.bytes(), other.bytes()
	if bytes.Equal(a, b) {
		return ""
	}
	return Diff(other.Lines, s.Lines)
}

func (s *Snapshot) bytes() []byte {
	if len(s.Lines) == 0 {
		return nil
	}
	return []byte(strings.Join(s.Lines, "\n") + "\n")
}

// LoadSnapshot reads a golden file. Blank lines and lines starting with '#'
// are ignored.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		snap.Lines = append(snap.Lines, line)
	}
	return snap, nil
}

// Diff produces a simple line-oriented diff of two signature lists.
func Diff(expected, actual []string) string {
	var buf strings.Builder
	buf.WriteString("--- expected\n+++ actual\n")

	maxLen := max(len(expected), len(actual))
	for i := 0; i < maxLen; i++ {
		var e, a string
		if i < len(expected) {
			e = expected[i]
		}
		if i < len(actual) {
			a = actual[i]
		}
		if e == a {
			fmt.Fprintf(&buf, " %s\n", e)
			continue
		}
		if i < len(expected) {
			fmt.Fprintf(&buf, "-%s\n", e)
		}
		if i < len(actual) {
			fmt.Fprintf(&buf, "+%s\n", a)
		}
	}
	return buf.String()
}
