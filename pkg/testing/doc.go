// Package testing provides a harness for testing views against the
// lifecycle host.
//
// # Quick Start
//
// Create a tester, register views, drive the host and assert on the log:
//
//	func TestCounter(t *testing.T) {
//	    tester := vctest.NewHostTesterWithT(t)
//	    tester.Register(counterView)
//
//	    h := tester.Host()
//	    h.Construct("/c", "counter", nil)
//	    h.Mount("/c")
//	    tester.Mark()
//
//	    tester.Tap("/c", "count")
//	    tester.Pump()
//
//	    tester.ExpectLog(t, "CHANGE /c count 0 1", "RENDER /c")
//	}
//
// Testers created with NewHostTesterWithT check the whole log against the
// lifecycle rules when the test ends.
//
// # Snapshot Testing
//
// Compare the log against a golden file of event signatures:
//
//	tester.CaptureSnapshot().MatchesFile(t, "testdata/counter.log")
//
// Update golden files with:
//
//	VIEWCYCLE_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Time
//
// Timers scheduled with Host.AfterFunc fire on a virtual clock:
//
//	tester.Advance(100 * time.Millisecond)
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import vctest "github.com/go-drift/viewcycle/pkg/testing"
package testing
