package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/go-drift/viewcycle/pkg/eventlog"
	"github.com/go-drift/viewcycle/pkg/scenario"
)

// errScenariosFailed is returned when every scenario ran but at least one
// missed its expectations. The summary has already said so.
var errScenariosFailed = stderrors.New("scenarios failed")

// runFlags are the output switches shared by run, demo and watch.
type runFlags struct {
	quiet    bool
	ids      bool
	snapshot bool
	update   bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "print only problems and the summary")
	cmd.Flags().BoolVar(&f.ids, "ids", false, "append instance ids to text output")
	cmd.Flags().BoolVar(&f.snapshot, "snapshot", false, "compare each log against <snapshots-dir>/<name>.log")
	cmd.Flags().BoolVar(&f.update, "update-snapshots", false, "write each log to <snapshots-dir>/<name>.log")
}

func newRunCmd(a *app) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|dir>...",
		Short: "Run scenario files and check their event logs",
		Long: `Run one or more scenario files. Directories are expanded to the
*.yaml and *.yml files they contain.

Each event log is printed in the configured format, followed by any
expectation mismatch, hook failure or lifecycle rule violation. The command
exits non-zero when any scenario fails.

Examples:
  viewcycle run counter.yaml
  viewcycle run --format json scenarios/
  viewcycle run --snapshot --snapshots-dir golden scenarios/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collect(args)
			if err != nil {
				return err
			}
			scenarios := make([]*scenario.Scenario, 0, len(files))
			for _, f := range files {
				sc, err := scenario.Load(f)
				if err != nil {
					return err
				}
				scenarios = append(scenarios, sc)
			}
			return a.runAll(cmd.Context(), cmd.OutOrStdout(), scenarios, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

// collect expands directories into their scenario files, keeping the
// argument order and sorting within each directory.
func collect(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read scenario: %w", err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		var found []string
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			found = append(found, matches...)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no scenario files in %s", arg)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// runAll runs every scenario in order, prints each log and a summary, and
// returns errScenariosFailed if any of them failed.
func (a *app) runAll(ctx context.Context, w io.Writer, scenarios []*scenario.Scenario, flags runFlags) error {
	out := newSummaryRenderer(w, a.useColor())
	results := make([]*scenario.Result, 0, len(scenarios))
	failed := false

	for _, sc := range scenarios {
		res, err := scenario.Run(ctx, sc, a.runOptions()...)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return fmt.Errorf("%s: %w", displayName(sc), err)
		}
		results = append(results, res)

		if !flags.quiet {
			fmt.Fprintln(w, out.header(res))
			if err := eventlog.Write(w, a.cfg.LogFormat(), res.Events, eventlog.TextOptions{Color: a.useColor(), IDs: flags.ids}); err != nil {
				return err
			}
		}
		if !res.Passed() {
			failed = true
			if flags.quiet {
				fmt.Fprintln(w, out.header(res))
			}
			fmt.Fprint(w, out.problems(res))
		}
		if msg, ok, err := a.snapshot(res, flags); err != nil {
			return err
		} else if msg != "" {
			if !ok {
				failed = true
			}
			fmt.Fprintln(w, msg)
		}
		if !flags.quiet {
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w, out.render(results))
	if failed {
		return errScenariosFailed
	}
	return nil
}

// snapshot compares or updates the golden log of res when asked to. It
// returns a message to print and whether the log matched.
func (a *app) snapshot(res *scenario.Result, flags runFlags) (string, bool, error) {
	if !flags.snapshot && !flags.update {
		return "", true, nil
	}
	path := filepath.Join(a.cfg.SnapshotsDir, snapshotName(res.Scenario)+".log")
	got := eventlog.Capture(res.Events)

	if flags.update {
		if err := got.UpdateFile(path); err != nil {
			return "", false, fmt.Errorf("failed to update snapshot: %w", err)
		}
		return "updated " + path, true, nil
	}

	want, err := eventlog.LoadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("snapshot missing: %s (rerun with --update-snapshots)", path), false, nil
		}
		return "", false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if diff := got.Diff(want); diff != "" {
		return fmt.Sprintf("snapshot mismatch: %s\n%s", path, diff), false, nil
	}
	return "", true, nil
}

// snapshotName names a scenario's golden file after the scenario, falling
// back to its file name.
func snapshotName(sc *scenario.Scenario) string {
	if sc.Name != "" {
		return sc.Name
	}
	base := filepath.Base(sc.Path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func displayName(sc *scenario.Scenario) string {
	if sc.Path != "" {
		return sc.Path
	}
	return sc.Name
}
