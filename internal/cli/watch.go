package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/go-drift/viewcycle/pkg/scenario"
)

func newWatchCmd(a *app) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "watch <scenario.yaml>",
		Short: "Re-run a scenario whenever its file changes",
		Long: `Run a scenario, then run it again every time the file is saved, until
interrupted. Bursts of writes within the configured debounce interval
trigger a single run.

Examples:
  viewcycle watch counter.yaml
  VIEWCYCLE_DEBOUNCE=500ms viewcycle watch navigation.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			w := cmd.OutOrStdout()
			run := func() { a.runOnce(cmd.Context(), w, path, flags) }
			run()
			return watchFile(cmd.Context(), path, a.cfg.Debounce, run, func(err error) {
				a.log.Warn("watch: %v", err)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// runOnce loads and runs the scenario at path, reporting every outcome to w
// rather than returning it so the watch loop keeps going.
func (a *app) runOnce(ctx context.Context, w io.Writer, path string, flags runFlags) {
	sc, err := scenario.Load(path)
	if err == nil {
		err = a.runAll(ctx, w, []*scenario.Scenario{sc}, flags)
	}
	switch {
	case err == nil, errors.Is(err, errScenariosFailed):
	case ctx.Err() != nil:
		return
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	fmt.Fprintf(w, "watching %s (ctrl-c to stop)\n", path)
}

// watchFile calls onChange after path is written, created or renamed into
// place, once per burst of events separated by less than debounce. The
// parent directory is watched so editors that replace the file on save are
// seen. It returns nil when ctx is done.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func(), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
