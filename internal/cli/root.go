package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-drift/viewcycle/internal/config"
	"github.com/go-drift/viewcycle/internal/logger"
	"github.com/go-drift/viewcycle/pkg/scenario"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	noColor    bool

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "viewcycle",
		Short: "Drive view lifecycles and check the event log",
		Long: `viewcycle runs lifecycle scenarios against a simulated host and prints
the resulting event log.

A scenario is a YAML file declaring view kinds and a list of steps
(construct, mount, set, push, pop, ...). After the run the log is checked
against the lifecycle rules and the scenario's expected signatures.

Configuration is read from --config, .viewcycle.yaml in the current
directory or ~/.config/viewcycle/config.yaml, with VIEWCYCLE_* environment
variables and flags taking precedence.

Examples:
  viewcycle demo
  viewcycle run scenarios/
  viewcycle run --policy mount-first navigation.yaml
  viewcycle watch counter.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default .viewcycle.yaml, then ~/.config/viewcycle/config.yaml)")
	pf.String("policy", "", "ordering policy: unmount-first or mount-first (default: the scenario's own)")
	pf.String("format", "", "event log format: text, json or yaml")
	pf.String("color", "", "color mode: auto, always or never")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	pf.BoolP("verbose", "v", false, "log host activity at debug level")
	pf.String("snapshots-dir", "", "directory holding golden event logs")

	root.AddCommand(
		newRunCmd(a),
		newDemoCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return root
}

// load resolves the configuration for cmd after its flags are parsed.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{Path: a.configPath, Flags: cmd.Flags()})
	if err != nil {
		return err
	}
	if a.noColor {
		cfg.Color = config.ColorNever
	}
	logger.SetDebug(cfg.Verbose)
	a.cfg = cfg
	a.log = logger.NewEnvLogger("[viewcycle]")
	a.log.Debug("config: %s (policy=%s format=%s color=%s)", configSource(cfg), cfg.Policy, cfg.Format, cfg.Color)
	return nil
}

func configSource(cfg *config.Config) string {
	if cfg.Path == "" {
		return "defaults"
	}
	return cfg.Path
}

// useColor resolves the color mode against the terminal fatih/color detected.
func (a *app) useColor() bool {
	return a.cfg.UseColor(!color.NoColor)
}

// runOptions turns the configuration into scenario run options.
func (a *app) runOptions() []scenario.RunOption {
	opts := []scenario.RunOption{scenario.WithLogger(logger.NewEnvLogger("[host]"))}
	if a.cfg.PolicyExplicit {
		opts = append(opts, scenario.WithPolicy(a.cfg.HostPolicy()))
	}
	return opts
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// execute runs the command tree with the given arguments and streams.
// Errors are printed to errOut before being returned.
func execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errScenariosFailed) {
		root.PrintErrln(color.RedString("Error:"), err)
	}
	return err
}
