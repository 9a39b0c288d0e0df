package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-drift/viewcycle/pkg/scenario"
)

func newDemoCmd(a *app) *cobra.Command {
	var (
		flags runFlags
		list  bool
	)
	cmd := &cobra.Command{
		Use:   "demo [name]...",
		Short: "Run the built-in scenarios",
		Long: `Run scenarios embedded in the binary. With no names, every built-in
scenario runs.

Examples:
  viewcycle demo
  viewcycle demo counter navigation
  viewcycle demo --list`,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return scenario.Builtins(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, name := range scenario.Builtins() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			names := args
			if len(names) == 0 {
				names = scenario.Builtins()
			}
			scenarios := make([]*scenario.Scenario, 0, len(names))
			for _, name := range names {
				sc, err := scenario.Builtin(name)
				if err != nil {
					return err
				}
				scenarios = append(scenarios, sc)
			}
			return a.runAll(cmd.Context(), cmd.OutOrStdout(), scenarios, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&list, "list", false, "list the built-in scenarios and exit")
	return cmd
}
