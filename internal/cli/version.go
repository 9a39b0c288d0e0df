package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/go-drift/viewcycle/pkg/scenario"
)

// Version information set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash and build date of viewcycle.`,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(w, version)
				return
			}
			fmt.Fprintf(w, "viewcycle %s\n", formatVersion(version))
			fmt.Fprintf(w, "commit: %s\n", commit)
			fmt.Fprintf(w, "built: %s\n", date)
			fmt.Fprintf(w, "scenario format: %s\n", scenario.FormatVersion)
			fmt.Fprintf(w, "go: %s\n", runtime.Version())
			fmt.Fprintf(w, "os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}

// formatVersion ensures version has a 'v' prefix for display
func formatVersion(v string) string {
	if v == "" || v == "dev" {
		return v
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}

// SetVersionInfo sets the version information (called from main).
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
