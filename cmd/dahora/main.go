// dahora: date/time stamps and clipboard history from the system tray.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "dahora",
		Short: "Date/time stamps and clipboard history from the system tray",
		Long: `dahora sits in the system tray, keeps a history of copied text and pastes
bracketed date/time stamps into the focused window through global hotkeys.

Running "dahora" without a subcommand starts the tray application. The other
subcommands inspect and edit the same data while the tray is not running.

Config file search order (first found wins):
  $HOME/.config/dahora/dahora.toml
  path supplied via --config

Every flag can also be set via DAHORA_<FLAG> env vars (dashes become
underscores) or config-file keys.`,
		SilenceUsage: true,
	}

	run := newRunCmd()
	root.RunE = run.RunE
	root.PreRunE = run.PreRunE
	root.Flags().AddFlagSet(run.Flags())

	root.AddCommand(
		run,
		newHistoryCmd(),
		newShortcutsCmd(),
		newSettingsCmd(),
		newStatsCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("dahora %s\n", Version)
		},
	}
}
