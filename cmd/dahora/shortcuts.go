package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rkvasne/dahora-app-sub000/internal/config"
	"github.com/rkvasne/dahora-app-sub000/internal/history"
)

func newShortcutsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "shortcuts",
		Aliases: []string{"shortcut"},
		Short:   "Manage custom date shortcuts",
	}
	cmd.AddCommand(
		newShortcutsListCmd(),
		newShortcutsAddCmd(),
		newShortcutsSetCmd(),
		newShortcutsRemoveCmd(),
		newShortcutsExportCmd(),
		newShortcutsImportCmd(),
	)
	return cmd
}

func newShortcutsListCmd() *cobra.Command {
	v := viper.New()
	return dataCmd(&cobra.Command{
		Use:   "list",
		Short: "List custom shortcuts",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withStores(v, false, func(cfg *config.Store, _ *history.Store) error {
				scs := cfg.Shortcuts()
				if len(scs) == 0 {
					fmt.Println("No custom shortcuts.")
					return nil
				}
				tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "ID\tHOTKEY\tPREFIX\tENABLED\tDESCRIPTION\n")
				for _, sc := range scs {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", sc.ID, sc.Hotkey, sc.Prefix, sc.Enabled, sc.Description)
				}
				return tw.Flush()
			})
		},
	}, v)
}

func newShortcutsAddCmd() *cobra.Command {
	v := viper.New()
	cmd := dataCmd(&cobra.Command{
		Use:   "add HOTKEY PREFIX",
		Short: "Add a custom shortcut",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStores(v, true, func(cfg *config.Store, _ *history.Store) error {
				id, err := cfg.AddShortcut(args[0], args[1], v.GetString("description"), !v.GetBool("disabled"))
				if err != nil {
					return err
				}
				fmt.Printf("Added shortcut %d.\n", id)
				return nil
			})
		},
	}, v)
	cmd.Flags().String("description", "", "optional description")
	cmd.Flags().Bool("disabled", false, "add the shortcut disabled")
	return cmd
}

func newShortcutsSetCmd() *cobra.Command {
	v := viper.New()
	cmd := dataCmd(&cobra.Command{
		Use:   "set ID",
		Short: "Change a custom shortcut",
		Args:  cobra.ExactArgs(1),
	}, v)
	f := cmd.Flags()
	f.String("hotkey", "", "new hotkey")
	f.String("prefix", "", "new prefix")
	f.String("description", "", "new description")
	f.Bool("enabled", true, "enable or disable the shortcut")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid shortcut id %q", args[0])
		}
		var u config.ShortcutUpdate
		if cmd.Flags().Changed("hotkey") {
			s := v.GetString("hotkey")
			u.Hotkey = &s
		}
		if cmd.Flags().Changed("prefix") {
			s := v.GetString("prefix")
			u.Prefix = &s
		}
		if cmd.Flags().Changed("description") {
			s := v.GetString("description")
			u.Description = &s
		}
		if cmd.Flags().Changed("enabled") {
			b := v.GetBool("enabled")
			u.Enabled = &b
		}
		return withStores(v, true, func(cfg *config.Store, _ *history.Store) error {
			if err := cfg.UpdateShortcut(id, u); err != nil {
				return err
			}
			fmt.Printf("Updated shortcut %d.\n", id)
			return nil
		})
	}
	return cmd
}

func newShortcutsRemoveCmd() *cobra.Command {
	v := viper.New()
	return dataCmd(&cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Remove a custom shortcut",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid shortcut id %q", args[0])
			}
			return withStores(v, true, func(cfg *config.Store, _ *history.Store) error {
				if err := cfg.RemoveShortcut(id); err != nil {
					return err
				}
				fmt.Printf("Removed shortcut %d.\n", id)
				return nil
			})
		},
	}, v)
}

func newShortcutsExportCmd() *cobra.Command {
	v := viper.New()
	return dataCmd(&cobra.Command{
		Use:   "export [FILE]",
		Short: "Write custom shortcuts as TOML (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStores(v, false, func(cfg *config.Store, _ *history.Store) error {
				var w io.Writer = os.Stdout
				if len(args) == 1 && args[0] != "-" {
					f, err := os.Create(args[0])
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				return cfg.ExportShortcuts(w)
			})
		},
	}, v)
}

func newShortcutsImportCmd() *cobra.Command {
	v := viper.New()
	return dataCmd(&cobra.Command{
		Use:   "import FILE",
		Short: "Add custom shortcuts from a TOML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var r io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return withStores(v, true, func(cfg *config.Store, _ *history.Store) error {
				report, err := cfg.ImportShortcuts(r)
				if err != nil {
					return err
				}
				for _, res := range report.Results {
					if res.Err != nil {
						fmt.Printf("skipped %s (%s): %v\n", res.Hotkey, res.Prefix, res.Err)
					}
				}
				fmt.Printf("Imported %d of %d shortcuts.\n", report.Added, len(report.Results))
				if len(report.Rejected()) < len(report.Results)-report.Added {
					return errors.New("some shortcuts could not be saved")
				}
				return nil
			})
		},
	}, v)
}
