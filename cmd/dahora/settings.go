package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rkvasne/dahora-app-sub000/internal/config"
	"github.com/rkvasne/dahora-app-sub000/internal/history"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change application settings",
		Long: `Show or change the settings stored in settings.json.

Keys are the document keys (for example max_history_items); dashes may be
used instead of underscores. Out-of-range numbers are clamped.`,
	}
	cmd.AddCommand(newSettingsListCmd(), newSettingsGetCmd(), newSettingsSetCmd())
	return cmd
}

func newSettingsListCmd() *cobra.Command {
	v := viper.New()
	return dataCmd(&cobra.Command{
		Use:   "list",
		Short: "Print every setting",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withStores(v, false, func(cfg *config.Store, _ *history.Store) error {
				st := cfg.Settings()
				tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "KEY\tVALUE\n")
				for _, k := range config.SettingKeys() {
					val, err := st.Get(k)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%s\n", k, val)
				}
				return tw.Flush()
			})
		},
	}, v)
}

func newSettingsGetCmd() *cobra.Command {
	v := viper.New()
	return dataCmd(&cobra.Command{
		Use:   "get KEY",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStores(v, false, func(cfg *config.Store, _ *history.Store) error {
				val, err := cfg.Settings().Get(args[0])
				if err != nil {
					return err
				}
				fmt.Println(val)
				return nil
			})
		},
	}, v)
}

func newSettingsSetCmd() *cobra.Command {
	v := viper.New()
	return dataCmd(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStores(v, true, func(cfg *config.Store, hist *history.Store) error {
				if err := cfg.Set(args[0], args[1]); err != nil {
					return err
				}
				// A smaller bound trims the stored history right away.
				if n := cfg.Settings().MaxHistoryItems; n != hist.MaxItems() {
					if err := hist.SetMaxItems(n); err != nil {
						return err
					}
				}
				val, err := cfg.Settings().Get(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s = %s\n", args[0], val)
				return nil
			})
		},
	}, v)
}
