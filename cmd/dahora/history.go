package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rkvasne/dahora-app-sub000/internal/config"
	"github.com/rkvasne/dahora-app-sub000/internal/history"
	"github.com/rkvasne/dahora-app-sub000/internal/ui"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or edit the clipboard history",
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryAddCmd(), newHistoryClearCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	v := viper.New()
	cmd := dataCmd(&cobra.Command{
		Use:   "list",
		Short: "Print the newest history entries",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withStores(v, false, func(_ *config.Store, hist *history.Store) error {
				entries := hist.Recent(v.GetInt("limit"))
				if v.GetBool("json") {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(entries)
				}
				if len(entries) == 0 {
					fmt.Println("History is empty.")
					return nil
				}
				tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "TIME\tSOURCE\tTEXT\n")
				for i := len(entries) - 1; i >= 0; i-- {
					e := entries[i]
					fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp, e.Source, ui.Preview(e.Text, 60))
				}
				return tw.Flush()
			})
		},
	}, v)
	cmd.Flags().Int("limit", 20, "number of entries to print")
	cmd.Flags().Bool("json", false, "print entries as JSON")
	return cmd
}

func newHistoryAddCmd() *cobra.Command {
	v := viper.New()
	cmd := dataCmd(&cobra.Command{
		Use:   "add [TEXT...]",
		Short: "Add text to the history (reads lines from stdin with --stdin)",
		RunE: func(_ *cobra.Command, args []string) error {
			var texts []string
			if v.GetBool("stdin") {
				sc := bufio.NewScanner(os.Stdin)
				for sc.Scan() {
					texts = append(texts, sc.Text())
				}
				if err := sc.Err(); err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
			} else {
				texts = append(texts, strings.Join(args, " "))
			}
			return withStores(v, true, func(_ *config.Store, hist *history.Store) error {
				added := 0
				for _, t := range texts {
					ok, err := hist.Add(t, history.SourceImport)
					if err != nil {
						return err
					}
					if ok {
						added++
					}
				}
				fmt.Printf("Added %d of %d entries.\n", added, len(texts))
				return nil
			})
		},
	}, v)
	cmd.Flags().Bool("stdin", false, "add one entry per line read from stdin")
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	v := viper.New()
	cmd := dataCmd(&cobra.Command{
		Use:   "clear",
		Short: "Delete every history entry",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if !v.GetBool("yes") {
				return fmt.Errorf("refusing to clear history without --yes")
			}
			return withStores(v, true, func(_ *config.Store, hist *history.Store) error {
				n, err := hist.Clear()
				if err != nil {
					return err
				}
				fmt.Printf("Deleted %d entries.\n", n)
				return nil
			})
		},
	}, v)
	cmd.Flags().Bool("yes", false, "confirm deletion")
	return cmd
}
