package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rkvasne/dahora-app-sub000/internal/stats"
)

func newStatsCmd() *cobra.Command {
	v := viper.New()
	cmd := dataCmd(&cobra.Command{
		Use:   "stats",
		Short: "Show local usage statistics",
		Args:  cobra.NoArgs,
		RunE:  func(_ *cobra.Command, _ []string) error { return runStats(v) },
	}, v)
	cmd.Flags().Int("days", 30, "only count the last N days (0 for all time)")
	return cmd
}

func runStats(v *viper.Viper) error {
	dir, err := dataDir(v)
	if err != nil {
		return err
	}
	db, err := stats.Open(dir)
	if err != nil {
		return err
	}
	defer db.Close()

	days := v.GetInt("days")
	sum, err := db.Summary(days)
	if err != nil {
		return err
	}
	if sum.Total == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Events:\t%d\n", sum.Total)
	fmt.Fprintf(tw, "First:\t%s\n", sum.First.Local().Format(time.DateTime))
	fmt.Fprintf(tw, "Last:\t%s\n", sum.Last.Local().Format(time.DateTime))
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "KIND\tCOUNT\n")
	for _, k := range sum.Kinds {
		fmt.Fprintf(tw, "%s\t%d\n", k.Kind, k.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	daily, err := db.Daily(days)
	if err != nil {
		return err
	}
	fmt.Println()
	tw = tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "DATE\tEVENTS\n")
	for _, d := range daily {
		fmt.Fprintf(tw, "%s\t%d\n", d.Date, d.Count)
	}
	return tw.Flush()
}
