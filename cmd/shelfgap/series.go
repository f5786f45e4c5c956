// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/shelfgap/internal/library"
	"github.com/pdiddy/shelfgap/pkg/types"
)

var seriesCmd = &cobra.Command{
	Use:   "series [name]",
	Short: "Show series with upload candidates",
	Long: `Series, with no argument, rolls up every series that still has at
least one upload candidate: total books, candidates, and books already on
the target tracker. With a series name it lists that series' books and
their verdicts, which shows exactly which volumes are missing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeries,
}

func runSeries(cmd *cobra.Command, args []string) error {
	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		return printSeriesBooks(store, args[0])
	}
	return printSeriesRollup(store)
}

func printSeriesRollup(store *library.Store) error {
	summaries, err := store.Series(context.Background())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No series with upload candidates found.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Series", "Total", "Candidates", "On target"})
	for _, s := range summaries {
		tw.AppendRow(table.Row{s.Name, s.Total, s.Candidates, s.OnTarget})
	}
	tw.Render()

	fmt.Printf("\n%d series with candidates\n", len(summaries))
	return nil
}

func printSeriesBooks(store *library.Store, name string) error {
	entries, err := store.SeriesBooks(context.Background(), name)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No books found for series: %s\n", name)
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Title", "Author", "Status", "Filetypes", "Size"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.Title, e.Author, verdictLabel(e.Classification), e.Filetypes, e.Size})
	}
	tw.Render()

	fmt.Printf("\n%s: %d book(s)\n", name, len(entries))
	return nil
}

// verdictLabel renders a classification for table output.
func verdictLabel(c *types.Classification) string {
	if c == nil {
		return "not checked"
	}
	switch c.Status {
	case types.StatusMatch:
		return "on target"
	case types.StatusNoMatch:
		return "CANDIDATE"
	case types.StatusAmbiguous:
		return "ambiguous"
	default:
		return string(c.Status)
	}
}

func init() {
	rootCmd.AddCommand(seriesCmd)
}
