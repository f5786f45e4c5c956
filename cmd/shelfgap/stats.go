// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/shelfgap/internal/library"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the library",
	Long: `Stats prints record counts for the library: totals, verification
verdicts, per-search breakdowns, and filetype distribution.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("books: %d\n", st.Total)
	if st.LastScrape != "" {
		fmt.Printf("last harvest: %s\n", st.LastScrape)
	}
	fmt.Println()

	printCountTable("Status", st.ByStatus)
	printCountTable("Search", st.ByLabel)
	printCountTable("Filetypes", st.ByFiletype)
	return nil
}

func printCountTable(label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{label, "Count"})
	for _, k := range keys {
		name := k
		if name == "" {
			name = "(none)"
		}
		tw.AppendRow(table.Row{name, counts[k]})
	}
	tw.Render()
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
