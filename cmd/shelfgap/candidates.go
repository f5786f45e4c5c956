// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/shelfgap/internal/library"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List books the target tracker is missing",
	Long: `Candidates lists the books classified no_match: works in the local
library that the target tracker's search could not find. These are the
upload candidates. Filters narrow the list by series, filetype, or a
title/author substring.`,
	RunE: runCandidates,
}

func runCandidates(cmd *cobra.Command, args []string) error {
	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	filter := library.CandidateFilter{}
	filter.Series, _ = cmd.Flags().GetString("series")
	filter.Format, _ = cmd.Flags().GetString("format")
	filter.Text, _ = cmd.Flags().GetString("text")
	filter.Limit, _ = cmd.Flags().GetInt("limit")

	books, err := store.Candidates(context.Background(), filter)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(books)
	}

	if len(books) == 0 {
		fmt.Println("No candidates found.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Title", "Author", "Series", "Filetypes", "Size"})
	for _, b := range books {
		tw.AppendRow(table.Row{b.Title, b.Author, b.SeriesName, b.Filetypes, b.Size})
	}
	tw.Render()

	fmt.Printf("\n%d candidate(s)\n", len(books))
	return nil
}

func init() {
	candidatesCmd.Flags().String("series", "", "filter by series name")
	candidatesCmd.Flags().String("format", "", "filter by filetype substring (e.g. epub)")
	candidatesCmd.Flags().String("text", "", "filter by title or author substring")
	candidatesCmd.Flags().Int("limit", 0, "maximum rows (0 = all)")
	candidatesCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(candidatesCmd)
}
