// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/shelfgap/internal/gazelle"
	"github.com/pdiddy/shelfgap/internal/verify"
)

var checkCmd = &cobra.Command{
	Use:   "check <title>",
	Short: "Check one title against the target tracker",
	Long: `Check runs a single ad-hoc search against the target tracker and
classifies the hits with the same matcher a verification run uses. The
library is not touched; use this to probe a title before harvesting or to
sanity-check matcher settings.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	title := args[0]
	author, _ := cmd.Flags().GetString("author")

	gcfg, err := gazelleConfig(cmd)
	if err != nil {
		return err
	}
	vcfg := verifyConfig(cmd)

	client := gazelle.NewClient(gcfg)
	status, matches, err := verify.Check(context.Background(), client, title, author, vcfg.Match)
	if err != nil {
		return fmt.Errorf("checking %q: %w", title, err)
	}

	fmt.Printf("%s: %s\n", title, status)
	if len(matches) == 0 {
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Group", "Name", "Formats", "Seeders", "Snatched"})
	for _, m := range matches {
		tw.AppendRow(table.Row{
			m.Candidate.GroupID, m.Details.GroupName,
			strings.Join(m.Details.Formats, ", "),
			m.Details.Seeders, m.Details.Snatched,
		})
	}
	tw.Render()
	return nil
}

func init() {
	checkCmd.Flags().String("author", "", "author to cross-check against the hits")
	checkCmd.Flags().String("api-url", "", "target tracker ajax endpoint")
	checkCmd.Flags().Bool("title-only", false, "skip the author check when classifying")

	rootCmd.AddCommand(checkCmd)
}
