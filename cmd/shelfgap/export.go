// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/shelfgap/internal/library"
	"github.com/pdiddy/shelfgap/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library to YAML or JSON",
	Long: `Export writes the full library, including any recorded verdicts, to
a file. Use --status to export one verdict class, e.g. --status no_match
for a shareable upload-candidate list.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	status, _ := cmd.Flags().GetString("status")

	switch status {
	case "", string(types.StatusMatch), string(types.StatusNoMatch),
		string(types.StatusAmbiguous), string(types.StatusError):
	default:
		return fmt.Errorf("unknown status %q: use match, no_match, ambiguous, or error", status)
	}

	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := library.ExportOptions{Status: types.MatchStatus(status)}

	switch format {
	case "yaml", "":
		if out == "" {
			out = "shelfgap-export.yaml"
		}
		if err := store.ExportYAML(context.Background(), out, opts); err != nil {
			return err
		}
	case "json":
		if out == "" {
			out = "shelfgap-export.json"
		}
		if err := store.ExportJSON(context.Background(), out, opts); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	fmt.Println("Exported to", out)
	return nil
}

func init() {
	exportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	exportCmd.Flags().String("out", "", "output file (default: shelfgap-export.<format>)")
	exportCmd.Flags().String("status", "", "only export books with this verdict")

	rootCmd.AddCommand(exportCmd)
}
