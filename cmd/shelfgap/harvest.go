// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/shelfgap/internal/harvest"
	"github.com/pdiddy/shelfgap/internal/library"
	"github.com/pdiddy/shelfgap/pkg/types"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Collect eBook records from the source tracker",
	Long: `Harvest walks the configured browse searches on the source tracker,
visits every detail page it has not stored yet, and saves the parsed
records into the local library. Already-known detail URLs are skipped, so
repeated runs only pick up new listings.

Searches come from the config file's harvest.searches list; a single
ad-hoc search can be given with --label, --tags, and --filetypes.`,
	RunE: runHarvest,
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := harvestConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("source tracker base URL required: set --base-url or harvest.base_url")
	}
	if len(cfg.Searches) == 0 {
		return fmt.Errorf("no searches configured: set harvest.searches or --tags")
	}

	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	crawler := harvest.NewCrawler(store, cfg, os.Stdout)
	summary, err := crawler.Run(context.Background())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d detail page(s) failed", summary.Failed)
	}
	return nil
}

// harvestConfig layers the config file's harvest section under the
// command's flags.
func harvestConfig(cmd *cobra.Command) (types.HarvestConfig, error) {
	cfg := types.DefaultHarvestConfig()

	if v := viper.GetString("harvest.base_url"); v != "" {
		cfg.BaseURL = v
	}
	if v := viper.GetDuration("harvest.min_delay"); v > 0 {
		cfg.MinDelay = v
	}
	if v := viper.GetDuration("harvest.max_delay"); v > 0 {
		cfg.MaxDelay = v
	}
	if v := viper.GetInt("harvest.pages_before_long_pause"); v > 0 {
		cfg.PagesBeforeLongPause = v
	}
	if v := viper.GetDuration("harvest.long_pause"); v > 0 {
		cfg.LongPause = v
	}
	if v := viper.GetString("harvest.user_agent"); v != "" {
		cfg.UserAgent = v
	}
	if v := viper.GetDuration("harvest.timeout"); v > 0 {
		cfg.Timeout = v
	}

	specs, err := searchesFromConfig(viper.Get("harvest.searches"))
	if err != nil {
		return cfg, err
	}
	cfg.Searches = specs

	if v, _ := cmd.Flags().GetString("base-url"); v != "" {
		cfg.BaseURL = v
	}
	if v, _ := cmd.Flags().GetInt("max-pages"); v > 0 {
		cfg.MaxPagesPerSearch = v
	}
	if v, _ := cmd.Flags().GetInt("max-records"); v >= 0 && cmd.Flags().Changed("max-records") {
		cfg.MaxRecordsTotal = v
	}
	if v, _ := cmd.Flags().GetDuration("min-delay"); v > 0 {
		cfg.MinDelay = v
	}
	if v, _ := cmd.Flags().GetDuration("max-delay"); v > 0 {
		cfg.MaxDelay = v
	}

	// An ad-hoc search from flags replaces the configured list.
	if tags, _ := cmd.Flags().GetString("tags"); tags != "" {
		label, _ := cmd.Flags().GetString("label")
		category, _ := cmd.Flags().GetString("category")
		language, _ := cmd.Flags().GetString("language")
		filetypes, _ := cmd.Flags().GetString("filetypes")
		if label == "" {
			label = tags
		}
		cfg.Searches = []types.SearchSpec{{
			Label:     label,
			Category:  category,
			Language:  language,
			Tags:      splitCommaList(tags),
			Filetypes: splitCommaList(filetypes),
		}}
	}

	return cfg, nil
}

// searchesFromConfig decodes the harvest.searches config list. viper hands
// the YAML back as []any of map[string]any; each entry needs at least a
// label.
func searchesFromConfig(raw any) ([]types.SearchSpec, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("harvest.searches must be a list")
	}

	specs := make([]types.SearchSpec, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("harvest.searches[%d]: expected a mapping", i)
		}
		spec := types.SearchSpec{
			Label:     stringAt(entry, "label"),
			Category:  stringAt(entry, "category"),
			Language:  stringAt(entry, "language"),
			Tags:      stringsAt(entry, "tags"),
			Filetypes: stringsAt(entry, "filetypes"),
		}
		if spec.Label == "" {
			return nil, fmt.Errorf("harvest.searches[%d]: label required", i)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func stringAt(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func stringsAt(m map[string]any, key string) []string {
	list, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func init() {
	harvestCmd.Flags().String("base-url", "", "source tracker root URL")
	harvestCmd.Flags().Int("max-pages", 0, "result pages per search (0 = config default)")
	harvestCmd.Flags().Int("max-records", -1, "new records per run (0 = unlimited)")
	harvestCmd.Flags().Duration("min-delay", 0, "minimum pause between detail pages")
	harvestCmd.Flags().Duration("max-delay", 0, "maximum pause between detail pages")
	harvestCmd.Flags().String("label", "", "label for an ad-hoc search")
	harvestCmd.Flags().String("category", "eBooks", "browse category for an ad-hoc search")
	harvestCmd.Flags().String("language", "English", "browse language for an ad-hoc search")
	harvestCmd.Flags().String("tags", "", "comma-separated tags for an ad-hoc search")
	harvestCmd.Flags().String("filetypes", "", "comma-separated filetypes for an ad-hoc search")

	rootCmd.AddCommand(harvestCmd)
}
