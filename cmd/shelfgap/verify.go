// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/shelfgap/internal/gazelle"
	"github.com/pdiddy/shelfgap/internal/library"
	"github.com/pdiddy/shelfgap/internal/secrets"
	"github.com/pdiddy/shelfgap/internal/verify"
	"github.com/pdiddy/shelfgap/pkg/types"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Classify library books against the target tracker",
	Long: `Verify searches the target tracker for every unchecked book in the
library and records one of four verdicts per book: match, no_match,
ambiguous, or error. Books that errored on a previous run are retried;
--force rechecks everything.

The tracker API key comes from the SHELFGAP_API_KEY environment variable
or the .env file. Searches are paced to the tracker's request budget, so
large libraries take a while.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	gcfg, err := gazelleConfig(cmd)
	if err != nil {
		return err
	}
	vcfg := verifyConfig(cmd)

	store, err := library.NewStore(libraryConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	client := gazelle.NewClient(gcfg)
	verifier := verify.NewVerifier(store, client, vcfg, os.Stdout)

	summary, err := verifier.Run(context.Background())
	if err != nil {
		return err
	}
	if summary.Errors > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d book(s) errored and will be retried next run\n", summary.Errors)
	}
	return nil
}

// gazelleConfig builds the tracker client settings from the config file
// and the loaded secrets.
func gazelleConfig(cmd *cobra.Command) (types.GazelleConfig, error) {
	cfg := types.GazelleConfig{
		BaseURL:     viper.GetString("gazelle.base_url"),
		MaxRequests: viper.GetInt("gazelle.max_requests"),
		RateWindow:  viper.GetDuration("gazelle.rate_window"),
		MaxRetries:  viper.GetInt("gazelle.max_retries"),
		CategoryID:  viper.GetInt("gazelle.category_id"),
	}
	cfg.Timeout = viper.GetDuration("gazelle.timeout")
	cfg.UserAgent = viper.GetString("gazelle.user_agent")

	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.BaseURL = v
	}
	if cfg.BaseURL == "" {
		return cfg, fmt.Errorf("target tracker API URL required: set --api-url or gazelle.base_url")
	}

	key, err := secrets.APIKey(loadedSecrets)
	if err != nil {
		return cfg, err
	}
	cfg.APIKey = key
	return cfg, nil
}

func verifyConfig(cmd *cobra.Command) types.VerifyConfig {
	cfg := types.VerifyConfig{Match: types.DefaultMatchConfig()}

	if v := viper.GetInt("match.title_prefix_words"); v > 0 {
		cfg.Match.TitlePrefixWords = v
	}
	if v := viper.GetInt("match.ebook_category_id"); v > 0 {
		cfg.Match.EbookCategoryID = v
	}
	if viper.IsSet("match.accept_missing_artists") {
		cfg.Match.AcceptMissingArtists = viper.GetBool("match.accept_missing_artists")
	}
	if viper.IsSet("match.title_only") {
		cfg.Match.TitleOnly = viper.GetBool("match.title_only")
	}

	cfg.MaxBooks, _ = cmd.Flags().GetInt("max-books")
	cfg.ForceRecheck, _ = cmd.Flags().GetBool("force")
	if cmd.Flags().Changed("title-only") {
		cfg.Match.TitleOnly, _ = cmd.Flags().GetBool("title-only")
	}
	return cfg
}

func init() {
	verifyCmd.Flags().String("api-url", "", "target tracker ajax endpoint")
	verifyCmd.Flags().Int("max-books", 0, "books to check this run (0 = all pending)")
	verifyCmd.Flags().Bool("force", false, "recheck books that already have a verdict")
	verifyCmd.Flags().Bool("title-only", false, "skip the author check when classifying")

	rootCmd.AddCommand(verifyCmd)
}
