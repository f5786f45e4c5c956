// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the shelfgap CLI. shelfgap keeps a
// local library of eBook records harvested from a source tracker and
// cross-references it against a target tracker's search API to find books
// worth uploading.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/shelfgap/internal/secrets"
	"github.com/pdiddy/shelfgap/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .env and the environment at
// startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the shelfgap CLI.
var rootCmd = &cobra.Command{
	Use:   "shelfgap",
	Short: "Find gaps between a book tracker and your local library",
	Long: `shelfgap harvests eBook metadata from a source tracker into a local
SQLite library, checks each book against a target tracker's search API, and
reports the books the target tracker is missing.

The workflow is three subcommands run in order: harvest collects records,
verify classifies them against the target tracker, and candidates lists the
books that came back without a match.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		s, err := secrets.Load(envFile)
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./shelfgap.yaml or ~/.config/shelfgap/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file holding the tracker API key")
	rootCmd.PersistentFlags().String("db", "", "SQLite library file (default: shelfgap.db)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("shelfgap")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "shelfgap"))
		}
	}

	viper.SetEnvPrefix("SHELFGAP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// libraryConfig resolves the SQLite path from the --db flag, then the
// config file, then the default.
func libraryConfig(cmd *cobra.Command) types.LibraryConfig {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = viper.GetString("library.path")
	}
	return types.LibraryConfig{Path: path}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
