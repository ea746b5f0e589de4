// Package commands defines the raceboard CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/regattahq/raceboard/internal/config"
	"github.com/regattahq/raceboard/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "raceboard",
	Short: "Sailing race-results and notice-board scraping service",
	Long: `raceboard scrapes sailing event pages (results, standings,
entries, documents, notice board), normalizes them into stable
entities, and serves them over HTTP with caching and scheduled
refresh.`,
	SilenceUsage: true,
}

// Execute runs the CLI. Called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./raceboard.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newScrapeCmd())
	rootCmd.AddCommand(newSyncCmd())
}

// loadEnvironment loads config and builds the logger, shared by every
// subcommand.
func loadEnvironment() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}
