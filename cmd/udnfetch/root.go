package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pevans/udnfetch/config"
	"github.com/pevans/udnfetch/logger"
	"github.com/pevans/udnfetch/runs"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// logLevel overrides the configured log level.
	logLevel string

	// cfg is the configuration resolved before any subcommand runs.
	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "udnfetch",
		Short: "Crawl the UDN news archive",
		Long: `udnfetch searches the UDN news archive for a keyword and date range,
collects every listed article and exports the records as CSV.

Every run is archived locally and can be listed, exported or served over
HTTP with udnfetch-api.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if logLevel != "" {
				loaded.LogLevel = logLevel
			}
			cfg = loaded
			logger.Init(cfg.LogLevel, cfg.Environment)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command
func Execute() error {
	// Load .env file early so environment variables are available
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ~/.udnfetch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	rootCmd.AddCommand(scrapeCommand())
	rootCmd.AddCommand(runsCommand())
}

// openStore opens the run archive named by the configuration.
func openStore() (*runs.Store, error) {
	store, err := runs.NewStore(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open run archive: %w", err)
	}
	return store, nil
}
