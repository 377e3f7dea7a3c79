package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/ibdash/pkg/config"
	"github.com/wonny/ibdash/pkg/logger"
)

var (
	// Global flags
	verbose bool
	dryRun  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ibdash",
	Short: "IBKR Client Portal trading dashboard",
	Long: `ibdash builds, validates and places orders through the
Interactive Brokers Client Portal gateway and serves the dashboard API.

Usage:
  go run ./cmd/ibdash [command]

Examples:
  go run ./cmd/ibdash api
  go run ./cmd/ibdash order preview --symbol EURUSD --side BUY --size 1 --type LMT --limit 1.085
  go run ./cmd/ibdash context EURUSD
  go run ./cmd/ibdash hwm show`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "route orders to the paper channel (overrides TRADING_MODE)")
}

// loadConfig reads the environment and applies global flag overrides
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if dryRun {
		cfg.Trading.Mode = config.ModeDryRun
	}
	return cfg, logger.New(cfg), nil
}
