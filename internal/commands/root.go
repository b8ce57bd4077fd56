package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/trogers1052/market-returns/internal/config"
	"github.com/trogers1052/market-returns/internal/logger"
)

var (
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "returns",
	Short: "Market return analytics",
	Long: `Computes return analytics over closing prices of indices, commodities,
currencies and stocks.

Features:
• Headline returns: last price, 1 day, 1 week, 1 month and since a reference date
• Performance series rebased to 0% at the first close
• Monthly return pivots with compounded annual totals
• Yahoo Finance or PostgreSQL price sources with an optional Redis cache`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
}

// loadConfig reads the environment and builds the logger, applying global flags
func loadConfig(ctx context.Context) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}
