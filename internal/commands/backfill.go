package commands

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/trogers1052/market-returns/internal/catalog"
	"github.com/trogers1052/market-returns/internal/database"
	"github.com/trogers1052/market-returns/internal/marketdata"
)

var (
	backfillTickers  []string
	backfillCategory string
	backfillStart    string
	backfillEnd      string
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill daily prices into PostgreSQL",
	Long: `Download daily bars from Yahoo Finance and store them in price_data_daily,
so the database provider can serve them.

Examples:
  # Backfill one year of the catalog indices
  returns backfill

  # Backfill ten years of two stocks
  returns backfill --tickers PETR4.SA,VALE3.SA --start 2014-01-01`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().StringSliceVarP(&backfillTickers, "tickers", "t", nil, "Tickers to backfill (default: catalog category)")
	backfillCmd.Flags().StringVarP(&backfillCategory, "category", "c", string(catalog.CategoryIndex), "Catalog category used when no tickers are given")
	backfillCmd.Flags().StringVar(&backfillStart, "start", "", "Start date YYYY-MM-DD (default: one year before end)")
	backfillCmd.Flags().StringVar(&backfillEnd, "end", "", "End date YYYY-MM-DD (default: today)")

	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	start, end, err := marketdata.DateRange(backfillStart, backfillEnd, 1, time.Now())
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	tickers, err := resolveTickers(cfg.MarketData.CatalogPath, backfillTickers, backfillCategory)
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	yahoo := marketdata.NewYahooProvider(cfg.MarketData, log)
	stored, failed := 0, 0
	for _, symbol := range tickers {
		entry := log.WithField("symbol", symbol)
		bars, err := yahoo.Bars(cmd.Context(), symbol, start, end)
		if err != nil {
			if cmd.Context().Err() != nil {
				return cmd.Context().Err()
			}
			entry.WithError(err).Warn("Failed to download bars")
			failed++
			continue
		}
		if err := db.CreatePriceDataBatch(bars); err != nil {
			entry.WithError(err).Error("Failed to store bars")
			failed++
			continue
		}
		stored += len(bars)
		entry.WithField("bars", len(bars)).Info("Backfilled")
	}

	log.WithFields(logrus.Fields{
		"tickers": len(tickers),
		"bars":    stored,
		"failed":  failed,
	}).Info("Backfill complete")
	if failed == len(tickers) && failed > 0 {
		return fmt.Errorf("backfill failed for every ticker")
	}
	return nil
}
