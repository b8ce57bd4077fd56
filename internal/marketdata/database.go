package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/market-returns/internal/analytics"
	"github.com/trogers1052/market-returns/internal/models"
)

// PriceReader is the part of the price repository the database provider reads
type PriceReader interface {
	GetPriceDataRange(symbol string, startDate, endDate time.Time) ([]*models.PriceDataDaily, error)
}

// DatabaseProvider serves history from the price_data_daily table
type DatabaseProvider struct {
	reader PriceReader
}

// NewDatabaseProvider creates a provider over a price repository
func NewDatabaseProvider(reader PriceReader) *DatabaseProvider {
	return &DatabaseProvider{reader: reader}
}

// History returns stored closes; the monthly interval keeps each month's last close
func (d *DatabaseProvider) History(ctx context.Context, symbol string, start, end time.Time, interval Interval) ([]analytics.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := d.reader.GetPriceDataRange(symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", symbol, err)
	}

	obs := make([]analytics.Observation, 0, len(rows))
	for _, row := range rows {
		obs = append(obs, row.Observation())
	}
	if interval == Monthly {
		obs = analytics.ResampleMonthEnd(obs)
	}
	return obs, nil
}
