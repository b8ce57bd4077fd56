package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/market-returns/internal/analytics"
)

// PriceDataDaily is one stored daily OHLCV bar of an instrument. Close is
// split and dividend adjusted when the bar came from a backfill.
type PriceDataDaily struct {
	ID        int             `json:"id"`
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	VWAP      decimal.Decimal `json:"vwap,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Observation returns the bar's close as an analytics observation
func (p *PriceDataDaily) Observation() analytics.Observation {
	return analytics.Observation{Date: p.Date, Close: p.Close.InexactFloat64()}
}
