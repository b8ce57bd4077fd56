package models

import (
	"time"

	"github.com/trogers1052/market-returns/internal/analytics"
)

// Event type constants
const (
	EventTypePriceBar        = "PRICE_BAR"
	EventTypeReturnsComputed = "RETURNS_COMPUTED"
)

// PriceBarEvent is a daily bar published on the prices topic
type PriceBarEvent struct {
	EventType string       `json:"event_type"`
	Source    string       `json:"source"`
	Data      PriceBarData `json:"data"`
}

// PriceBarData carries prices as strings to keep their exact decimal form
type PriceBarData struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"` // YYYY-MM-DD
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume int64  `json:"volume"`
	VWAP   string `json:"vwap,omitempty"`
}

// ReturnsComputedEvent announces a freshly computed return summary
type ReturnsComputedEvent struct {
	EventID   string                  `json:"event_id"`
	EventType string                  `json:"event_type"`
	Start     string                  `json:"start"`
	End       string                  `json:"end"`
	Summary   analytics.ReturnSummary `json:"summary"`
	Timestamp time.Time               `json:"timestamp"`
}
