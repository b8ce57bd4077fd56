package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/market-returns/internal/analytics"
	"github.com/trogers1052/market-returns/internal/config"
	"github.com/trogers1052/market-returns/internal/models"
)

// YahooProvider fetches price history from the Yahoo Finance chart API
type YahooProvider struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Entry
}

// chartResponse is the payload of /v8/finance/chart
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		Currency  string `json:"currency"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// NewYahooProvider creates a provider from market data configuration
func NewYahooProvider(cfg config.MarketDataConfig, log *logrus.Logger) *YahooProvider {
	return &YahooProvider{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.YahooBaseURL, "/"),
		logger:     log.WithField("component", "yahoo"),
	}
}

// History returns the split and dividend adjusted closes of symbol between
// start and end, both inclusive
func (y *YahooProvider) History(ctx context.Context, symbol string, start, end time.Time, interval Interval) ([]analytics.Observation, error) {
	result, err := y.chart(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}

	closes := result.closes()
	obs := make([]analytics.Observation, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		obs = append(obs, analytics.Observation{Date: result.tradingDate(ts), Close: *closes[i]})
	}
	return obs, nil
}

// Bars returns the daily OHLCV bars of symbol, for storage. Unlike History,
// Close is the raw quote close so it stays within the bar's low and high.
func (y *YahooProvider) Bars(ctx context.Context, symbol string, start, end time.Time) ([]*models.PriceDataDaily, error) {
	result, err := y.chart(ctx, symbol, start, end, Daily)
	if err != nil {
		return nil, err
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}

	q := result.Indicators.Quote[0]
	var bars []*models.PriceDataDaily
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil || *q.Close[i] <= 0 {
			continue
		}
		bar := &models.PriceDataDaily{
			Symbol: symbol,
			Date:   result.tradingDate(ts),
			Open:   valueAt(q.Open, i),
			High:   valueAt(q.High, i),
			Low:    valueAt(q.Low, i),
			Close:  decimal.NewFromFloat(*q.Close[i]),
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (y *YahooProvider) chart(ctx context.Context, symbol string, start, end time.Time, interval Interval) (*chartResult, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprint(start.Unix()))
	// period2 is exclusive
	params.Set("period2", fmt.Sprint(end.AddDate(0, 0, 1).Unix()))
	params.Set("interval", string(interval))
	params.Set("events", "div,split")
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", symbol, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; market-returns/1.0)")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response for %s: %w", symbol, err)
	}
	y.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"interval": interval,
		"status":   resp.StatusCode,
	}).Debug("Fetched chart")

	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("cannot fetch %s: %s", symbol, resp.Status)
		}
		return nil, fmt.Errorf("failed to decode chart for %s: %w", symbol, err)
	}
	if e := payload.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart error for %s: %s: %s", symbol, e.Code, e.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot fetch %s: %s", symbol, resp.Status)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}
	return &payload.Chart.Result[0], nil
}

// closes prefers adjusted closes when the API supplies them
func (r *chartResult) closes() []*float64 {
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) > 0 {
		return r.Indicators.AdjClose[0].AdjClose
	}
	if len(r.Indicators.Quote) > 0 {
		return r.Indicators.Quote[0].Close
	}
	return nil
}

// tradingDate maps a bar timestamp to its calendar date at the exchange
func (r *chartResult) tradingDate(ts int64) time.Time {
	local := time.Unix(ts+r.Meta.GMTOffset, 0).UTC()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func valueAt(values []*float64, i int) decimal.Decimal {
	if i >= len(values) || values[i] == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*values[i])
}
