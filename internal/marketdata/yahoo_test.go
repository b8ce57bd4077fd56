package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/market-returns/internal/config"
	"github.com/trogers1052/market-returns/internal/logger"
)

const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "currency": "USD", "gmtoffset": -14400},
      "timestamp": [1704205800, 1704292200, 1704378600, 1704465000],
      "indicators": {
        "quote": [{
          "open":   [187.15, 184.22, null, 181.99],
          "high":   [188.44, 185.88, null, 182.76],
          "low":    [183.89, 183.43, null, 180.17],
          "close":  [185.64, 184.25, null, 181.18],
          "volume": [82488700, 58414500, null, 62303300]
        }],
        "adjclose": [{"adjclose": [184.73, 183.35, null, 180.29]}]
      }
    }],
    "error": null
  }
}`

func newTestYahoo(t *testing.T, handler http.HandlerFunc) *YahooProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewYahooProvider(config.MarketDataConfig{
		YahooBaseURL: server.URL + "/",
		Timeout:      5 * time.Second,
	}, logger.Discard())
}

func TestYahooProvider_History(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	t.Run("decodes adjusted closes and skips nulls", func(t *testing.T) {
		var gotPath, gotInterval, gotPeriod2 string
		y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotInterval = r.URL.Query().Get("interval")
			gotPeriod2 = r.URL.Query().Get("period2")
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(chartFixture))
		})

		obs, err := y.History(context.Background(), "AAPL", start, end, Daily)
		require.NoError(t, err)

		assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
		assert.Equal(t, "1d", gotInterval)
		assert.Equal(t, "1704499200", gotPeriod2, "period2 should be the day after end")

		require.Len(t, obs, 3)
		assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), obs[0].Date)
		assert.Equal(t, 184.73, obs[0].Close)
		assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), obs[1].Date)
		assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), obs[2].Date)
		assert.Equal(t, 180.29, obs[2].Close)
	})

	t.Run("falls back to raw closes without adjclose", func(t *testing.T) {
		y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[1704153600],
				"indicators":{"quote":[{"close":[100.5]}]}}],"error":null}}`))
		})

		obs, err := y.History(context.Background(), "^GSPC", start, end, Monthly)
		require.NoError(t, err)
		require.Len(t, obs, 1)
		assert.Equal(t, 100.5, obs[0].Close)
	})

	t.Run("chart error becomes an error", func(t *testing.T) {
		y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		})

		_, err := y.History(context.Background(), "NOPE", start, end, Daily)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "symbol may be delisted")
	})

	t.Run("non JSON failure reports status", func(t *testing.T) {
		y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		})

		_, err := y.History(context.Background(), "AAPL", start, end, Daily)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("empty result is an error", func(t *testing.T) {
		y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
		})

		_, err := y.History(context.Background(), "AAPL", start, end, Daily)
		assert.Error(t, err)
	})
}

func TestYahooProvider_Bars(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	t.Run("stores raw OHLCV and skips nulls", func(t *testing.T) {
		y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(chartFixture))
		})

		bars, err := y.Bars(context.Background(), "AAPL", start, end)
		require.NoError(t, err)
		require.Len(t, bars, 3)

		first := bars[0]
		assert.Equal(t, "AAPL", first.Symbol)
		assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), first.Date)
		assert.Equal(t, "187.15", first.Open.String())
		assert.Equal(t, "188.44", first.High.String())
		assert.Equal(t, "183.89", first.Low.String())
		assert.Equal(t, "185.64", first.Close.String())
		assert.Equal(t, int64(82488700), first.Volume)
		assert.Equal(t, "181.18", bars[2].Close.String())
	})

	t.Run("close ignores adjusted closes outside the bar range", func(t *testing.T) {
		y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[1704153600],
				"indicators":{"quote":[{"open":[99],"high":[101],"low":[98],"close":[100],"volume":[1000]}],
				"adjclose":[{"adjclose":[90]}]}}],"error":null}}`))
		})

		bars, err := y.Bars(context.Background(), "VALE", start, end)
		require.NoError(t, err)
		require.Len(t, bars, 1)

		bar := bars[0]
		assert.Equal(t, "100", bar.Close.String())
		assert.True(t, bar.Close.GreaterThanOrEqual(bar.Low))
		assert.True(t, bar.Close.LessThanOrEqual(bar.High))

		obs, err := y.History(context.Background(), "VALE", start, end, Daily)
		require.NoError(t, err)
		require.Len(t, obs, 1)
		assert.Equal(t, 90.0, obs[0].Close)
	})
}
