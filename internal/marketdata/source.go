package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/market-returns/internal/analytics"
	"github.com/trogers1052/market-returns/internal/cache"
)

// Interval is the sampling frequency of a price history
type Interval string

const (
	Daily   Interval = "1d"
	Monthly Interval = "1mo"
)

// ErrInvalidRange is returned when a request ends before it starts
var ErrInvalidRange = errors.New("end date is before start date")

// Provider supplies the closing price history of one instrument
type Provider interface {
	History(ctx context.Context, symbol string, start, end time.Time, interval Interval) ([]analytics.Observation, error)
}

// Request describes a batch of closes to fetch
type Request struct {
	Tickers  []string
	Start    time.Time
	End      time.Time
	Interval Interval
	Policy   analytics.MissingPolicy
}

// Warning reports a ticker left out of a fetch
type Warning struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Fetch is the aligned result of FetchCloses
type Fetch struct {
	Table    *analytics.PriceTable
	Warnings []Warning
}

// cachedFetch is the raw, unaligned form kept in the cache
type cachedFetch struct {
	Series   map[string][]analytics.Observation `json:"series"`
	Warnings []Warning                          `json:"warnings"`
}

// Source fetches closes for many tickers, isolating per-ticker failures
type Source struct {
	provider Provider
	store    cache.Store
	ttl      time.Duration
	logger   *logrus.Entry
}

// NewSource creates a Source. store may be nil to disable caching.
func NewSource(provider Provider, store cache.Store, ttl time.Duration, log *logrus.Logger) *Source {
	return &Source{
		provider: provider,
		store:    store,
		ttl:      ttl,
		logger:   log.WithField("component", "price-source"),
	}
}

// FetchCloses downloads the requested tickers and aligns them into one table.
// Tickers that fail or return no data are omitted and reported as warnings.
func (s *Source) FetchCloses(ctx context.Context, req Request) (*Fetch, error) {
	if req.End.Before(req.Start) {
		return nil, ErrInvalidRange
	}
	if req.Interval == "" {
		req.Interval = Daily
	}
	tickers := uniqueTickers(req.Tickers)

	raw, hit := s.fromCache(ctx, tickers, req)
	if !hit {
		var err error
		raw, err = s.fetchAll(ctx, tickers, req)
		if err != nil {
			return nil, err
		}
		s.toCache(ctx, tickers, req, raw)
	}

	order := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if _, ok := raw.Series[t]; ok {
			order = append(order, t)
		}
	}
	return &Fetch{
		Table:    analytics.Align(raw.Series, order, req.Policy),
		Warnings: raw.Warnings,
	}, nil
}

func (s *Source) fetchAll(ctx context.Context, tickers []string, req Request) (*cachedFetch, error) {
	series := make([][]analytics.Observation, len(tickers))
	errs := make([]error, len(tickers))

	var wg sync.WaitGroup
	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			series[i], errs[i] = s.provider.History(ctx, ticker, req.Start, req.End, req.Interval)
		}(i, ticker)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch closes: %w", err)
	}

	out := &cachedFetch{Series: make(map[string][]analytics.Observation, len(tickers))}
	for i, ticker := range tickers {
		switch {
		case errs[i] != nil:
			s.logger.WithError(errs[i]).WithField("symbol", ticker).Warn("Skipping ticker")
			out.Warnings = append(out.Warnings, Warning{Symbol: ticker, Reason: errs[i].Error()})
		case len(series[i]) == 0:
			s.logger.WithField("symbol", ticker).Warn("No data for ticker")
			out.Warnings = append(out.Warnings, Warning{Symbol: ticker, Reason: "no data in range"})
		default:
			out.Series[ticker] = series[i]
		}
	}
	return out, nil
}

func (s *Source) fromCache(ctx context.Context, tickers []string, req Request) (*cachedFetch, bool) {
	if s.store == nil {
		return nil, false
	}
	var cached cachedFetch
	found, err := s.store.Get(ctx, cacheKey(tickers, req), &cached)
	if err != nil {
		s.logger.WithError(err).Warn("Price cache read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	if cached.Series == nil {
		cached.Series = map[string][]analytics.Observation{}
	}
	return &cached, true
}

func (s *Source) toCache(ctx context.Context, tickers []string, req Request, raw *cachedFetch) {
	if s.store == nil || s.ttl <= 0 {
		return
	}
	if err := s.store.Set(ctx, cacheKey(tickers, req), raw, s.ttl); err != nil {
		s.logger.WithError(err).Warn("Price cache write failed")
	}
}

// cacheKey identifies a fetch independently of ticker order and policy
func cacheKey(tickers []string, req Request) string {
	sorted := append([]string(nil), tickers...)
	sort.Strings(sorted)
	return fmt.Sprintf("closes:%s:%s:%s:%s",
		req.Interval,
		req.Start.Format("2006-01-02"),
		req.End.Format("2006-01-02"),
		strings.Join(sorted, ","),
	)
}

func uniqueTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
