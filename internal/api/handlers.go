package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/market-returns/internal/analytics"
	"github.com/trogers1052/market-returns/internal/catalog"
	"github.com/trogers1052/market-returns/internal/marketdata"
)

const dateLayout = marketdata.DateLayout

// PriceSource supplies aligned closes for a set of tickers
type PriceSource interface {
	FetchCloses(ctx context.Context, req marketdata.Request) (*marketdata.Fetch, error)
}

// EventPublisher announces computed summaries
type EventPublisher interface {
	PublishReturnsComputed(ctx context.Context, start, end time.Time, summary analytics.ReturnSummary) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	source    PriceSource
	catalog   *catalog.Catalog
	publisher EventPublisher
	logger    *logrus.Entry
	now       func() time.Time
}

// NewHandler creates a new Handler. publisher may be nil.
func NewHandler(source PriceSource, cat *catalog.Catalog, publisher EventPublisher, log *logrus.Logger) *Handler {
	return &Handler{
		source:    source,
		catalog:   cat,
		publisher: publisher,
		logger:    log.WithField("component", "api"),
		now:       time.Now,
	}
}

// SummaryResponse is the body of GET /returns/summary
type SummaryResponse struct {
	Start    string                  `json:"start"`
	End      string                  `json:"end"`
	Policy   analytics.MissingPolicy `json:"policy"`
	Summary  analytics.ReturnSummary `json:"summary"`
	Warnings []marketdata.Warning    `json:"warnings"`
}

// PerformanceResponse is the body of GET /returns/performance
type PerformanceResponse struct {
	Start       string                      `json:"start"`
	End         string                      `json:"end"`
	Policy      analytics.MissingPolicy     `json:"policy"`
	Performance analytics.PerformanceSeries `json:"performance"`
	Warnings    []marketdata.Warning        `json:"warnings"`
}

// MonthlyResponse is the body of GET /returns/monthly/{symbol}
type MonthlyResponse struct {
	Symbol   string                `json:"symbol"`
	Status   string                `json:"status"`
	Start    string                `json:"start"`
	End      string                `json:"end"`
	Months   [12]string            `json:"months"`
	Years    []analytics.PivotYear `json:"years"`
	Warnings []marketdata.Warning  `json:"warnings"`
}

// Monthly pivot statuses
const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"
)

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetCatalog handles GET /catalog
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		respondJSON(w, http.StatusOK, h.catalog.All())
		return
	}

	cat := catalog.Category(strings.ToLower(category))
	if !cat.Valid() {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", category))
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.ByCategory(cat))
}

// GetSummary handles GET /returns/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := h.parseRange(q.Get("start"), q.Get("end"), 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	policy, err := analytics.ParseMissingPolicy(q.Get("policy"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	reference := start
	if s := q.Get("reference"); s != "" {
		if reference, err = time.Parse(dateLayout, s); err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid reference date %q", s))
			return
		}
	}

	fetch, ok := h.fetch(w, r, marketdata.Request{
		Tickers:  h.tickers(q.Get("tickers")),
		Start:    start,
		End:      end,
		Interval: marketdata.Daily,
		Policy:   policy,
	})
	if !ok {
		return
	}

	summary := analytics.ComputeSummary(fetch.Table, &reference)
	if h.publisher != nil && len(summary.Rows) > 0 {
		if err := h.publisher.PublishReturnsComputed(r.Context(), start, end, summary); err != nil {
			// Log error but don't fail the request
			h.logger.WithError(err).Warn("Failed to publish returns event")
		}
	}

	respondJSON(w, http.StatusOK, SummaryResponse{
		Start:    start.Format(dateLayout),
		End:      end.Format(dateLayout),
		Policy:   policy,
		Summary:  summary,
		Warnings: nonNil(fetch.Warnings),
	})
}

// GetPerformance handles GET /returns/performance
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := h.parseRange(q.Get("start"), q.Get("end"), 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	policy, err := analytics.ParseMissingPolicy(q.Get("policy"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	fetch, ok := h.fetch(w, r, marketdata.Request{
		Tickers:  h.tickers(q.Get("tickers")),
		Start:    start,
		End:      end,
		Interval: marketdata.Daily,
		Policy:   policy,
	})
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, PerformanceResponse{
		Start:       start.Format(dateLayout),
		End:         end.Format(dateLayout),
		Policy:      policy,
		Performance: analytics.ComputePerformanceSeries(fetch.Table),
		Warnings:    nonNil(fetch.Warnings),
	})
}

// GetMonthly handles GET /returns/monthly/{symbol}
func (h *Handler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(mux.Vars(r)["symbol"])
	q := r.URL.Query()
	start, end, err := h.parseRange(q.Get("start"), q.Get("end"), 5)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	fetch, ok := h.fetch(w, r, marketdata.Request{
		Tickers:  []string{symbol},
		Start:    start,
		End:      end,
		Interval: marketdata.Monthly,
	})
	if !ok {
		return
	}

	pivot := analytics.ComputeMonthlyPivot(fetch.Table.Observations(symbol))
	resp := MonthlyResponse{
		Symbol:   symbol,
		Status:   StatusOK,
		Start:    start.Format(dateLayout),
		End:      end.Format(dateLayout),
		Months:   analytics.MonthLabels,
		Years:    pivot.Percentages().Years,
		Warnings: nonNil(fetch.Warnings),
	}
	if pivot.Insufficient() {
		resp.Status = StatusInsufficientData
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) fetch(w http.ResponseWriter, r *http.Request, req marketdata.Request) (*marketdata.Fetch, bool) {
	if len(req.Tickers) == 0 {
		respondError(w, http.StatusBadRequest, "no tickers requested")
		return nil, false
	}

	fetch, err := h.source.FetchCloses(r.Context(), req)
	if errors.Is(err, marketdata.ErrInvalidRange) {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch closes")
		respondError(w, http.StatusInternalServerError, "failed to fetch prices")
		return nil, false
	}
	return fetch, true
}

// parseRange reads start and end dates. end defaults to today and start to
// end minus defaultYears.
func (h *Handler) parseRange(startParam, endParam string, defaultYears int) (time.Time, time.Time, error) {
	return marketdata.DateRange(startParam, endParam, defaultYears, h.now())
}

// tickers splits a comma separated list, defaulting to the catalog indices
func (h *Handler) tickers(param string) []string {
	if strings.TrimSpace(param) == "" {
		return h.catalog.Symbols(catalog.CategoryIndex)
	}

	var out []string
	for _, t := range strings.Split(param, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func nonNil(warnings []marketdata.Warning) []marketdata.Warning {
	if warnings == nil {
		return []marketdata.Warning{}
	}
	return warnings
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
