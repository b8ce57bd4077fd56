package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// window is a trailing return measured from the last row back to row n-back.
// It is only defined once the table holds at least minRows rows.
type window struct {
	back    int
	minRows int
}

// Week and month require one row beyond their lookback.
var (
	windowDay   = window{back: 2, minRows: 2}
	windowWeek  = window{back: 5, minRows: 6}
	windowMonth = window{back: 21, minRows: 22}
)

// SummaryRow holds the headline returns of one instrument, in percent.
// A nil field means the table does not hold enough history for it.
type SummaryRow struct {
	Symbol               string   `json:"symbol"`
	LastPrice            *float64 `json:"last_price"`
	ReturnSinceReference *float64 `json:"return_since_reference"`
	Return1Day           *float64 `json:"return_1d"`
	Return1Week          *float64 `json:"return_1w"`
	Return1Month         *float64 `json:"return_1m"`
	// ReturnSinceTableStart compares the last close with the first row of the
	// table. Dashboards label it as the one year return; callers wanting a
	// calendar year must bound the table to one year themselves.
	ReturnSinceTableStart *float64 `json:"return_since_table_start"`
}

// ReturnSummary is one SummaryRow per instrument in table column order
type ReturnSummary struct {
	Reference *time.Time   `json:"reference,omitempty"`
	Rows      []SummaryRow `json:"rows"`
}

// ComputeSummary computes the headline returns of every instrument in prices.
// When reference is set, ReturnSinceReference compares the last close with
// the first row dated on or after it. Insufficient history yields nil cells,
// never an error. A table without instruments or rows yields no rows.
func ComputeSummary(prices *PriceTable, reference *time.Time) ReturnSummary {
	summary := ReturnSummary{Rows: []SummaryRow{}}
	if reference != nil {
		ref := *reference
		summary.Reference = &ref
	}
	if prices.Empty() {
		return summary
	}

	refIndex := -1
	if reference != nil {
		refIndex = prices.IndexOnOrAfter(*reference)
	}

	for _, symbol := range prices.Symbols {
		col := prices.Column(symbol)
		row := SummaryRow{Symbol: symbol}
		n := len(col)
		if n == 0 || math.IsNaN(col[n-1]) {
			summary.Rows = append(summary.Rows, row)
			continue
		}

		last := col[n-1]
		row.LastPrice = roundedPtr(last)
		row.Return1Day = trailingReturn(col, windowDay)
		row.Return1Week = trailingReturn(col, windowWeek)
		row.Return1Month = trailingReturn(col, windowMonth)
		row.ReturnSinceTableStart = percentChange(last, col[0])
		if refIndex >= 0 {
			row.ReturnSinceReference = percentChange(last, col[refIndex])
		}
		summary.Rows = append(summary.Rows, row)
	}
	return summary
}

func trailingReturn(col []float64, w window) *float64 {
	n := len(col)
	if n < w.minRows {
		return nil
	}
	return percentChange(col[n-1], col[n-w.back])
}

// percentChange returns (last/base - 1) * 100 rounded to two decimals, or nil
// when either close is unavailable.
func percentChange(last, base float64) *float64 {
	if math.IsNaN(last) || math.IsNaN(base) || base == 0 {
		return nil
	}
	return roundedPtr((last/base - 1) * 100)
}

// InstrumentPerformance is the rebased series of one instrument
type InstrumentPerformance struct {
	Symbol string     `json:"symbol"`
	Values []*float64 `json:"values"`
}

// PerformanceSeries holds every instrument rebased to its first close, aligned
// to Dates
type PerformanceSeries struct {
	Dates  []time.Time             `json:"dates"`
	Series []InstrumentPerformance `json:"series"`
}

// ComputePerformanceSeries rebases each instrument on the first row of the
// table: value[i] = (p[i]/p[0] - 1) * 100 at full precision. Cells without a
// close are nil, and so is every cell of an instrument whose first row is
// missing. An instrument with no closes gets an empty series.
func ComputePerformanceSeries(prices *PriceTable) PerformanceSeries {
	perf := PerformanceSeries{Dates: []time.Time{}, Series: []InstrumentPerformance{}}
	if prices == nil {
		return perf
	}
	perf.Dates = append(perf.Dates, prices.Dates...)

	for _, symbol := range prices.Symbols {
		col := prices.Column(symbol)
		if !hasClose(col) {
			perf.Series = append(perf.Series, InstrumentPerformance{Symbol: symbol, Values: []*float64{}})
			continue
		}

		values := make([]*float64, len(col))
		base := col[0]
		if !math.IsNaN(base) && base != 0 {
			for i, p := range col {
				if math.IsNaN(p) {
					continue
				}
				v := (p/base - 1) * 100
				values[i] = &v
			}
		}
		perf.Series = append(perf.Series, InstrumentPerformance{Symbol: symbol, Values: values})
	}
	return perf
}

func hasClose(col []float64) bool {
	for _, v := range col {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Round2 rounds v to two decimals, half away from zero, on its shortest
// decimal representation. NaN and infinities are returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func roundedPtr(v float64) *float64 {
	r := Round2(v)
	return &r
}
