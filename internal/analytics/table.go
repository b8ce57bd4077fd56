package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Observation is the closing price of an instrument on one trading date
type Observation struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// MissingPolicy controls how Align treats dates where some instrument has no close
type MissingPolicy string

const (
	// DropIncomplete removes every date where a non-empty instrument has no close
	DropIncomplete MissingPolicy = "drop"
	// KeepMissing keeps every date and leaves the gaps as unavailable cells
	KeepMissing MissingPolicy = "keep"
)

// ParseMissingPolicy maps a user supplied policy name, defaulting to DropIncomplete
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(s) {
	case "", DropIncomplete:
		return DropIncomplete, nil
	case KeepMissing:
		return KeepMissing, nil
	}
	return "", fmt.Errorf("unknown missing value policy: %q", s)
}

// PriceTable holds closing prices for several instruments aligned on one
// ascending date index. Missing cells are NaN.
type PriceTable struct {
	Dates   []time.Time
	Symbols []string
	closes  map[string][]float64
}

// NewPriceTable builds a table from already aligned columns. Every column
// must have one value per date and dates must be strictly increasing.
func NewPriceTable(dates []time.Time, symbols []string, columns map[string][]float64) (*PriceTable, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("dates are not strictly increasing at row %d", i)
		}
	}

	t := &PriceTable{
		Dates:   append([]time.Time(nil), dates...),
		Symbols: make([]string, 0, len(symbols)),
		closes:  make(map[string][]float64, len(symbols)),
	}
	for _, symbol := range symbols {
		if _, dup := t.closes[symbol]; dup {
			return nil, fmt.Errorf("duplicate symbol %s", symbol)
		}
		col, ok := columns[symbol]
		if !ok {
			col = nanColumn(len(dates))
		}
		if len(col) != len(dates) {
			return nil, fmt.Errorf("column %s has %d values for %d dates", symbol, len(col), len(dates))
		}
		t.Symbols = append(t.Symbols, symbol)
		t.closes[symbol] = append([]float64(nil), col...)
	}
	return t, nil
}

// Align merges per-instrument series into a PriceTable on the union of their
// dates. Columns follow order; symbols missing from order are appended sorted.
// Duplicate dates within one series keep the last close. An instrument with
// no observations stays in the table as an all-missing column and never
// causes rows to be dropped.
func Align(series map[string][]Observation, order []string, policy MissingPolicy) *PriceTable {
	symbols := columnOrder(series, order)

	byDate := make(map[int64]time.Time)
	perSymbol := make(map[string]map[int64]float64, len(symbols))
	for _, symbol := range symbols {
		values := make(map[int64]float64, len(series[symbol]))
		for _, obs := range series[symbol] {
			d := obs.Date.UTC()
			key := d.UnixNano()
			byDate[key] = d
			values[key] = obs.Close
		}
		perSymbol[symbol] = values
	}

	keys := make([]int64, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	t := &PriceTable{
		Symbols: symbols,
		closes:  make(map[string][]float64, len(symbols)),
	}
	for _, key := range keys {
		if policy != KeepMissing && !rowComplete(perSymbol, symbols, key) {
			continue
		}
		t.Dates = append(t.Dates, byDate[key])
		for _, symbol := range symbols {
			v, ok := perSymbol[symbol][key]
			if !ok {
				v = math.NaN()
			}
			t.closes[symbol] = append(t.closes[symbol], v)
		}
	}
	for _, symbol := range symbols {
		if t.closes[symbol] == nil {
			t.closes[symbol] = []float64{}
		}
	}
	return t
}

func rowComplete(perSymbol map[string]map[int64]float64, symbols []string, key int64) bool {
	for _, symbol := range symbols {
		values := perSymbol[symbol]
		if len(values) == 0 {
			continue
		}
		v, ok := values[key]
		if !ok || math.IsNaN(v) {
			return false
		}
	}
	return true
}

func columnOrder(series map[string][]Observation, order []string) []string {
	seen := make(map[string]bool, len(series))
	symbols := make([]string, 0, len(series))
	for _, symbol := range order {
		if _, ok := series[symbol]; ok && !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}
	var rest []string
	for symbol := range series {
		if !seen[symbol] {
			rest = append(rest, symbol)
		}
	}
	sort.Strings(rest)
	return append(symbols, rest...)
}

// Len returns the number of rows
func (t *PriceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Dates)
}

// Empty reports whether the table has no instruments or no rows
func (t *PriceTable) Empty() bool {
	return t == nil || len(t.Symbols) == 0 || len(t.Dates) == 0
}

// Column returns the closes of symbol aligned to Dates, or nil when the
// symbol is not in the table. The slice must not be modified.
func (t *PriceTable) Column(symbol string) []float64 {
	if t == nil {
		return nil
	}
	return t.closes[symbol]
}

// Observations returns the available closes of symbol in date order
func (t *PriceTable) Observations(symbol string) []Observation {
	col := t.Column(symbol)
	out := make([]Observation, 0, len(col))
	for i, v := range col {
		if !math.IsNaN(v) {
			out = append(out, Observation{Date: t.Dates[i], Close: v})
		}
	}
	return out
}

// IndexOnOrAfter returns the first row dated on or after d, or -1
func (t *PriceTable) IndexOnOrAfter(d time.Time) int {
	if t == nil {
		return -1
	}
	i := sort.Search(len(t.Dates), func(i int) bool { return !t.Dates[i].Before(d) })
	if i == len(t.Dates) {
		return -1
	}
	return i
}

func nanColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}
