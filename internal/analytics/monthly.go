package analytics

import (
	"math"
	"sort"
	"time"
)

// MonthLabels are the pivot column headers in calendar order
var MonthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// PivotYear is one row of the monthly pivot. Months holds the return of each
// calendar month (nil when the month was not observed) and Annual the
// compounded return of the observed months.
type PivotYear struct {
	Year   int         `json:"year"`
	Months [12]*float64 `json:"months"`
	Annual float64     `json:"annual"`
}

// MonthlyPivot is a calendar table of period over period returns, years ascending
type MonthlyPivot struct {
	Years []PivotYear `json:"years"`
}

// Insufficient reports whether there was not enough data to compute a single return
func (p MonthlyPivot) Insufficient() bool {
	return len(p.Years) == 0
}

// Year returns the row for year y
func (p MonthlyPivot) Year(y int) (PivotYear, bool) {
	for _, row := range p.Years {
		if row.Year == y {
			return row, true
		}
	}
	return PivotYear{}, false
}

// Percentages returns a copy with every cell expressed in percent and rounded
// to two decimals for display. The receiver keeps full precision.
func (p MonthlyPivot) Percentages() MonthlyPivot {
	out := MonthlyPivot{Years: make([]PivotYear, 0, len(p.Years))}
	for _, row := range p.Years {
		pct := PivotYear{Year: row.Year, Annual: Round2(row.Annual * 100)}
		for m, r := range row.Months {
			if r != nil {
				pct.Months[m] = roundedPtr(*r * 100)
			}
		}
		out.Years = append(out.Years, pct)
	}
	return out
}

// ComputeMonthlyPivot turns month sampled closes of one instrument into a
// year by month table of returns. Returns are fractions (0.05 is 5%).
// Annual compounds the observed months: prod(1+r) - 1. Two observations
// falling in the same calendar month are compounded into that month.
// Fewer than two closes yield an empty pivot.
func ComputeMonthlyPivot(monthly []Observation) MonthlyPivot {
	pivot := MonthlyPivot{Years: []PivotYear{}}
	if len(monthly) < 2 {
		return pivot
	}

	obs := sortedByDate(monthly)
	type cell struct {
		growth float64
		seen   bool
	}
	cells := make(map[int]*[12]cell)
	for i := 1; i < len(obs); i++ {
		prev, cur := obs[i-1].Close, obs[i].Close
		if prev == 0 || math.IsNaN(prev) || math.IsNaN(cur) {
			continue
		}
		r := cur/prev - 1
		year, month := obs[i].Date.Year(), int(obs[i].Date.Month())-1

		row, ok := cells[year]
		if !ok {
			row = &[12]cell{}
			cells[year] = row
		}
		c := &row[month]
		if !c.seen {
			c.growth, c.seen = 1, true
		}
		c.growth *= 1 + r
	}

	years := make([]int, 0, len(cells))
	for y := range cells {
		years = append(years, y)
	}
	sort.Ints(years)

	for _, y := range years {
		row := PivotYear{Year: y}
		annual := 1.0
		for m, c := range cells[y] {
			if !c.seen {
				continue
			}
			r := c.growth - 1
			row.Months[m] = &r
			annual *= c.growth
		}
		row.Annual = annual - 1
		pivot.Years = append(pivot.Years, row)
	}
	return pivot
}

// ResampleMonthEnd keeps the last close of every calendar month, turning a
// daily series into the month sampled input ComputeMonthlyPivot expects.
func ResampleMonthEnd(daily []Observation) []Observation {
	out := make([]Observation, 0, len(daily)/20+1)
	for _, o := range sortedByDate(daily) {
		if n := len(out); n > 0 && sameMonth(out[n-1].Date, o.Date) {
			out[n-1] = o
			continue
		}
		out = append(out, o)
	}
	return out
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func sortedByDate(obs []Observation) []Observation {
	out := append([]Observation(nil), obs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
