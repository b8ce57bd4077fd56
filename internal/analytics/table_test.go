package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign(t *testing.T) {
	t.Run("drop policy keeps only complete rows", func(t *testing.T) {
		input := series("AAPL", 0, 100, 101, 102)
		input["MSFT"] = series("MSFT", 1, 300, 301)["MSFT"]

		table := Align(input, []string{"MSFT", "AAPL"}, DropIncomplete)

		assert.Equal(t, []string{"MSFT", "AAPL"}, table.Symbols)
		require.Equal(t, 2, table.Len())
		assert.True(t, table.Dates[0].Equal(day(1)))
		assert.Equal(t, []float64{101, 102}, table.Column("AAPL"))
		assert.Equal(t, []float64{300, 301}, table.Column("MSFT"))
	})

	t.Run("keep policy leaves gaps as missing", func(t *testing.T) {
		input := series("AAPL", 0, 100, 101, 102)
		input["MSFT"] = series("MSFT", 1, 300, 301)["MSFT"]

		table := Align(input, []string{"AAPL", "MSFT"}, KeepMissing)

		require.Equal(t, 3, table.Len())
		assert.True(t, math.IsNaN(table.Column("MSFT")[0]))
		assert.Len(t, table.Observations("MSFT"), 2)
	})

	t.Run("dates are sorted and duplicates keep the last close", func(t *testing.T) {
		input := map[string][]Observation{
			"GC=F": {
				{Date: day(2), Close: 3},
				{Date: day(0), Close: 1},
				{Date: day(2), Close: 4},
			},
		}

		table := Align(input, nil, DropIncomplete)

		require.Equal(t, 2, table.Len())
		assert.Equal(t, []float64{1, 4}, table.Column("GC=F"))
	})

	t.Run("symbols outside the requested order are appended sorted", func(t *testing.T) {
		input := series("B", 0, 1)
		input["A"] = series("A", 0, 1)["A"]
		input["C"] = series("C", 0, 1)["C"]

		table := Align(input, []string{"C", "UNKNOWN", "C"}, DropIncomplete)

		assert.Equal(t, []string{"C", "A", "B"}, table.Symbols)
	})

	t.Run("nothing to align", func(t *testing.T) {
		table := Align(nil, []string{"AAPL"}, DropIncomplete)
		assert.True(t, table.Empty())
		assert.Equal(t, 0, table.Len())
	})
}

func TestNewPriceTable(t *testing.T) {
	dates := []time.Time{day(0), day(1)}

	_, err := NewPriceTable([]time.Time{day(1), day(0)}, nil, nil)
	assert.Error(t, err)

	_, err = NewPriceTable(dates, []string{"X"}, map[string][]float64{"X": {1}})
	assert.Error(t, err)

	_, err = NewPriceTable(dates, []string{"X", "X"}, map[string][]float64{"X": {1, 2}})
	assert.Error(t, err)

	table, err := NewPriceTable(dates, []string{"X", "Y"}, map[string][]float64{"X": {1, 2}})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(table.Column("Y")[1]))
	assert.Nil(t, table.Column("Z"))
}

func TestIndexOnOrAfter(t *testing.T) {
	table := singleColumn(t, "X", 1, 2, 3)

	assert.Equal(t, 0, table.IndexOnOrAfter(day(-1)))
	assert.Equal(t, 1, table.IndexOnOrAfter(day(1)))
	assert.Equal(t, 2, table.IndexOnOrAfter(day(1).Add(time.Minute)))
	assert.Equal(t, -1, table.IndexOnOrAfter(day(3)))

	var nilTable *PriceTable
	assert.Equal(t, -1, nilTable.IndexOnOrAfter(day(0)))
}

func TestParseMissingPolicy(t *testing.T) {
	p, err := ParseMissingPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DropIncomplete, p)

	p, err = ParseMissingPolicy("keep")
	require.NoError(t, err)
	assert.Equal(t, KeepMissing, p)

	_, err = ParseMissingPolicy("fill")
	assert.Error(t, err)
}
