package database

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/market-returns/internal/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewFromConn(conn), mock
}

var priceColumns = []string{"id", "symbol", "date", "open", "high", "low", "close", "volume", "vwap", "created_at"}

func TestPriceDataQueries(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("CreatePriceData returns the generated id", func(t *testing.T) {
		db, mock := newMockDB(t)
		p := &models.PriceDataDaily{
			Symbol: "AAPL",
			Date:   date,
			Open:   decimal.NewFromFloat(175.00),
			High:   decimal.NewFromFloat(178.50),
			Low:    decimal.NewFromFloat(174.00),
			Close:  decimal.NewFromFloat(177.25),
			Volume: 55000000,
		}

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO price_data_daily")).
			WithArgs("AAPL", date, p.Open, p.High, p.Low, p.Close, int64(55000000), nil, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		require.NoError(t, db.CreatePriceData(p))
		assert.Equal(t, 7, p.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CreatePriceDataBatch commits every row", func(t *testing.T) {
		db, mock := newMockDB(t)
		prices := []*models.PriceDataDaily{
			{Symbol: "AAPL", Date: date, Close: decimal.NewFromFloat(177)},
			{Symbol: "AAPL", Date: date.AddDate(0, 0, 1), Close: decimal.NewFromFloat(179)},
		}

		mock.ExpectBegin()
		prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO price_data_daily"))
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, db.CreatePriceDataBatch(prices))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CreatePriceDataBatch rolls back on failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		prices := []*models.PriceDataDaily{
			{Symbol: "AAPL", Date: date, Close: decimal.NewFromFloat(177)},
			{Symbol: "MSFT", Date: date, Close: decimal.NewFromFloat(390)},
		}

		mock.ExpectBegin()
		prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO price_data_daily"))
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WillReturnError(errors.New("constraint violation"))
		mock.ExpectRollback()

		err := db.CreatePriceDataBatch(prices)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert price data for MSFT")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetPriceDataRange scans rows oldest first", func(t *testing.T) {
		db, mock := newMockDB(t)
		start, end := date, date.AddDate(0, 0, 2)
		created := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)

		mock.ExpectQuery(regexp.QuoteMeta("FROM price_data_daily")).
			WithArgs("NVDA", start, end).
			WillReturnRows(sqlmock.NewRows(priceColumns).
				AddRow(1, "NVDA", start, "450", "455", "448", "452.5", int64(40000000), nil, created).
				AddRow(2, "NVDA", end, "452", "460", "451", "458.25", int64(41000000), "455.1", created))

		prices, err := db.GetPriceDataRange("NVDA", start, end)
		require.NoError(t, err)
		require.Len(t, prices, 2)
		assert.True(t, decimal.NewFromFloat(452.5).Equal(prices[0].Close))
		assert.True(t, prices[0].VWAP.IsZero())
		assert.True(t, decimal.NewFromFloat(455.1).Equal(prices[1].VWAP))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetPriceDataRange wraps query errors", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM price_data_daily")).WillReturnError(errors.New("connection reset"))

		_, err := db.GetPriceDataRange("NVDA", date, date)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get price data range")
	})

	t.Run("GetLatestPriceData reports missing symbols", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM price_data_daily")).
			WithArgs("NONEXISTENT").
			WillReturnRows(sqlmock.NewRows(priceColumns))

		_, err := db.GetLatestPriceData("NONEXISTENT")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no price data found")
	})

	t.Run("GetSymbolsWithPriceData lists distinct symbols", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT symbol")).
			WillReturnRows(sqlmock.NewRows([]string{"symbol"}).AddRow("AAPL").AddRow("PETR4.SA"))

		symbols, err := db.GetSymbolsWithPriceData()
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL", "PETR4.SA"}, symbols)
	})
}
