package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/market-returns/internal/models"
)

const upsertPriceDataQuery = `
	INSERT INTO price_data_daily (symbol, date, open, high, low, close, volume, vwap, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (symbol, date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		vwap = EXCLUDED.vwap
`

const selectPriceDataColumns = `SELECT id, symbol, date, open, high, low, close, volume, vwap, created_at FROM price_data_daily`

// CreatePriceData inserts or replaces the daily bar of a symbol
func (db *DB) CreatePriceData(p *models.PriceDataDaily) error {
	err := db.conn.QueryRow(upsertPriceDataQuery+" RETURNING id",
		p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, nullableDecimal(p.VWAP), time.Now(),
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to create price data: %w", err)
	}
	return nil
}

// CreatePriceDataBatch upserts many daily bars in one transaction
func (db *DB) CreatePriceDataBatch(prices []*models.PriceDataDaily) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertPriceDataQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range prices {
		_, err := stmt.Exec(p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, nullableDecimal(p.VWAP), now)
		if err != nil {
			return fmt.Errorf("failed to insert price data for %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPriceDataBySymbol retrieves the latest bars of a symbol, newest first
func (db *DB) GetPriceDataBySymbol(symbol string, limit int) ([]*models.PriceDataDaily, error) {
	rows, err := db.conn.Query(selectPriceDataColumns+`
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price data: %w", err)
	}
	return scanPriceData(rows)
}

// GetPriceDataRange retrieves the bars of a symbol between two dates
// inclusive, oldest first
func (db *DB) GetPriceDataRange(symbol string, startDate, endDate time.Time) ([]*models.PriceDataDaily, error) {
	rows, err := db.conn.Query(selectPriceDataColumns+`
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`, symbol, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get price data range: %w", err)
	}
	return scanPriceData(rows)
}

// GetLatestPriceData retrieves the most recent bar of a symbol
func (db *DB) GetLatestPriceData(symbol string) (*models.PriceDataDaily, error) {
	rows, err := db.conn.Query(selectPriceDataColumns+`
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT 1
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price data: %w", err)
	}
	prices, err := scanPriceData(rows)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("no price data found for %s", symbol)
	}
	return prices[0], nil
}

// GetSymbolsWithPriceData lists every symbol that has stored bars
func (db *DB) GetSymbolsWithPriceData() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT symbol FROM price_data_daily ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// DeletePriceDataBySymbol removes all price data for a symbol
func (db *DB) DeletePriceDataBySymbol(symbol string) error {
	_, err := db.conn.Exec(`DELETE FROM price_data_daily WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete price data for %s: %w", symbol, err)
	}
	return nil
}

// DeletePriceDataOlderThan removes price data older than a specified date
func (db *DB) DeletePriceDataOlderThan(date time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM price_data_daily WHERE date < $1`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old price data: %w", err)
	}
	return result.RowsAffected()
}

func scanPriceData(rows *sql.Rows) ([]*models.PriceDataDaily, error) {
	defer rows.Close()

	var prices []*models.PriceDataDaily
	for rows.Next() {
		var p models.PriceDataDaily
		var vwap sql.NullString

		err := rows.Scan(
			&p.ID, &p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &vwap, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price data: %w", err)
		}

		if vwap.Valid {
			p.VWAP, _ = decimal.NewFromString(vwap.String)
		}
		prices = append(prices, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price data: %w", err)
	}
	return prices, nil
}

// nullableDecimal stores a zero VWAP as NULL
func nullableDecimal(d decimal.Decimal) interface{} {
	if d.IsZero() {
		return nil
	}
	return d
}
