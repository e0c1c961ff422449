package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"intraday-enginev1/internal/markethours"
	"intraday-enginev1/internal/model"
)

// Reader loads stored candles back out of the database, primarily for
// replaying a past session through the decision pipeline.
type Reader struct {
	db *sql.DB
}

// NewReader opens the database read-only.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	return &Reader{db: db}, nil
}

// ReadCandles returns all candles for symbol with interval_start in
// [from, to), ordered by interval_start ascending.
func (r *Reader) ReadCandles(symbol string, from, to time.Time) ([]model.Candle, error) {
	rows, err := r.db.Query(`
		SELECT symbol, interval_start, interval_end, open, high, low, close, volume, ticks
		FROM candles_15m
		WHERE symbol = ? AND interval_start >= ? AND interval_start < ?
		ORDER BY interval_start ASC
	`, symbol, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var out []model.Candle
	for rows.Next() {
		var c model.Candle
		var start, end int64
		if err := rows.Scan(&c.Symbol, &start, &end, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Ticks); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		c.IntervalStart = time.Unix(start, 0).In(markethours.IST)
		c.IntervalEnd = time.Unix(end, 0).In(markethours.IST)
		c.Closed = true
		out = append(out, c)
	}
	return out, rows.Err()
}

// Symbols returns the distinct symbols present in the candle table.
func (r *Reader) Symbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT symbol FROM candles_15m ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *Reader) Close() error {
	return r.db.Close()
}
