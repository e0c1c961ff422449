// Package sqlite persists sealed candles, decision outcomes and trade
// plans to a local WAL-mode database. It is an append-only sink: the
// decision path never reads from it during a live session, and a write
// failure logs and moves on instead of crashing the engine.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"intraday-enginev1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 50
	defaultFlushDelay = 500 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/decisions.db"
}

// Writer is a single-goroutine SQLite writer with transaction batching
// for candles and immediate inserts for outcomes.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode
// and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer discipline
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite store opened", slog.String("path", cfg.DBPath))
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles_15m (
			symbol         TEXT    NOT NULL,
			interval_start INTEGER NOT NULL,
			interval_end   INTEGER NOT NULL,
			open           INTEGER NOT NULL,
			high           INTEGER NOT NULL,
			low            INTEGER NOT NULL,
			close          INTEGER NOT NULL,
			volume         INTEGER,
			ticks          INTEGER,
			PRIMARY KEY (symbol, interval_start)
		);

		CREATE TABLE IF NOT EXISTS outcomes (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol       TEXT    NOT NULL,
			candle_time  INTEGER NOT NULL,
			result       TEXT    NOT NULL,
			stage        TEXT    NOT NULL,
			reason       TEXT,
			detail       TEXT,
			critical     INTEGER NOT NULL DEFAULT 0,
			decided_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_outcomes_symbol ON outcomes(symbol, candle_time);

		CREATE TABLE IF NOT EXISTS trade_plans (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol        TEXT    NOT NULL,
			direction     TEXT    NOT NULL,
			entry_price   INTEGER NOT NULL,
			position_size INTEGER NOT NULL,
			stop_loss     INTEGER NOT NULL,
			target        INTEGER NOT NULL,
			created_at    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_plans_symbol ON trade_plans(symbol, created_at);
	`)
	return err
}

// Run reads sealed candles from candleCh and inserts them in batched
// transactions. Flushes every batchSize candles OR every flushDelay,
// whichever comes first. Blocks until ctx is cancelled or candleCh is
// closed.
func (w *Writer) Run(ctx context.Context, candleCh <-chan model.Candle) {
	batch := make([]model.Candle, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.insertCandles(batch); err != nil {
			slog.Error("sqlite candle batch insert failed", slog.String("error", err.Error()))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case c, ok := <-candleCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, c)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}
		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

func (w *Writer) insertCandles(candles []model.Candle) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles_15m
			(symbol, interval_start, interval_end, open, high, low, close, volume, ticks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.Exec(c.Symbol, c.IntervalStart.Unix(), c.IntervalEnd.Unix(),
			c.Open, c.High, c.Low, c.Close, c.Volume, c.Ticks)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// RunOutcomes reads decision outcomes and writes each immediately.
// Decision records are low-rate and must not sit in a batch buffer
// during a crash.
func (w *Writer) RunOutcomes(ctx context.Context, outCh <-chan model.Outcome) {
	for {
		select {
		case <-ctx.Done():
			return
		case o, ok := <-outCh:
			if !ok {
				return
			}
			if err := w.insertOutcome(o); err != nil {
				slog.Error("sqlite outcome insert failed",
					slog.String("symbol", o.Symbol), slog.String("error", err.Error()))
			}
		}
	}
}

func (w *Writer) insertOutcome(o model.Outcome) error {
	critical := 0
	if o.Critical {
		critical = 1
	}
	_, err := w.db.Exec(
		`INSERT INTO outcomes (symbol, candle_time, result, stage, reason, detail, critical, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Symbol, o.CandleTime.Unix(), string(o.Result), string(o.Stage),
		o.Reason, o.Detail, critical, o.DecidedAt.Unix(),
	)
	if err != nil {
		return err
	}

	if o.Result == model.ResultTradePlan && o.Plan != nil {
		p := o.Plan
		_, err = w.db.Exec(
			`INSERT INTO trade_plans (symbol, direction, entry_price, position_size, stop_loss, target, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.Symbol, string(p.Direction), p.EntryPrice, p.PositionSize, p.StopLoss, p.Target, p.Timestamp.Unix(),
		)
	}
	return err
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
