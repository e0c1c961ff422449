package model

import (
	"context"
	"time"
)

// Storage port interfaces.
// These interfaces decouple the decision core from concrete sinks
// (Redis, SQLite). Persistence is append-only: nothing in the decision
// path ever reads a store during a live session.

// CandleWriter persists sealed candles.
type CandleWriter interface {
	// Run reads sealed candles from candleCh and writes them.
	// Blocks until ctx is cancelled or candleCh is closed.
	Run(ctx context.Context, candleCh <-chan Candle)

	// Close releases underlying resources.
	Close() error
}

// OutcomeWriter persists decision outcomes (trade plans and NO_TRADE
// records alike).
type OutcomeWriter interface {
	// RunOutcomes reads outcomes from outCh and writes them.
	// Blocks until ctx is cancelled or outCh is closed.
	RunOutcomes(ctx context.Context, outCh <-chan Outcome)

	// Close releases underlying resources.
	Close() error
}

// HistoricalSource supplies broker-provided 15m candles for startup
// preload. Never consulted during live decisioning.
type HistoricalSource interface {
	// LoadCandles returns validated candles ordered by IntervalStart.
	LoadCandles(ctx context.Context, symbol string, from, to time.Time) ([]Candle, error)
}
