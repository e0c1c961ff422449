// Package strategy evaluates closed, valid candles against a trading
// rule and emits exactly one Signal per candle. A strategy never sees
// session state and never talks to the risk engine; it only reads the
// candle and the indicator snapshot.
package strategy

import (
	"intraday-enginev1/internal/indicator"
	"intraday-enginev1/internal/model"
)

// Strategy is the contract every trading rule implements.
type Strategy interface {
	// ID returns the unique strategy identifier recorded on signals.
	ID() string

	// OnCandle evaluates one sealed candle with its indicator snapshot
	// and returns a Signal. A signal is always returned: direction
	// NO_TRADE with a reason when no setup exists. Errors mark the
	// evaluation itself as failed; the pipeline converts them to a
	// NO_TRADE outcome.
	OnCandle(candle model.Candle, snap indicator.Snapshot) (model.Signal, error)
}

// noTrade builds the explicit no-setup signal.
func noTrade(id string, c model.Candle, reason string) model.Signal {
	return model.Signal{
		Symbol:     c.Symbol,
		CandleTime: c.IntervalStart,
		Direction:  model.DirectionNoTrade,
		StrategyID: id,
		Reason:     reason,
	}
}
