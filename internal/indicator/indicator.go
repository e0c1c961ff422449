// Package indicator provides incremental technical indicator calculations
// over sealed candles. All indicators are O(1) per update and pure
// consumers: they never log, never emit signals, and never touch external
// resources.
package indicator

import "intraday-enginev1/internal/model"

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "EMA_9", "RSI_14").
	Name() string

	// Update feeds a new sealed candle and recalculates.
	Update(candle model.Candle)

	// Value returns the current calculated value. Returns 0 if not
	// enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}
