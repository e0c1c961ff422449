package indicator

import "intraday-enginev1/internal/model"

// Config fixes the indicator periods for one symbol's Set.
type Config struct {
	EMAFastPeriod int
	EMASlowPeriod int
	RSIPeriod     int
	ATRPeriod     int
	VolSMAPeriod  int
}

// DefaultConfig returns the standard intraday periods.
func DefaultConfig() Config {
	return Config{
		EMAFastPeriod: 9,
		EMASlowPeriod: 21,
		RSIPeriod:     14,
		ATRPeriod:     14,
		VolSMAPeriod:  20,
	}
}

// Snapshot is the read-only indicator view handed to the strategy and,
// via the signal's ATR field, to the risk engine.
type Snapshot struct {
	EMAFast float64
	EMASlow float64
	RSI     float64
	ATR     float64 // paise
	RVOL    float64
	Ready   bool
}

// Set owns the live indicator instances for one symbol. Designed for
// single-goroutine usage: the pipeline updates it once per sealed
// candle, in order.
type Set struct {
	emaFast *EMA
	emaSlow *EMA
	rsi     *RSI
	atr     *ATR
	volSMA  *VolumeSMA
}

// NewSet creates the indicator set for one symbol.
func NewSet(cfg Config) *Set {
	return &Set{
		emaFast: NewEMA(cfg.EMAFastPeriod),
		emaSlow: NewEMA(cfg.EMASlowPeriod),
		rsi:     NewRSI(cfg.RSIPeriod),
		atr:     NewATR(cfg.ATRPeriod),
		volSMA:  NewVolumeSMA(cfg.VolSMAPeriod),
	}
}

// Update feeds a sealed candle to every indicator.
func (s *Set) Update(candle model.Candle) {
	s.emaFast.Update(candle)
	s.emaSlow.Update(candle)
	s.rsi.Update(candle)
	s.atr.Update(candle)
	s.volSMA.Update(candle)
}

// Snapshot returns the current values. Ready is true only when every
// indicator has accumulated enough candles.
func (s *Set) Snapshot() Snapshot {
	return Snapshot{
		EMAFast: s.emaFast.Value(),
		EMASlow: s.emaSlow.Value(),
		RSI:     s.rsi.Value(),
		ATR:     s.atr.Value(),
		RVOL:    s.volSMA.Relative(),
		Ready: s.emaFast.Ready() && s.emaSlow.Ready() &&
			s.rsi.Ready() && s.atr.Ready() && s.volSMA.Ready(),
	}
}
