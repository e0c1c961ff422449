package strategy

import (
	"intraday-enginev1/internal/indicator"
	"intraday-enginev1/internal/model"
)

// EMACrossover is the single rule strategy of the engine.
//
// Buy signal: fast EMA crosses above slow EMA (golden cross)
// Sell signal: fast EMA crosses below slow EMA (death cross)
//
// An RSI filter suppresses buying when overbought (>70) and selling
// when oversold (<30), and a relative-volume floor rejects crosses on
// thin participation.
type EMACrossover struct {
	id      string
	minRVOL float64

	// Previous EMA values per symbol for crossover detection.
	prev map[string]emaPair
}

type emaPair struct {
	fast, slow float64
	seen       bool
}

// NewEMACrossover creates the crossover strategy. minRVOL below or equal
// to zero disables the volume filter.
func NewEMACrossover(minRVOL float64) *EMACrossover {
	return &EMACrossover{
		id:      "EMA_CROSSOVER_15M",
		minRVOL: minRVOL,
		prev:    make(map[string]emaPair),
	}
}

func (s *EMACrossover) ID() string { return s.id }

func (s *EMACrossover) OnCandle(c model.Candle, snap indicator.Snapshot) (model.Signal, error) {
	prev := s.prev[c.Symbol]
	defer func() {
		s.prev[c.Symbol] = emaPair{fast: snap.EMAFast, slow: snap.EMASlow, seen: true}
	}()

	if !snap.Ready {
		return noTrade(s.id, c, "indicators warming up"), nil
	}
	if !prev.seen {
		// Need one prior snapshot to detect a cross.
		return noTrade(s.id, c, "no prior snapshot"), nil
	}

	if s.minRVOL > 0 && snap.RVOL < s.minRVOL {
		return noTrade(s.id, c, "relative volume below floor"), nil
	}

	// Golden cross: fast crosses above slow.
	if prev.fast <= prev.slow && snap.EMAFast > snap.EMASlow {
		if snap.RSI > 70 {
			return noTrade(s.id, c, "golden cross filtered by RSI > 70"), nil
		}
		return s.entry(c, snap, model.DirectionBuy, "EMA golden cross (fast > slow)"), nil
	}

	// Death cross: fast crosses below slow.
	if prev.fast >= prev.slow && snap.EMAFast < snap.EMASlow {
		if snap.RSI < 30 {
			return noTrade(s.id, c, "death cross filtered by RSI < 30"), nil
		}
		return s.entry(c, snap, model.DirectionSell, "EMA death cross (fast < slow)"), nil
	}

	return noTrade(s.id, c, "no setup"), nil
}

func (s *EMACrossover) entry(c model.Candle, snap indicator.Snapshot, dir model.Direction, reason string) model.Signal {
	return model.Signal{
		Symbol:     c.Symbol,
		CandleTime: c.IntervalStart,
		Direction:  dir,
		EntryPrice: c.Close,
		StrategyID: s.id,
		Strength:   crossStrength(snap),
		Reason:     reason,
		ATR:        snap.ATR,
	}
}

// crossStrength scores the cross by EMA separation relative to ATR,
// clamped to 0..1.
func crossStrength(snap indicator.Snapshot) float64 {
	if snap.ATR <= 0 {
		return 0
	}
	gap := snap.EMAFast - snap.EMASlow
	if gap < 0 {
		gap = -gap
	}
	strength := gap / snap.ATR
	if strength > 1 {
		strength = 1
	}
	return strength
}
