package strategy

import (
	"testing"
	"time"

	"intraday-enginev1/internal/indicator"
	"intraday-enginev1/internal/markethours"
	"intraday-enginev1/internal/model"
)

func candle() model.Candle {
	start := time.Date(2026, time.August, 27, 10, 0, 0, 0, markethours.IST)
	return model.Candle{
		Symbol:        "SBIN-EQ",
		IntervalStart: start,
		IntervalEnd:   start.Add(15 * time.Minute),
		Open:          500_00,
		High:          505_00,
		Low:           498_00,
		Close:         502_00,
		Volume:        10000,
		Closed:        true,
	}
}

func snap(fast, slow, rsi float64) indicator.Snapshot {
	return indicator.Snapshot{
		EMAFast: fast,
		EMASlow: slow,
		RSI:     rsi,
		ATR:     5_00,
		RVOL:    1.5,
		Ready:   true,
	}
}

func TestCrossover_NeedsPriorSnapshot(t *testing.T) {
	s := NewEMACrossover(0)
	sig, err := s.OnCandle(candle(), snap(501_00, 500_00, 50))
	if err != nil {
		t.Fatal(err)
	}
	if sig.Direction != model.DirectionNoTrade {
		t.Errorf("first candle produced %s, want no trade", sig.Direction)
	}
}

func TestCrossover_NotReadySnapshot(t *testing.T) {
	s := NewEMACrossover(0)
	cold := snap(501_00, 500_00, 50)
	cold.Ready = false
	sig, _ := s.OnCandle(candle(), cold)
	if sig.Direction != model.DirectionNoTrade {
		t.Errorf("warming indicators produced %s, want no trade", sig.Direction)
	}
}

func TestCrossover_GoldenCross(t *testing.T) {
	s := NewEMACrossover(0)
	s.OnCandle(candle(), snap(499_00, 500_00, 50)) // fast below slow
	sig, err := s.OnCandle(candle(), snap(501_00, 500_00, 50))
	if err != nil {
		t.Fatal(err)
	}
	if sig.Direction != model.DirectionBuy {
		t.Fatalf("direction = %s, want BUY", sig.Direction)
	}
	if sig.EntryPrice != 502_00 {
		t.Errorf("entry = %d, want candle close", sig.EntryPrice)
	}
	if sig.ATR != 5_00 {
		t.Errorf("ATR = %v, want snapshot ATR carried on signal", sig.ATR)
	}
	if sig.StrategyID != s.ID() {
		t.Errorf("strategy id = %q", sig.StrategyID)
	}
}

func TestCrossover_GoldenCrossOverboughtFiltered(t *testing.T) {
	s := NewEMACrossover(0)
	s.OnCandle(candle(), snap(499_00, 500_00, 50))
	sig, _ := s.OnCandle(candle(), snap(501_00, 500_00, 75))
	if sig.Direction != model.DirectionNoTrade {
		t.Errorf("overbought golden cross produced %s, want no trade", sig.Direction)
	}
}

func TestCrossover_DeathCross(t *testing.T) {
	s := NewEMACrossover(0)
	s.OnCandle(candle(), snap(501_00, 500_00, 50)) // fast above slow
	sig, _ := s.OnCandle(candle(), snap(499_00, 500_00, 50))
	if sig.Direction != model.DirectionSell {
		t.Fatalf("direction = %s, want SELL", sig.Direction)
	}
}

func TestCrossover_DeathCrossOversoldFiltered(t *testing.T) {
	s := NewEMACrossover(0)
	s.OnCandle(candle(), snap(501_00, 500_00, 50))
	sig, _ := s.OnCandle(candle(), snap(499_00, 500_00, 25))
	if sig.Direction != model.DirectionNoTrade {
		t.Errorf("oversold death cross produced %s, want no trade", sig.Direction)
	}
}

func TestCrossover_NoCrossNoSetup(t *testing.T) {
	s := NewEMACrossover(0)
	s.OnCandle(candle(), snap(501_00, 500_00, 50))
	sig, _ := s.OnCandle(candle(), snap(502_00, 500_00, 50)) // still above, no cross
	if sig.Direction != model.DirectionNoTrade {
		t.Errorf("no cross produced %s", sig.Direction)
	}
}

func TestCrossover_ThinVolumeFiltered(t *testing.T) {
	s := NewEMACrossover(1.2)
	s.OnCandle(candle(), snap(499_00, 500_00, 50))

	thin := snap(501_00, 500_00, 50)
	thin.RVOL = 0.8
	sig, _ := s.OnCandle(candle(), thin)
	if sig.Direction != model.DirectionNoTrade {
		t.Errorf("thin cross produced %s, want no trade", sig.Direction)
	}
}

func TestCrossover_ZeroFloorDisablesVolumeFilter(t *testing.T) {
	s := NewEMACrossover(0)
	s.OnCandle(candle(), snap(499_00, 500_00, 50))

	thin := snap(501_00, 500_00, 50)
	thin.RVOL = 0.1
	sig, _ := s.OnCandle(candle(), thin)
	if sig.Direction != model.DirectionBuy {
		t.Errorf("direction = %s, want BUY with volume filter off", sig.Direction)
	}
}

func TestCrossover_StrengthClampedToOne(t *testing.T) {
	wide := snap(520_00, 500_00, 50) // gap far beyond ATR
	if got := crossStrength(wide); got != 1 {
		t.Errorf("strength = %v, want clamped to 1", got)
	}
	zeroATR := snap(501_00, 500_00, 50)
	zeroATR.ATR = 0
	if got := crossStrength(zeroATR); got != 0 {
		t.Errorf("strength = %v, want 0 without ATR", got)
	}
}
