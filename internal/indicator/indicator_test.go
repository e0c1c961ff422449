package indicator

import (
	"math"
	"testing"

	"intraday-enginev1/internal/model"
)

func closeCandle(close int64) model.Candle {
	return model.Candle{Close: close, High: close, Low: close, Volume: 100}
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestEMA_SeedAndSmoothing(t *testing.T) {
	e := NewEMA(3)

	e.Update(closeCandle(100))
	e.Update(closeCandle(200))
	if e.Ready() {
		t.Fatal("ready before period candles")
	}

	e.Update(closeCandle(300))
	if !e.Ready() {
		t.Fatal("not ready after period candles")
	}
	if !almost(e.Value(), 200) {
		t.Errorf("SMA seed = %v, want 200", e.Value())
	}

	// alpha = 2/(3+1) = 0.5: EMA = 400*0.5 + 200*0.5 = 300.
	e.Update(closeCandle(400))
	if !almost(e.Value(), 300) {
		t.Errorf("EMA = %v, want 300", e.Value())
	}
}

func TestRSI_AllGainsIsHundred(t *testing.T) {
	r := NewRSI(3)
	for _, p := range []int64{100, 110, 120, 130} {
		r.Update(closeCandle(p))
	}
	if !r.Ready() {
		t.Fatal("RSI not ready after period+1 candles")
	}
	if !almost(r.Value(), 100) {
		t.Errorf("RSI = %v, want 100 for monotone gains", r.Value())
	}
}

func TestRSI_BalancedMoves(t *testing.T) {
	r := NewRSI(2)
	// Changes: +10, -10 → avgGain == avgLoss → RSI 50.
	for _, p := range []int64{100, 110, 100} {
		r.Update(closeCandle(p))
	}
	if !almost(r.Value(), 50) {
		t.Errorf("RSI = %v, want 50 for balanced moves", r.Value())
	}
}

func TestATR_TrueRangeUsesPrevClose(t *testing.T) {
	a := NewATR(2)

	// First candle: TR = high-low = 10.
	a.Update(model.Candle{High: 110, Low: 100, Close: 105})
	// Gap up: TR = max(5, |120-105|, |115-105|) = 15.
	a.Update(model.Candle{High: 120, Low: 115, Close: 118})

	if !a.Ready() {
		t.Fatal("ATR not ready after period candles")
	}
	if !almost(a.Value(), 12.5) {
		t.Errorf("ATR seed = %v, want 12.5", a.Value())
	}

	// Wilder RMA: (12.5*1 + TR)/2 with TR = max(2, |122-118|, |120-118|) = 4.
	a.Update(model.Candle{High: 122, Low: 120, Close: 121})
	if !almost(a.Value(), 8.25) {
		t.Errorf("ATR = %v, want 8.25", a.Value())
	}
}

func TestVolumeSMA_Relative(t *testing.T) {
	v := NewVolumeSMA(3)
	for _, vol := range []int64{100, 100, 100} {
		v.Update(model.Candle{Volume: vol})
	}
	if !v.Ready() {
		t.Fatal("not ready after period candles")
	}
	if !almost(v.Relative(), 1.0) {
		t.Errorf("RVOL = %v, want 1.0", v.Relative())
	}

	// Spike: window becomes 100,100,400 → avg 200, last 400 → RVOL 2.
	v.Update(model.Candle{Volume: 400})
	if !almost(v.Relative(), 2.0) {
		t.Errorf("RVOL = %v, want 2.0", v.Relative())
	}
}

func TestSet_ReadyRequiresAllIndicators(t *testing.T) {
	s := NewSet(Config{
		EMAFastPeriod: 2,
		EMASlowPeriod: 5,
		RSIPeriod:     2,
		ATRPeriod:     2,
		VolSMAPeriod:  2,
	})

	for i := 0; i < 4; i++ {
		s.Update(closeCandle(int64(100 + i)))
	}
	if s.Snapshot().Ready {
		t.Error("set ready before slow EMA accumulated 5 candles")
	}

	s.Update(closeCandle(105))
	if !s.Snapshot().Ready {
		t.Error("set not ready after the slowest indicator warmed")
	}
}
