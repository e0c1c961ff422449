package risk

import (
	"testing"
	"time"

	"intraday-enginev1/internal/model"
)

func testLimits() Limits {
	return Limits{
		Capital:         100_000_00, // ₹1,00,000 in paise
		DailyLossLimit:  2_000_00,   // ₹2,000
		MaxTradesPerDay: 5,
		RiskPerTradePct: 1.0,
		StopATRMult:     1.0,
		TargetRR:        2.0,
	}
}

func buySignal() model.Signal {
	return model.Signal{
		Symbol:     "SBIN-EQ",
		Direction:  model.DirectionBuy,
		EntryPrice: 500_00, // ₹500
		ATR:        5_00,   // ₹5
	}
}

func emptyView() model.SessionView {
	return model.SessionView{
		CooldownUntil: map[string]time.Time{},
		OpenPositions: map[string]model.Position{},
	}
}

func TestEvaluate_Approval(t *testing.T) {
	e := New(testLimits())
	now := time.Now()

	dec := e.Evaluate(buySignal(), emptyView(), now)
	if !dec.Approved {
		t.Fatalf("rejected: %s", dec.RejectionReason)
	}

	// risk amount = 1% of 100000_00 = 1000_00 paise; stop distance =
	// ATR*1.0 = 500 paise; size = 100000/500 = 200.
	if dec.PositionSize != 200 {
		t.Errorf("size = %d, want 200", dec.PositionSize)
	}
	if dec.StopLoss != 500_00-5_00 {
		t.Errorf("stop = %d, want %d", dec.StopLoss, 500_00-5_00)
	}
	if dec.Target != 500_00+10_00 {
		t.Errorf("target = %d, want %d", dec.Target, 500_00+10_00)
	}
}

func TestEvaluate_SellLevels(t *testing.T) {
	e := New(testLimits())
	sig := buySignal()
	sig.Direction = model.DirectionSell

	dec := e.Evaluate(sig, emptyView(), time.Now())
	if !dec.Approved {
		t.Fatalf("rejected: %s", dec.RejectionReason)
	}
	if dec.StopLoss != 500_00+5_00 {
		t.Errorf("sell stop = %d, want above entry", dec.StopLoss)
	}
	if dec.Target != 500_00-10_00 {
		t.Errorf("sell target = %d, want below entry", dec.Target)
	}
}

func TestEvaluate_DailyLossLimitBlocks(t *testing.T) {
	e := New(testLimits())
	view := emptyView()
	view.DailyPnL = -2_000_00 // at the limit counts as breached

	dec := e.Evaluate(buySignal(), view, time.Now())
	if dec.Approved || dec.RejectionReason != ReasonDailyLossLimit {
		t.Errorf("got %+v, want %s", dec, ReasonDailyLossLimit)
	}
}

func TestEvaluate_FrequencyLimitBlocks(t *testing.T) {
	e := New(testLimits())
	view := emptyView()
	view.TradeCount = 5

	dec := e.Evaluate(buySignal(), view, time.Now())
	if dec.Approved || dec.RejectionReason != ReasonFrequencyLimit {
		t.Errorf("got %+v, want %s", dec, ReasonFrequencyLimit)
	}
}

func TestEvaluate_CooldownBlocks(t *testing.T) {
	e := New(testLimits())
	now := time.Now()
	view := emptyView()
	view.CooldownUntil["SBIN-EQ"] = now.Add(10 * time.Minute)

	dec := e.Evaluate(buySignal(), view, now)
	if dec.Approved || dec.RejectionReason != ReasonCooldownActive {
		t.Errorf("got %+v, want %s", dec, ReasonCooldownActive)
	}
}

func TestEvaluate_CooldownExpired(t *testing.T) {
	e := New(testLimits())
	now := time.Now()
	view := emptyView()
	view.CooldownUntil["SBIN-EQ"] = now.Add(-time.Minute)

	if dec := e.Evaluate(buySignal(), view, now); !dec.Approved {
		t.Errorf("expired cooldown should not block: %s", dec.RejectionReason)
	}
}

func TestEvaluate_SizingUnavailable(t *testing.T) {
	e := New(testLimits())
	sig := buySignal()
	sig.ATR = 0

	dec := e.Evaluate(sig, emptyView(), time.Now())
	if dec.Approved || dec.RejectionReason != ReasonSizingUnavailable {
		t.Errorf("got %+v, want %s", dec, ReasonSizingUnavailable)
	}
}

func TestEvaluate_StopUnresolvable(t *testing.T) {
	e := New(testLimits())
	sig := buySignal()
	// Entry so small that entry - stopDistance goes non-positive.
	sig.EntryPrice = 3_00
	sig.ATR = 5_00

	dec := e.Evaluate(sig, emptyView(), time.Now())
	if dec.Approved || dec.RejectionReason != ReasonStopTargetUnavailable {
		t.Errorf("got %+v, want %s", dec, ReasonStopTargetUnavailable)
	}
}

func TestEvaluate_CheckOrder(t *testing.T) {
	// Loss limit breached AND frequency exceeded AND cooldown active:
	// the first check in the fixed order must win.
	e := New(testLimits())
	now := time.Now()
	view := emptyView()
	view.DailyPnL = -5_000_00
	view.TradeCount = 10
	view.CooldownUntil["SBIN-EQ"] = now.Add(time.Hour)

	dec := e.Evaluate(buySignal(), view, now)
	if dec.RejectionReason != ReasonDailyLossLimit {
		t.Errorf("reason = %s, want %s (first check wins)", dec.RejectionReason, ReasonDailyLossLimit)
	}
}

func TestPositionSize_ScalesWithRiskPct(t *testing.T) {
	small := testLimits()
	large := testLimits()
	large.RiskPerTradePct = 2.0

	sig := buySignal()
	decSmall := New(small).Evaluate(sig, emptyView(), time.Now())
	decLarge := New(large).Evaluate(sig, emptyView(), time.Now())
	if decLarge.PositionSize <= decSmall.PositionSize {
		t.Errorf("size should grow with risk %%: %d vs %d", decSmall.PositionSize, decLarge.PositionSize)
	}
}

func TestPositionSize_ShrinksWithVolatility(t *testing.T) {
	e := New(testLimits())
	calm := buySignal()
	wild := buySignal()
	wild.ATR = calm.ATR * 4

	decCalm := e.Evaluate(calm, emptyView(), time.Now())
	decWild := e.Evaluate(wild, emptyView(), time.Now())
	if decWild.PositionSize >= decCalm.PositionSize {
		t.Errorf("size should shrink with ATR: calm=%d wild=%d", decCalm.PositionSize, decWild.PositionSize)
	}
}

func TestEvaluate_RejectionCarriesNoPlanFields(t *testing.T) {
	e := New(testLimits())
	view := emptyView()
	view.TradeCount = 99

	dec := e.Evaluate(buySignal(), view, time.Now())
	if dec.PositionSize != 0 || dec.StopLoss != 0 || dec.Target != 0 {
		t.Errorf("rejected decision leaked plan fields: %+v", dec)
	}
}
