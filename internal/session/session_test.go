package session

import (
	"errors"
	"testing"
	"time"

	"intraday-enginev1/internal/model"
)

func plan(symbol string, ts time.Time) model.TradePlan {
	return model.TradePlan{
		Symbol:       symbol,
		Direction:    model.DirectionBuy,
		EntryPrice:   500_00,
		PositionSize: 100,
		StopLoss:     495_00,
		Target:       510_00,
		Timestamp:    ts,
	}
}

func TestManager_EntryWithoutSession(t *testing.T) {
	m := NewManager(30 * time.Minute)
	if err := m.RecordEntry(plan("SBIN-EQ", time.Now())); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}

func TestManager_EntryLifecycle(t *testing.T) {
	m := NewManager(30 * time.Minute)
	now := time.Now()
	m.StartSession(now)

	if err := m.RecordEntry(plan("SBIN-EQ", now)); err != nil {
		t.Fatalf("entry failed: %v", err)
	}

	view := m.View()
	if view.TradeCount != 1 {
		t.Errorf("trade_count = %d, want 1", view.TradeCount)
	}
	pos, ok := view.OpenPositions["SBIN-EQ"]
	if !ok {
		t.Fatal("position not recorded")
	}
	if pos.Size != 100 || pos.EntryPrice != 500_00 {
		t.Errorf("position = %+v", pos)
	}

	until, ok := view.CooldownUntil["SBIN-EQ"]
	if !ok {
		t.Fatal("cooldown not armed on entry")
	}
	if want := now.Add(30 * time.Minute); !until.Equal(want) {
		t.Errorf("cooldown until %v, want %v", until, want)
	}
}

func TestManager_DuplicatePositionRejected(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.StartSession(now)

	if err := m.RecordEntry(plan("SBIN-EQ", now)); err != nil {
		t.Fatalf("first entry: %v", err)
	}
	if err := m.RecordEntry(plan("SBIN-EQ", now)); err == nil {
		t.Error("second entry for same symbol should fail")
	}
	if got := m.View().TradeCount; got != 1 {
		t.Errorf("trade_count = %d after failed entry, want 1", got)
	}
}

func TestManager_MalformedPlanRejected(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.StartSession(now)

	p := plan("SBIN-EQ", now)
	p.PositionSize = 0
	if err := m.RecordEntry(p); err == nil {
		t.Error("zero-size plan should fail")
	}
	if got := m.View().TradeCount; got != 0 {
		t.Errorf("trade_count = %d, want 0", got)
	}
}

func TestManager_ExitRealizesPnL(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.StartSession(now)
	m.RecordEntry(plan("SBIN-EQ", now))

	// Long 100 @ 500.00, exit @ 510.00: +1000.00 in paise.
	pnl, err := m.RecordExit("SBIN-EQ", 510_00, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("exit failed: %v", err)
	}
	if pnl != 100*10_00 {
		t.Errorf("pnl = %d, want %d", pnl, 100*10_00)
	}

	view := m.View()
	if view.DailyPnL != pnl {
		t.Errorf("daily pnl = %d, want %d", view.DailyPnL, pnl)
	}
	if len(view.OpenPositions) != 0 {
		t.Error("position not removed on exit")
	}
	if _, ok := view.CooldownUntil["SBIN-EQ"]; !ok {
		t.Error("cooldown is entry-triggered and must survive the exit")
	}
}

func TestManager_ExitWithoutPosition(t *testing.T) {
	m := NewManager(time.Minute)
	m.StartSession(time.Now())
	if _, err := m.RecordExit("SBIN-EQ", 500_00, time.Now()); err == nil {
		t.Error("exit without open position should fail")
	}
}

func TestManager_HaltBlocksEntriesNotExits(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.StartSession(now)
	m.RecordEntry(plan("SBIN-EQ", now))

	m.HaltEntries("state inconsistency detected")

	if err := m.RecordEntry(plan("TCS-EQ", now)); !errors.Is(err, ErrEntriesHalted) {
		t.Errorf("entry err = %v, want ErrEntriesHalted", err)
	}
	if _, err := m.RecordExit("SBIN-EQ", 495_00, now); err != nil {
		t.Errorf("exit must remain allowed while halted: %v", err)
	}

	view := m.View()
	if !view.EntriesHalted || view.HaltReason == "" {
		t.Errorf("view = %+v, want halted with reason", view)
	}
}

func TestManager_StartSessionResetsState(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.StartSession(now)
	m.RecordEntry(plan("SBIN-EQ", now))
	m.RecordExit("SBIN-EQ", 490_00, now)
	m.HaltEntries("test")
	m.EndSession()

	m.StartSession(now.AddDate(0, 0, 1))
	view := m.View()
	if view.TradeCount != 0 || view.DailyPnL != 0 || view.EntriesHalted ||
		len(view.OpenPositions) != 0 || len(view.CooldownUntil) != 0 {
		t.Errorf("fresh session carries stale state: %+v", view)
	}
}

func TestManager_ViewIsACopy(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.StartSession(now)
	m.RecordEntry(plan("SBIN-EQ", now))

	view := m.View()
	delete(view.OpenPositions, "SBIN-EQ")

	if len(m.View().OpenPositions) != 1 {
		t.Error("mutating a view leaked into manager state")
	}
}

func TestManager_EndSessionReportsOpenPositions(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.StartSession(now)
	m.RecordEntry(plan("SBIN-EQ", now))

	final := m.EndSession()
	if len(final.OpenPositions) != 1 {
		t.Errorf("final view must report still-open positions, got %d", len(final.OpenPositions))
	}
	if m.Active() {
		t.Error("session still active after EndSession")
	}
}
