// Package session owns the single source of truth for session-scoped
// mutable trading state: open positions, realized daily P&L, trade count
// and per-symbol cooldowns. One Manager instance serves one trading day;
// every mutation happens under one mutex so portfolio-wide limits (daily
// loss, frequency) always see the latest committed state.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"intraday-enginev1/internal/model"
)

var (
	// ErrNoSession is returned when a mutation arrives outside an
	// active session.
	ErrNoSession = errors.New("session: no active session")

	// ErrEntriesHalted is returned when new entries are disabled after
	// a state inconsistency. Exits are still allowed.
	ErrEntriesHalted = errors.New("session: new entries halted")
)

// Manager is the sole mutation path for session state.
type Manager struct {
	mu       sync.Mutex
	active   bool
	cooldown time.Duration

	date          time.Time
	dailyPnL      int64
	tradeCount    int
	positions     map[string]model.Position
	cooldownUntil map[string]time.Time

	entriesHalted bool
	haltReason    string
}

// NewManager creates a Manager with the configured per-symbol cooldown.
func NewManager(cooldown time.Duration) *Manager {
	return &Manager{cooldown: cooldown}
}

// StartSession resets all state for a new trading day.
func (m *Manager) StartSession(date time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = true
	m.date = date
	m.dailyPnL = 0
	m.tradeCount = 0
	m.positions = make(map[string]model.Position)
	m.cooldownUntil = make(map[string]time.Time)
	m.entriesHalted = false
	m.haltReason = ""

	slog.Info("session started", slog.Time("date", date))
}

// EndSession closes the session and returns the final view. Positions
// still open at session end are reported, not silently dropped.
func (m *Manager) EndSession() model.SessionView {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := m.viewLocked()
	m.active = false

	slog.Info("session ended",
		slog.Int64("daily_pnl_paise", view.DailyPnL),
		slog.Int("trade_count", view.TradeCount),
		slog.Int("open_positions", len(view.OpenPositions)))
	return view
}

// RecordEntry commits an approved trade plan: adds the position,
// increments the trade counter and arms the per-symbol cooldown. This is
// the only path by which trade_count grows. Only invocable after an
// approved RiskDecision.
func (m *Manager) RecordEntry(plan model.TradePlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return ErrNoSession
	}
	if m.entriesHalted {
		return ErrEntriesHalted
	}
	if _, open := m.positions[plan.Symbol]; open {
		return fmt.Errorf("session: position already open for %s", plan.Symbol)
	}
	if plan.PositionSize <= 0 || plan.EntryPrice <= 0 {
		return fmt.Errorf("session: malformed plan for %s (size=%d entry=%d)",
			plan.Symbol, plan.PositionSize, plan.EntryPrice)
	}

	m.positions[plan.Symbol] = model.Position{
		Symbol:     plan.Symbol,
		Direction:  plan.Direction,
		EntryPrice: plan.EntryPrice,
		Size:       plan.PositionSize,
		StopLoss:   plan.StopLoss,
		Target:     plan.Target,
		OpenedAt:   plan.Timestamp,
	}
	m.tradeCount++
	m.cooldownUntil[plan.Symbol] = plan.Timestamp.Add(m.cooldown)

	slog.Info("entry recorded",
		slog.String("symbol", plan.Symbol),
		slog.String("direction", string(plan.Direction)),
		slog.Int64("size", plan.PositionSize),
		slog.Int64("entry_paise", plan.EntryPrice),
		slog.Int("trade_count", m.tradeCount))
	return nil
}

// RecordExit applies a reported fill: realizes P&L and removes the
// position. Cooldown is entry-triggered only and stays untouched.
// Exits remain permitted while entries are halted.
func (m *Manager) RecordExit(symbol string, exitPrice int64, ts time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return 0, ErrNoSession
	}
	pos, open := m.positions[symbol]
	if !open {
		return 0, fmt.Errorf("session: no open position for %s", symbol)
	}

	pnl := pos.PnLAt(exitPrice)
	m.dailyPnL += pnl
	delete(m.positions, symbol)

	slog.Info("exit recorded",
		slog.String("symbol", symbol),
		slog.Int64("exit_paise", exitPrice),
		slog.Int64("pnl_paise", pnl),
		slog.Int64("daily_pnl_paise", m.dailyPnL),
		slog.Time("ts", ts))
	return pnl, nil
}

// HaltEntries disables new entry approvals for the rest of the session.
// Called on a detected state inconsistency.
func (m *Manager) HaltEntries(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entriesHalted = true
	m.haltReason = reason
	slog.Error("new entries halted for session", slog.String("reason", reason))
}

// Active reports whether a session is running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// View returns a read-only deep copy reflecting the latest committed
// mutation.
func (m *Manager) View() model.SessionView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Manager) viewLocked() model.SessionView {
	positions := make(map[string]model.Position, len(m.positions))
	for k, v := range m.positions {
		positions[k] = v
	}
	cooldowns := make(map[string]time.Time, len(m.cooldownUntil))
	for k, v := range m.cooldownUntil {
		cooldowns[k] = v
	}
	return model.SessionView{
		Date:          m.date,
		DailyPnL:      m.dailyPnL,
		TradeCount:    m.tradeCount,
		OpenPositions: positions,
		CooldownUntil: cooldowns,
		EntriesHalted: m.entriesHalted,
		HaltReason:    m.haltReason,
	}
}
