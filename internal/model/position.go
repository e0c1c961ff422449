package model

import "time"

// Position represents an open intraday position tracked by session state.
// Created on an approved entry, removed when the exit fill is reported.
type Position struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice int64     `json:"entry_price"` // paise
	Size       int64     `json:"size"`
	StopLoss   int64     `json:"stop_loss"` // paise
	Target     int64     `json:"target"`    // paise
	OpenedAt   time.Time `json:"opened_at"`
}

// PnLAt computes the signed profit/loss in paise if the position were
// closed at the given price.
func (p *Position) PnLAt(price int64) int64 {
	diff := price - p.EntryPrice
	if p.Direction == DirectionSell {
		diff = -diff
	}
	return diff * p.Size
}

// SessionView is a read-only copy of the session state handed to the risk
// engine and orchestrator. It reflects the latest committed mutation at
// the time View() was called; callers must not treat it as live.
type SessionView struct {
	Date          time.Time
	DailyPnL      int64 // paise, realized
	TradeCount    int
	OpenPositions map[string]Position
	CooldownUntil map[string]time.Time
	EntriesHalted bool
	HaltReason    string
}
