package model

import (
	"encoding/json"
	"time"
)

// Direction is the trading direction recommended by a strategy.
type Direction string

const (
	DirectionBuy     Direction = "BUY"
	DirectionSell    Direction = "SELL"
	DirectionNoTrade Direction = "NO_TRADE"
)

// Signal is produced once per closed, valid candle by the strategy engine
// and never mutated afterwards. EntryPrice is required (non-zero) whenever
// Direction is not NO_TRADE. ATR carries the volatility context the risk
// engine needs for sizing; it travels with the signal so the risk engine
// never reaches into strategy or indicator internals.
type Signal struct {
	Symbol     string    `json:"symbol"`
	CandleTime time.Time `json:"candle_time"` // IntervalStart of the driving candle
	Direction  Direction `json:"direction"`
	EntryPrice int64     `json:"entry_price"` // paise, 0 when NO_TRADE
	StrategyID string    `json:"strategy_id"`
	Strength   float64   `json:"strength"` // optional score, 0..1
	Reason     string    `json:"reason"`
	ATR        float64   `json:"atr"` // paise, volatility measure for sizing
}

// RiskDecision is the risk engine's verdict on a Signal. Exactly one is
// produced per signal with Direction != NO_TRADE. Rejection is data, not
// an error: an unapproved decision carries a tagged RejectionReason.
type RiskDecision struct {
	Symbol          string `json:"symbol"`
	Approved        bool   `json:"approved"`
	PositionSize    int64  `json:"position_size"` // quantity, 0 when rejected
	StopLoss        int64  `json:"stop_loss"`     // paise
	Target          int64  `json:"target"`        // paise
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// TradePlan is the sole user-facing trading artifact, produced only from
// an approved RiskDecision.
type TradePlan struct {
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	EntryPrice   int64     `json:"entry_price"` // paise
	PositionSize int64     `json:"position_size"`
	StopLoss     int64     `json:"stop_loss"` // paise
	Target       int64     `json:"target"`    // paise
	Timestamp    time.Time `json:"timestamp"`
}

// JSON returns the JSON-encoded plan.
func (p *TradePlan) JSON() []byte {
	b, _ := json.Marshal(p)
	return b
}
