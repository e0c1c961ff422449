package model

import (
	"encoding/json"
	"time"
)

// Stage identifies where in the decision pipeline an outcome was decided.
type Stage string

const (
	StageAwaitingCandle Stage = "AWAITING_CANDLE"
	StageValidating     Stage = "VALIDATING"
	StageIndicators     Stage = "INDICATORS"
	StageStrategy       Stage = "STRATEGY"
	StageRisk           Stage = "RISK"
	StageStateUpdate    Stage = "STATE_UPDATE"
	StageEmitted        Stage = "EMITTED"
)

// Result is the terminal classification of a decision.
type Result string

const (
	ResultTradePlan Result = "TRADE_PLAN"
	ResultNoTrade   Result = "NO_TRADE"
)

// Reason tags for NO_TRADE outcomes. The risk engine adds its own
// rejection reasons on top of these.
const (
	ReasonNoData           = "NO_DATA"
	ReasonMarketClosed     = "MARKET_CLOSED"
	ReasonValidationFailed = "VALIDATION_FAILED"
	ReasonIndicatorsNotReady = "INDICATORS_NOT_READY"
	ReasonStrategyError    = "STRATEGY_ERROR"
	ReasonNoSetup          = "NO_SETUP"
	ReasonEntriesHalted    = "ENTRIES_HALTED"
	ReasonStateInconsistency = "STATE_INCONSISTENCY"
)

// Outcome is the single, explainable record every closed candle (or
// observed data gap) produces: either a TradePlan or an explicit NO_TRADE
// with the failing stage and reason. Critical marks outcomes caused by a
// session-state inconsistency so they escalate distinctly from ordinary
// NO_TRADE events.
type Outcome struct {
	Symbol     string     `json:"symbol"`
	CandleTime time.Time  `json:"candle_time"` // interval start this decision covers
	Result     Result     `json:"result"`
	Stage      Stage      `json:"stage"`
	Reason     string     `json:"reason,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	Plan       *TradePlan `json:"plan,omitempty"` // set iff Result == TRADE_PLAN
	Critical   bool       `json:"critical,omitempty"`
	DecidedAt  time.Time  `json:"decided_at"`
}

// JSON returns the JSON-encoded outcome.
func (o *Outcome) JSON() []byte {
	b, _ := json.Marshal(o)
	return b
}
