// Package risk holds the final veto authority of the decision pipeline.
// Every signal with a direction is evaluated against capital-protection
// limits in a fixed order; the first failing check wins and the signal is
// rejected with a tagged reason. Rejection is data, never an error.
package risk

import (
	"time"

	"intraday-enginev1/internal/model"
)

// Rejection reasons, in evaluation order.
const (
	ReasonDailyLossLimit        = "DAILY_LOSS_LIMIT"
	ReasonFrequencyLimit        = "FREQUENCY_LIMIT"
	ReasonCooldownActive        = "COOLDOWN_ACTIVE"
	ReasonSizingUnavailable     = "SIZING_UNAVAILABLE"
	ReasonStopTargetUnavailable = "STOP_TARGET_UNAVAILABLE"
)

// Limits defines the configured risk thresholds. All money values are in
// paise.
type Limits struct {
	Capital         int64         // trading capital
	DailyLossLimit  int64         // positive number; breach at pnl <= -limit
	MaxTradesPerDay int
	RiskPerTradePct float64 // % of capital risked per trade
	StopATRMult     float64 // stop distance = ATR * mult
	TargetRR        float64 // target distance = stop distance * RR
}

// Engine evaluates signals against session state. Stateless: all mutable
// inputs arrive as arguments, so evaluation is a pure function of
// (signal, view, now).
type Engine struct {
	limits Limits
}

// New creates a risk engine with the given limits.
func New(limits Limits) *Engine {
	return &Engine{limits: limits}
}

// Evaluate applies the ordered risk checks to a signal. Signals with
// direction NO_TRADE must not reach here; the pipeline skips them.
//
// Check order (first failing check wins):
//  1. daily loss limit
//  2. trade frequency
//  3. per-symbol cooldown
//  4. position sizing
//  5. stop-loss / target derivation
func (e *Engine) Evaluate(sig model.Signal, view model.SessionView, now time.Time) model.RiskDecision {
	if view.DailyPnL <= -e.limits.DailyLossLimit {
		return reject(sig, ReasonDailyLossLimit)
	}

	if view.TradeCount >= e.limits.MaxTradesPerDay {
		return reject(sig, ReasonFrequencyLimit)
	}

	if until, ok := view.CooldownUntil[sig.Symbol]; ok && now.Before(until) {
		return reject(sig, ReasonCooldownActive)
	}

	size, stopDistance, ok := e.positionSize(sig)
	if !ok {
		return reject(sig, ReasonSizingUnavailable)
	}

	stop, target, ok := e.stopTarget(sig, stopDistance)
	if !ok {
		return reject(sig, ReasonStopTargetUnavailable)
	}

	return model.RiskDecision{
		Symbol:       sig.Symbol,
		Approved:     true,
		PositionSize: size,
		StopLoss:     stop,
		Target:       target,
	}
}

// positionSize derives quantity from capital, configured risk percentage
// and the signal's volatility measure: size = riskAmount / stopDistance.
// Never a fixed constant; varies with risk % and inversely with ATR.
func (e *Engine) positionSize(sig model.Signal) (size int64, stopDistance int64, ok bool) {
	if sig.ATR <= 0 || e.limits.Capital <= 0 || e.limits.RiskPerTradePct <= 0 {
		return 0, 0, false
	}

	stopDistance = int64(sig.ATR * e.limits.StopATRMult)
	if stopDistance <= 0 {
		return 0, 0, false
	}

	riskAmount := float64(e.limits.Capital) * e.limits.RiskPerTradePct / 100.0
	size = int64(riskAmount / float64(stopDistance))
	if size <= 0 {
		return 0, 0, false
	}
	return size, stopDistance, true
}

// stopTarget derives protective levels from the entry price and the stop
// distance. Unresolvable levels (non-positive entry or stop) reject the
// signal rather than producing a plan with holes.
func (e *Engine) stopTarget(sig model.Signal, stopDistance int64) (stop, target int64, ok bool) {
	if sig.EntryPrice <= 0 {
		return 0, 0, false
	}

	targetDistance := int64(float64(stopDistance) * e.limits.TargetRR)

	switch sig.Direction {
	case model.DirectionBuy:
		stop = sig.EntryPrice - stopDistance
		target = sig.EntryPrice + targetDistance
	case model.DirectionSell:
		stop = sig.EntryPrice + stopDistance
		target = sig.EntryPrice - targetDistance
	default:
		return 0, 0, false
	}

	if stop <= 0 || target <= 0 {
		return 0, 0, false
	}
	return stop, target, true
}

func reject(sig model.Signal, reason string) model.RiskDecision {
	return model.RiskDecision{
		Symbol:          sig.Symbol,
		Approved:        false,
		RejectionReason: reason,
	}
}
