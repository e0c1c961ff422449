// Package pipeline sequences the decision stages for each sealed candle:
// validation, indicators, strategy, risk, state update, emission.
// Any stage failure short-circuits to an explicit NO_TRADE outcome with
// the failing stage and reason recorded; no stage is retried and no
// partial result propagates. Every closed candle, and every observed
// data gap, produces exactly one terminal outcome.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"intraday-enginev1/internal/candlebuilder"
	"intraday-enginev1/internal/indicator"
	"intraday-enginev1/internal/logger"
	"intraday-enginev1/internal/markethours"
	"intraday-enginev1/internal/model"
	"intraday-enginev1/internal/risk"
	"intraday-enginev1/internal/session"
	"intraday-enginev1/internal/strategy"
	"intraday-enginev1/internal/validate"
)

// Config tunes the pipeline.
type Config struct {
	MinCandleVolume int64
	IndicatorConfig indicator.Config

	// OutcomeBuffer sizes the outcome channel. Emission blocks rather
	// than drops when the buffer fills; downstream consumers are
	// non-blocking by construction.
	OutcomeBuffer int
}

// Engine is the decision orchestrator. It runs as a single goroutine, so
// decisions are strictly serialized: one candle completes its full
// sequence before the next begins, which also guarantees no two in-flight
// decisions for the same symbol.
type Engine struct {
	cfg      Config
	strat    strategy.Strategy
	risk     *risk.Engine
	sessions *session.Manager
	clock    markethours.Clock

	indicators map[string]*indicator.Set

	outcomeCh chan model.Outcome

	// Metrics hooks (optional, set externally).
	OnOutcome      func(o model.Outcome)
	OnRiskReject   func(reason string)
	OnDecisionTime func(d time.Duration)
}

// New creates a pipeline engine.
func New(cfg Config, strat strategy.Strategy, riskEngine *risk.Engine, sessions *session.Manager, clock markethours.Clock) *Engine {
	if clock == nil {
		clock = markethours.SystemClock{}
	}
	if cfg.OutcomeBuffer <= 0 {
		cfg.OutcomeBuffer = 1024
	}
	if cfg.IndicatorConfig == (indicator.Config{}) {
		cfg.IndicatorConfig = indicator.DefaultConfig()
	}
	return &Engine{
		cfg:        cfg,
		strat:      strat,
		risk:       riskEngine,
		sessions:   sessions,
		clock:      clock,
		indicators: make(map[string]*indicator.Set),
		outcomeCh:  make(chan model.Outcome, cfg.OutcomeBuffer),
	}
}

// Outcomes returns the stream of terminal decision outcomes.
func (e *Engine) Outcomes() <-chan model.Outcome {
	return e.outcomeCh
}

// WarmUp replays historical candles through the indicator sets only.
// No signals, no outcomes: preload data never drives decisions.
func (e *Engine) WarmUp(candles []model.Candle) {
	for _, c := range candles {
		e.indicatorSet(c.Symbol).Update(c)
	}
	slog.Info("indicators warmed", slog.Int("candles", len(candles)))
}

// Run consumes sealed candles and gap reports until ctx is cancelled.
// In-flight decisions complete before shutdown; the outcome channel is
// closed on exit.
func (e *Engine) Run(ctx context.Context, candleCh <-chan model.Candle, gapCh <-chan candlebuilder.Gap) {
	defer close(e.outcomeCh)
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-candleCh:
			if !ok {
				return
			}
			e.emit(ctx, e.Decide(c))
		case g, ok := <-gapCh:
			if !ok {
				return
			}
			e.emit(ctx, e.gapOutcome(g))
		}
	}
}

// Decide runs the full stage sequence for one sealed candle and returns
// its single terminal outcome.
func (e *Engine) Decide(c model.Candle) model.Outcome {
	started := time.Now()
	defer func() {
		if e.OnDecisionTime != nil {
			e.OnDecisionTime(time.Since(started))
		}
	}()

	now := e.clock.Now()

	// Gate: market-closed or holiday, no new evaluations begin.
	// The candle still gets its one outcome so nothing is dropped
	// silently. The closing grace keeps the 15:15 candle decidable:
	// it seals at or just after 15:30.
	if !markethours.IsMarketOpen(now) && !markethours.InClosingGrace(now) {
		return e.noTrade(c, model.StageAwaitingCandle, model.ReasonMarketClosed, markethours.StatusString(now))
	}

	// VALIDATING
	if ok, reason := validate.Candle(c, e.cfg.MinCandleVolume, now); !ok {
		return e.noTrade(c, model.StageValidating, model.ReasonValidationFailed, reason)
	}

	// INDICATORS. The update is unconditional: even a candle that ends
	// in NO_TRADE advances the indicator state for the next interval.
	set := e.indicatorSet(c.Symbol)
	set.Update(c)
	snap := set.Snapshot()
	if !snap.Ready {
		return e.noTrade(c, model.StageIndicators, model.ReasonIndicatorsNotReady, "")
	}

	// STRATEGY
	sig, err := e.strat.OnCandle(c, snap)
	if err != nil {
		return e.noTrade(c, model.StageStrategy, model.ReasonStrategyError, err.Error())
	}
	if sig.Direction == model.DirectionNoTrade {
		// Explicit no-setup: skips risk evaluation entirely.
		return e.noTrade(c, model.StageStrategy, model.ReasonNoSetup, sig.Reason)
	}

	// RISK
	view := e.sessions.View()
	if view.EntriesHalted {
		o := e.noTrade(c, model.StageRisk, model.ReasonEntriesHalted, view.HaltReason)
		o.Critical = true
		return o
	}
	dec := e.risk.Evaluate(sig, view, now)
	if !dec.Approved {
		if e.OnRiskReject != nil {
			e.OnRiskReject(dec.RejectionReason)
		}
		return e.noTrade(c, model.StageRisk, dec.RejectionReason, "")
	}

	// STATE_UPDATE
	plan := model.TradePlan{
		Symbol:       sig.Symbol,
		Direction:    sig.Direction,
		EntryPrice:   sig.EntryPrice,
		PositionSize: dec.PositionSize,
		StopLoss:     dec.StopLoss,
		Target:       dec.Target,
		Timestamp:    now,
	}
	if err := e.sessions.RecordEntry(plan); err != nil {
		// State cannot be trusted: halt further entries for the
		// session and escalate distinctly from ordinary NO_TRADE.
		e.sessions.HaltEntries(err.Error())
		o := e.noTrade(c, model.StageStateUpdate, model.ReasonStateInconsistency, err.Error())
		o.Critical = true
		return o
	}

	// EMITTED
	return model.Outcome{
		Symbol:     c.Symbol,
		CandleTime: c.IntervalStart,
		Result:     model.ResultTradePlan,
		Stage:      model.StageEmitted,
		Reason:     sig.Reason,
		Plan:       &plan,
		DecidedAt:  now,
	}
}

// gapOutcome records the explicit "no data this interval" decision.
func (e *Engine) gapOutcome(g candlebuilder.Gap) model.Outcome {
	return model.Outcome{
		Symbol:     g.Symbol,
		CandleTime: g.IntervalStart,
		Result:     model.ResultNoTrade,
		Stage:      model.StageAwaitingCandle,
		Reason:     model.ReasonNoData,
		DecidedAt:  e.clock.Now(),
	}
}

func (e *Engine) noTrade(c model.Candle, stage model.Stage, reason, detail string) model.Outcome {
	return model.Outcome{
		Symbol:     c.Symbol,
		CandleTime: c.IntervalStart,
		Result:     model.ResultNoTrade,
		Stage:      stage,
		Reason:     reason,
		Detail:     detail,
		DecidedAt:  e.clock.Now(),
	}
}

// emit logs the outcome and hands it to the outcome channel. Logging
// happens before dispatch so every event is on record even if a consumer
// dies. Emission blocks (bounded by ctx) instead of dropping: exactly
// one outcome per candle also means never zero.
func (e *Engine) emit(ctx context.Context, o model.Outcome) {
	attrs := []any{
		slog.String("trace_id", logger.DecisionTraceID(o.Symbol, o.CandleTime)),
		slog.String("symbol", o.Symbol),
		slog.Time("candle_time", o.CandleTime),
		slog.String("result", string(o.Result)),
		slog.String("stage", string(o.Stage)),
		slog.String("reason", o.Reason),
	}
	if o.Detail != "" {
		attrs = append(attrs, slog.String("detail", o.Detail))
	}
	switch {
	case o.Critical:
		slog.Error("decision", attrs...)
	case o.Result == model.ResultTradePlan:
		attrs = append(attrs,
			slog.Int64("size", o.Plan.PositionSize),
			slog.Int64("entry_paise", o.Plan.EntryPrice),
			slog.Int64("stop_paise", o.Plan.StopLoss),
			slog.Int64("target_paise", o.Plan.Target))
		slog.Info("decision", attrs...)
	default:
		slog.Info("decision", attrs...)
	}

	if e.OnOutcome != nil {
		e.OnOutcome(o)
	}

	select {
	case e.outcomeCh <- o:
	case <-ctx.Done():
	}
}

func (e *Engine) indicatorSet(symbol string) *indicator.Set {
	set, ok := e.indicators[symbol]
	if !ok {
		set = indicator.NewSet(e.cfg.IndicatorConfig)
		e.indicators[symbol] = set
	}
	return set
}
