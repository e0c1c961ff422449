// Package marketdata adapts the broker SDK to the engine: it turns the
// WebSocket stream into model.Tick values and the historical candle API
// into preload candles.
package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"intraday-enginev1/config"
	"intraday-enginev1/internal/markethours"
	"intraday-enginev1/internal/model"
	"intraday-enginev1/pkg/smartconnect"
)

var exchangeTypeCodes = map[string]int{
	"NSE": smartconnect.ExchangeNSECM,
	"NFO": smartconnect.ExchangeNSEFO,
	"BSE": smartconnect.ExchangeBSECM,
}

// FeedConfig holds credentials and the instrument watchlist.
type FeedConfig struct {
	AuthToken  string
	APIKey     string
	ClientCode string
	FeedToken  string

	Instruments []config.Instrument
}

// Feed connects to the broker WebSocket and pushes normalized ticks
// into a channel. Unknown tokens are dropped: only watchlist symbols
// reach the candle builder.
type Feed struct {
	cfg    FeedConfig
	stream *smartconnect.Stream

	tokenToSymbol map[string]string

	// Optional metrics hooks.
	OnTick        func()
	OnDropped     func(reason string)
	OnReconnect   func()
	OnStateChange func(connected bool)
}

// NewFeed creates a feed for the configured watchlist.
func NewFeed(cfg FeedConfig) (*Feed, error) {
	stream, err := smartconnect.NewStream(cfg.AuthToken, cfg.APIKey, cfg.ClientCode, cfg.FeedToken)
	if err != nil {
		return nil, fmt.Errorf("marketdata: create stream: %w", err)
	}

	tokenToSymbol := make(map[string]string, len(cfg.Instruments))
	for _, in := range cfg.Instruments {
		tokenToSymbol[in.Token] = in.Symbol
	}

	return &Feed{cfg: cfg, stream: stream, tokenToSymbol: tokenToSymbol}, nil
}

// Start connects, subscribes the watchlist in quote mode (LTP mode has
// no traded quantity, which candle volume needs), and streams ticks
// into tickCh until ctx is cancelled. Enqueue never blocks the read
// loop: a full channel drops the tick.
func (f *Feed) Start(ctx context.Context, tickCh chan<- model.Tick) error {
	f.stream.OnConnect = func() {
		slog.Info("market feed connected", slog.Int("instruments", len(f.cfg.Instruments)))
		if f.OnStateChange != nil {
			f.OnStateChange(true)
		}
		if err := f.stream.Subscribe("decision_engine", smartconnect.ModeQuote, f.tokenList()); err != nil {
			slog.Error("market feed subscribe failed", slog.String("error", err.Error()))
		}
	}

	f.stream.OnTick = func(msg smartconnect.TickMessage) {
		symbol, ok := f.tokenToSymbol[msg.Token]
		if !ok {
			if f.OnDropped != nil {
				f.OnDropped("unknown_token")
			}
			return
		}
		if f.OnTick != nil {
			f.OnTick()
		}

		ts := msg.ExchangeTimestamp
		if ts.IsZero() {
			ts = time.Now()
		}

		tick := model.Tick{
			Symbol: symbol,
			Price:  msg.LastTradedPrice,
			Qty:    msg.LastTradedQty,
			TickTS: ts.In(markethours.IST),
		}

		select {
		case tickCh <- tick:
		default:
			if f.OnDropped != nil {
				f.OnDropped("channel_full")
			}
		}
	}

	f.stream.OnReconnect = func() {
		if f.OnStateChange != nil {
			f.OnStateChange(false)
		}
		if f.OnReconnect != nil {
			f.OnReconnect()
		}
	}

	f.stream.OnError = func(err error) {
		slog.Error("market feed error", slog.String("error", err.Error()))
	}

	if err := f.stream.Connect(); err != nil {
		return fmt.Errorf("marketdata: connect: %w", err)
	}

	<-ctx.Done()
	f.stream.Close()
	if f.OnStateChange != nil {
		f.OnStateChange(false)
	}
	return nil
}

// tokenList groups watchlist tokens by stream exchange code.
func (f *Feed) tokenList() []smartconnect.TokenListEntry {
	byExchange := make(map[int][]string)
	for _, in := range f.cfg.Instruments {
		code, ok := exchangeTypeCodes[in.Exchange]
		if !ok {
			slog.Warn("skipping instrument on unsupported exchange",
				slog.String("symbol", in.Symbol), slog.String("exchange", in.Exchange))
			continue
		}
		byExchange[code] = append(byExchange[code], in.Token)
	}

	out := make([]smartconnect.TokenListEntry, 0, len(byExchange))
	for code, tokens := range byExchange {
		out = append(out, smartconnect.TokenListEntry{ExchangeType: code, Tokens: tokens})
	}
	return out
}
