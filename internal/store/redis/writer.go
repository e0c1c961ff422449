// Package redis publishes sealed candles and decision outcomes to Redis
// for downstream consumers (dashboards, journals, paper-trade executors).
// Writes are best-effort: a Redis failure is logged and the decision path
// continues on the local store alone.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"intraday-enginev1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: ~30 sessions of 15m candles (25 per day) + buffer.
	candleStreamMaxLen  = 1000
	outcomeStreamMaxLen = 2000
	defaultLatestTTL    = 24 * time.Hour
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer writes 15m candles and decision outcomes to Redis.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", slog.String("addr", cfg.Addr))
	return &Writer{client: client}, nil
}

// Run reads sealed 15m candles from candleCh and writes them to Redis.
// Blocks until ctx is cancelled or candleCh is closed.
func (w *Writer) Run(ctx context.Context, candleCh <-chan model.Candle) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-candleCh:
			if !ok {
				return
			}
			w.writeCandle(ctx, c)
		}
	}
}

// RunOutcomes reads decision outcomes and writes them to Redis Streams.
// Blocks until ctx is cancelled or the channel is closed.
func (w *Writer) RunOutcomes(ctx context.Context, outCh <-chan model.Outcome) {
	for {
		select {
		case <-ctx.Done():
			return
		case o, ok := <-outCh:
			if !ok {
				return
			}
			w.writeOutcome(ctx, o)
		}
	}
}

// writeCandle performs pipelined writes for a sealed candle:
// SET latest + XADD to the symbol stream + PUBLISH for live subscribers.
func (w *Writer) writeCandle(ctx context.Context, c model.Candle) {
	latestKey := "candle:15m:latest:" + c.Symbol
	streamKey := "candle:15m:" + c.Symbol
	pubsubCh := "pub:candle:15m:" + c.Symbol
	jsonData := string(c.JSON())

	pipe := w.client.Pipeline()

	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)

	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: candleStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": jsonData,
		},
	})

	pipe.Publish(ctx, pubsubCh, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("redis candle pipeline failed",
			slog.String("symbol", c.Symbol), slog.String("error", err.Error()))
	}
}

// writeOutcome publishes a decision outcome to its symbol stream and,
// for approved trade plans, to a dedicated plan stream that executors
// can tail without filtering NO_TRADE noise.
func (w *Writer) writeOutcome(ctx context.Context, o model.Outcome) {
	payload, err := json.Marshal(o)
	if err != nil {
		slog.Error("redis outcome marshal failed", slog.String("error", err.Error()))
		return
	}
	jsonData := string(payload)

	pipe := w.client.Pipeline()

	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: "outcome:" + o.Symbol,
		MaxLen: outcomeStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": jsonData,
		},
	})
	pipe.Set(ctx, "outcome:latest:"+o.Symbol, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, "pub:outcome:"+o.Symbol, jsonData)

	if o.Result == model.ResultTradePlan && o.Plan != nil {
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: "tradeplan:" + o.Symbol,
			MaxLen: outcomeStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"data": jsonData,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("redis outcome pipeline failed",
			slog.String("symbol", o.Symbol), slog.String("error", err.Error()))
	}
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
