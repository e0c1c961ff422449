package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"intraday-enginev1/internal/markethours"
	"intraday-enginev1/internal/model"
	"intraday-enginev1/pkg/smartconnect"
)

// Angel caps a single historical request at 200 days for 15m candles.
const fifteenMinuteMaxDays = 200

// Fetcher loads broker-provided 15m candles for indicator warm-up.
// Broker candles are used as-is: no resampling, no gap filling.
type Fetcher struct {
	client *smartconnect.Client

	exchange string
	tokens   map[string]string // symbol -> broker token
}

// NewFetcher creates a historical fetcher for the given symbol/token map.
func NewFetcher(client *smartconnect.Client, exchange string, tokens map[string]string) *Fetcher {
	return &Fetcher{client: client, exchange: exchange, tokens: tokens}
}

// LoadCandles fetches 15m candles for symbol with IntervalStart in
// [from, to], chunked to the broker's max request span, converted to
// paise and ordered by interval start. Rows with inconsistent OHLC are
// skipped with a warning rather than failing the whole preload.
func (f *Fetcher) LoadCandles(ctx context.Context, symbol string, from, to time.Time) ([]model.Candle, error) {
	token, ok := f.tokens[symbol]
	if !ok {
		return nil, fmt.Errorf("marketdata: no token for symbol %s", symbol)
	}

	var out []model.Candle
	maxSpan := fifteenMinuteMaxDays * 24 * time.Hour

	for cursor := from; cursor.Before(to); {
		chunkEnd := cursor.Add(maxSpan)
		if chunkEnd.After(to) {
			chunkEnd = to
		}

		rows, err := f.client.GetCandleData(ctx, smartconnect.CandleParams{
			Exchange:    f.exchange,
			SymbolToken: token,
			Interval:    "FIFTEEN_MINUTE",
			FromDate:    cursor.In(markethours.IST),
			ToDate:      chunkEnd.In(markethours.IST),
		})
		if err != nil {
			return nil, fmt.Errorf("marketdata: fetch %s: %w", symbol, err)
		}

		for _, row := range rows {
			c, ok := convertRow(symbol, row)
			if !ok {
				slog.Warn("historical candle rejected",
					slog.String("symbol", symbol),
					slog.Time("interval_start", row.Timestamp))
				continue
			}
			out = append(out, c)
		}
		cursor = chunkEnd
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].IntervalStart.Before(out[j].IntervalStart)
	})

	slog.Info("historical candles loaded",
		slog.String("symbol", symbol), slog.Int("count", len(out)))
	return out, nil
}

// convertRow turns a rupee-float broker row into a paise candle.
// The broker does not report tick counts for historical data.
func convertRow(symbol string, row smartconnect.CandleRow) (model.Candle, bool) {
	open := toPaise(row.Open)
	high := toPaise(row.High)
	low := toPaise(row.Low)
	closeP := toPaise(row.Close)

	if open <= 0 || high <= 0 || low <= 0 || closeP <= 0 {
		return model.Candle{}, false
	}
	if high < low || high < open || high < closeP || low > open || low > closeP {
		return model.Candle{}, false
	}

	start := row.Timestamp.In(markethours.IST)
	return model.Candle{
		Symbol:        symbol,
		IntervalStart: start,
		IntervalEnd:   start.Add(markethours.Interval),
		Open:          open,
		High:          high,
		Low:           low,
		Close:         closeP,
		Volume:        row.Volume,
		Closed:        true,
	}, true
}

func toPaise(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}
