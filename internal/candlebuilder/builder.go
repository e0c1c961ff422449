// Package candlebuilder turns a stream of ticks into sealed, immutable
// 15-minute candles. Each watched symbol owns one open bucket at a time;
// a bucket is sealed when a tick crosses into the next interval or when
// the injected clock reports the boundary has passed. Ticks are never
// attributed retroactively: once an interval is resolved it stays
// resolved, and a tick for an older interval is dropped and counted.
//
// Silence is observable: an interval that elapses with no ticks for a
// watched symbol is reported as a Gap so the pipeline can record an
// explicit "no data" outcome instead of failing silently.
package candlebuilder

import (
	"sync"
	"time"

	"intraday-enginev1/internal/markethours"
	"intraday-enginev1/internal/model"
)

// Gap reports an elapsed in-session interval during which no ticks
// arrived for a symbol. No candle exists for it, by design.
type Gap struct {
	Symbol        string
	IntervalStart time.Time
	IntervalEnd   time.Time
}

// bucket holds the in-progress candle for one symbol.
type bucket struct {
	start  time.Time
	end    time.Time
	candle model.Candle
}

// Builder aggregates ticks into 15m candles for a fixed watchlist.
// Safe for one ingest goroutine plus one sealing goroutine.
type Builder struct {
	mu      sync.Mutex
	buckets map[string]*bucket // symbol → open bucket

	// cursor is the start of the earliest interval not yet resolved
	// (sealed or reported as a gap) per symbol.
	cursor map[string]time.Time

	// lastTick rejects out-of-order ticks per symbol.
	lastTick map[string]time.Time

	clock markethours.Clock

	// Metrics hooks (optional, set externally). Reasons: "off_hours",
	// "out_of_order", "stale_interval", "unwatched".
	OnDroppedTick func(reason string)
}

// New creates a Builder for the given symbols.
func New(symbols []string, clock markethours.Clock) *Builder {
	if clock == nil {
		clock = markethours.SystemClock{}
	}
	b := &Builder{
		buckets:  make(map[string]*bucket, len(symbols)),
		cursor:   make(map[string]time.Time, len(symbols)),
		lastTick: make(map[string]time.Time, len(symbols)),
		clock:    clock,
	}
	for _, s := range symbols {
		b.cursor[s] = time.Time{} // anchored on first tick or first seal pass
	}
	return b
}

// OnTick accumulates a tick into the active bucket for tick.Symbol.
// Returns the sealed candle when the tick crosses an interval boundary,
// nil otherwise. Pre-market/post-market ticks are discarded without
// touching any bucket.
func (b *Builder) OnTick(tick model.Tick) *model.Candle {
	ts := tick.TickTS.In(markethours.IST)

	if !inSession(ts) {
		b.drop("off_hours")
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, watched := b.cursor[tick.Symbol]; !watched {
		b.dropLocked("unwatched")
		return nil
	}

	// Ordering defense: never accept a tick older than the last one seen.
	if last, ok := b.lastTick[tick.Symbol]; ok && ts.Before(last) {
		b.dropLocked("out_of_order")
		return nil
	}
	b.lastTick[tick.Symbol] = ts

	start := markethours.IntervalStart(ts)

	// A tick for an interval that has already been resolved can never
	// reopen it.
	if cur := b.cursor[tick.Symbol]; !cur.IsZero() && start.Before(cur) {
		b.dropLocked("stale_interval")
		return nil
	}

	bk := b.buckets[tick.Symbol]

	if bk != nil && !ts.Before(bk.end) {
		// Boundary crossed: seal the previous bucket before the new
		// interval begins.
		sealed := b.sealLocked(tick.Symbol, bk, bk.end)
		b.startBucket(tick, start)
		return &sealed
	}

	if bk == nil {
		if b.cursor[tick.Symbol].IsZero() {
			b.cursor[tick.Symbol] = start
		}
		b.startBucket(tick, start)
		return nil
	}

	// Same interval, update OHLCV.
	c := &bk.candle
	if tick.Price > c.High {
		c.High = tick.Price
	}
	if tick.Price < c.Low {
		c.Low = tick.Price
	}
	c.Close = tick.Price
	c.Volume += tick.Qty
	c.Ticks++
	return nil
}

// SealElapsed resolves every interval that has fully elapsed as of now:
// open buckets whose boundary passed are sealed and returned; watched
// symbols with no bucket for an elapsed in-session interval produce a
// Gap. Sealing is driven by time, not tick arrival, so the last candle
// of the session closes without needing a next tick.
func (b *Builder) SealElapsed(now time.Time) ([]model.Candle, []Gap) {
	now = now.In(markethours.IST)

	b.mu.Lock()
	defer b.mu.Unlock()

	var candles []model.Candle
	var gaps []Gap

	for sym, cur := range b.cursor {
		if cur.IsZero() {
			// No tick seen yet: anchor at session open once the first
			// in-session interval has elapsed.
			if !markethours.IsTradingDay(now) {
				continue
			}
			open := markethours.SessionOpen(now)
			if now.Before(open.Add(markethours.Interval)) {
				continue
			}
			cur = open
			b.cursor[sym] = cur
		}

		for !cur.Add(markethours.Interval).After(now) {
			end := cur.Add(markethours.Interval)
			if !intervalInSession(cur) {
				b.cursor[sym] = end
				cur = end
				continue
			}
			if bk := b.buckets[sym]; bk != nil && bk.start.Equal(cur) {
				candles = append(candles, b.sealLocked(sym, bk, end))
			} else {
				gaps = append(gaps, Gap{Symbol: sym, IntervalStart: cur, IntervalEnd: end})
				b.cursor[sym] = end
			}
			cur = end
		}
	}
	return candles, gaps
}

// ForceSeal seals every open bucket regardless of boundary, stamping
// interval_end with the seal time. Used on shutdown; partially covered
// candles fail downstream validation rather than silently pretending to
// span the full interval.
func (b *Builder) ForceSeal(now time.Time) []model.Candle {
	now = now.In(markethours.IST)

	b.mu.Lock()
	defer b.mu.Unlock()

	var candles []model.Candle
	for sym, bk := range b.buckets {
		end := bk.end
		if now.Before(end) {
			end = now
		}
		candles = append(candles, b.sealLocked(sym, bk, end))
	}
	return candles
}

// sealLocked finalizes a bucket, advances the symbol cursor, and returns
// an immutable copy. Caller holds b.mu.
func (b *Builder) sealLocked(symbol string, bk *bucket, end time.Time) model.Candle {
	bk.candle.IntervalEnd = end
	bk.candle.Closed = true
	sealed := bk.candle
	delete(b.buckets, symbol)
	b.cursor[symbol] = bk.start.Add(markethours.Interval)
	return sealed
}

func (b *Builder) startBucket(tick model.Tick, start time.Time) {
	b.buckets[tick.Symbol] = &bucket{
		start: start,
		end:   start.Add(markethours.Interval),
		candle: model.Candle{
			Symbol:        tick.Symbol,
			IntervalStart: start,
			IntervalEnd:   start.Add(markethours.Interval),
			Open:          tick.Price,
			High:          tick.Price,
			Low:           tick.Price,
			Close:         tick.Price,
			Volume:        tick.Qty,
			Ticks:         1,
		},
	}
}

func (b *Builder) drop(reason string) {
	if b.OnDroppedTick != nil {
		b.OnDroppedTick(reason)
	}
}

// dropLocked mirrors drop for call sites holding b.mu; the hook must not
// call back into the builder.
func (b *Builder) dropLocked(reason string) {
	if b.OnDroppedTick != nil {
		b.OnDroppedTick(reason)
	}
}

// inSession reports whether a tick timestamp is inside trading hours on
// a trading day.
func inSession(ts time.Time) bool {
	return markethours.IsMarketOpen(ts)
}

// intervalInSession reports whether an interval starting at start belongs
// to the trading session grid (09:15 ≤ start and end ≤ 15:30 on a
// trading day).
func intervalInSession(start time.Time) bool {
	if !markethours.IsTradingDay(start) {
		return false
	}
	open := markethours.SessionOpen(start)
	close := markethours.SessionClose(start)
	end := start.Add(markethours.Interval)
	return !start.Before(open) && !end.After(close)
}
