// cmd/backtest replays stored 15m candles from SQLite through the full
// decision pipeline to validate strategy and risk behavior without live
// market data. The clock is driven by candle time, so market-hours
// gating and validation behave exactly as they would have live.
//
// Usage:
//
//	go run ./cmd/backtest --db=data/decisions.db --symbol=SBIN-EQ --from=2026-08-01 --to=2026-08-28
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"intraday-enginev1/internal/logger"
	"intraday-enginev1/internal/markethours"
	"intraday-enginev1/internal/model"
	"intraday-enginev1/internal/pipeline"
	"intraday-enginev1/internal/risk"
	"intraday-enginev1/internal/session"
	"intraday-enginev1/internal/strategy"
	sqlitestore "intraday-enginev1/internal/store/sqlite"
)

// replayClock is advanced by the replay loop to each candle's close
// time, so every decision sees "now" as it was when the candle sealed.
type replayClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *replayClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *replayClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func main() {
	logger.Init("backtest", slog.LevelWarn)

	dbPath := flag.String("db", "data/decisions.db", "Path to SQLite database")
	symbol := flag.String("symbol", "", "Symbol to replay (empty = all stored symbols)")
	fromStr := flag.String("from", "", "Start date YYYY-MM-DD (empty = epoch)")
	toStr := flag.String("to", "", "End date YYYY-MM-DD inclusive (empty = today)")
	capital := flag.Int64("capital", 10_00_000_00, "Capital in paise")
	lossLimit := flag.Int64("loss-limit", 20_000_00, "Daily loss limit in paise")
	maxTrades := flag.Int("max-trades", 5, "Max trades per day")
	riskPct := flag.Float64("risk-pct", 1.0, "Percent of capital risked per trade")
	minVolume := flag.Int64("min-volume", 0, "Validator volume floor")
	flag.Parse()

	from, to := parseWindow(*fromStr, *toStr)

	reader, err := sqlitestore.NewReader(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqlite open failed: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	symbols := []string{*symbol}
	if *symbol == "" {
		symbols, err = reader.Symbols()
		if err != nil || len(symbols) == 0 {
			fmt.Fprintln(os.Stderr, "no symbols found in database")
			os.Exit(1)
		}
	}

	clock := &replayClock{}
	sessions := session.NewManager(30 * time.Minute)
	riskEngine := risk.New(risk.Limits{
		Capital:         *capital,
		DailyLossLimit:  *lossLimit,
		MaxTradesPerDay: *maxTrades,
		RiskPerTradePct: *riskPct,
		StopATRMult:     1.5,
		TargetRR:        2.0,
	})
	engine := pipeline.New(pipeline.Config{
		MinCandleVolume: *minVolume,
	}, strategy.NewEMACrossover(0), riskEngine, sessions, clock)

	// Load and merge all symbols in interval order.
	var all []model.Candle
	for _, sym := range symbols {
		candles, err := reader.ReadCandles(sym, from, to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", sym, err)
			os.Exit(1)
		}
		all = append(all, candles...)
	}
	sortByInterval(all)

	if len(all) == 0 {
		fmt.Println("no candles in the selected window")
		return
	}

	var (
		decided    int
		plans      int
		noTrades   int
		byReason   = make(map[string]int)
		sessionDay string
	)

	for _, c := range all {
		// New trading day: roll the session the way the live engine does.
		day := c.IntervalStart.In(markethours.IST).Format("2006-01-02")
		if day != sessionDay {
			if sessions.Active() {
				sessions.EndSession()
			}
			clock.Set(markethours.SessionOpen(c.IntervalStart))
			sessions.StartSession(c.IntervalStart)
			sessionDay = day
		}

		clock.Set(c.IntervalEnd)
		o := engine.Decide(c)
		decided++

		switch o.Result {
		case model.ResultTradePlan:
			plans++
			p := o.Plan
			fmt.Printf("[%s] %s %s entry=%.2f size=%d stop=%.2f target=%.2f\n",
				c.IntervalStart.Format("2006-01-02 15:04"), p.Direction, p.Symbol,
				rupees(p.EntryPrice), p.PositionSize, rupees(p.StopLoss), rupees(p.Target))
		default:
			noTrades++
			byReason[o.Reason]++
		}
	}
	if sessions.Active() {
		sessions.EndSession()
	}

	fmt.Println()
	fmt.Println("=== replay complete ===")
	fmt.Printf("candles:     %d\n", decided)
	fmt.Printf("trade plans: %d\n", plans)
	fmt.Printf("no-trades:   %d\n", noTrades)
	for reason, n := range byReason {
		fmt.Printf("  %-28s %d\n", reason, n)
	}
}

func parseWindow(fromStr, toStr string) (time.Time, time.Time) {
	from := time.Unix(0, 0)
	to := time.Now().In(markethours.IST)

	if fromStr != "" {
		t, err := time.ParseInLocation("2006-01-02", fromStr, markethours.IST)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad --from date: %v\n", err)
			os.Exit(1)
		}
		from = t
	}
	if toStr != "" {
		t, err := time.ParseInLocation("2006-01-02", toStr, markethours.IST)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad --to date: %v\n", err)
			os.Exit(1)
		}
		to = t.AddDate(0, 0, 1)
	}
	return from, to
}

func sortByInterval(candles []model.Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].IntervalStart.Before(candles[j].IntervalStart)
	})
}

func rupees(paise int64) float64 { return float64(paise) / 100.0 }
