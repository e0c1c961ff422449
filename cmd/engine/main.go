package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intraday-enginev1/config"
	"intraday-enginev1/internal/candlebuilder"
	"intraday-enginev1/internal/logger"
	"intraday-enginev1/internal/marketdata"
	"intraday-enginev1/internal/markethours"
	"intraday-enginev1/internal/metrics"
	"intraday-enginev1/internal/model"
	"intraday-enginev1/internal/notification"
	"intraday-enginev1/internal/pipeline"
	"intraday-enginev1/internal/risk"
	"intraday-enginev1/internal/session"
	"intraday-enginev1/internal/strategy"
	redisstore "intraday-enginev1/internal/store/redis"
	sqlitestore "intraday-enginev1/internal/store/sqlite"
	"intraday-enginev1/pkg/smartconnect"
)

const (
	tickBuffer    = 10000
	candleBuffer  = 1024
	storeBuffer   = 1024
	sealerPeriod  = 5 * time.Second
	loginRetry    = 30 * time.Second
	minRVOLFilter = 1.2
)

func main() {
	logger.Init("engine", slog.LevelInfo)
	slog.Info("decision engine starting")

	cfg := config.Load()
	instruments := cfg.Instruments()
	symbols := cfg.Symbols()
	if len(symbols) == 0 {
		slog.Error("watchlist is empty")
		os.Exit(1)
	}
	slog.Info("watchlist loaded", slog.Int("symbols", len(symbols)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Stores (off the decision path) ----
	os.MkdirAll("data", 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		slog.Error("sqlite init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sqlWriter.Close()

	redisWriter, err := redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		slog.Warn("redis unavailable, continuing on sqlite alone",
			slog.String("error", err.Error()))
		redisWriter = nil
	}

	if redisWriter != nil {
		health.StartLivenessChecker(ctx, redisWriter.Client(), sqlWriter.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, sqlWriter.DB(), 10*time.Second)
	}

	sqliteCandleCh := make(chan model.Candle, storeBuffer)
	sqliteOutCh := make(chan model.Outcome, storeBuffer)
	go sqlWriter.Run(ctx, sqliteCandleCh)
	go sqlWriter.RunOutcomes(ctx, sqliteOutCh)

	var redisCandleCh chan model.Candle
	var redisOutCh chan model.Outcome
	if redisWriter != nil {
		redisCandleCh = make(chan model.Candle, storeBuffer)
		redisOutCh = make(chan model.Outcome, storeBuffer)
		go redisWriter.Run(ctx, redisCandleCh)
		go redisWriter.RunOutcomes(ctx, redisOutCh)
		defer redisWriter.Close()
	}

	// ---- Notifications ----
	var notifier notification.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifier = notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		slog.Info("telegram notifier enabled")
	} else {
		notifier = notification.NewLogNotifier()
	}
	dispatcher := notification.NewDispatcher(notifier, 256)
	go dispatcher.Run(ctx)

	// ---- Decision core ----
	clock := markethours.SystemClock{}
	sessions := session.NewManager(cfg.Cooldown)
	riskEngine := risk.New(risk.Limits{
		Capital:         cfg.CapitalPaise,
		DailyLossLimit:  cfg.DailyLossLimit,
		MaxTradesPerDay: cfg.MaxTradesPerDay,
		RiskPerTradePct: cfg.RiskPerTradePct,
		StopATRMult:     cfg.StopATRMult,
		TargetRR:        cfg.TargetRR,
	})
	strat := strategy.NewEMACrossover(minRVOLFilter)

	engine := pipeline.New(pipeline.Config{
		MinCandleVolume: cfg.MinCandleVolume,
	}, strat, riskEngine, sessions, clock)
	engine.OnOutcome = func(o model.Outcome) {
		prom.OutcomesTotal.WithLabelValues(string(o.Result)).Inc()
	}
	engine.OnRiskReject = func(reason string) {
		prom.RiskRejects.WithLabelValues(reason).Inc()
	}
	engine.OnDecisionTime = func(d time.Duration) {
		prom.DecisionDur.Observe(d.Seconds())
	}

	// ---- Candle builder ----
	builder := candlebuilder.New(symbols, clock)
	builder.OnDroppedTick = func(reason string) {
		prom.TicksDropped.WithLabelValues(reason).Inc()
	}

	tickCh := make(chan model.Tick, tickBuffer)
	candleCh := make(chan model.Candle, candleBuffer)
	gapCh := make(chan candlebuilder.Gap, candleBuffer)

	// routeCandle feeds the pipeline (blocking: every candle decides)
	// and the stores (non-blocking: persistence never stalls decisions).
	routeCandle := func(c model.Candle) {
		prom.CandlesSealed.Inc()
		select {
		case candleCh <- c:
		case <-ctx.Done():
			return
		}
		select {
		case sqliteCandleCh <- c:
		default:
		}
		if redisCandleCh != nil {
			select {
			case redisCandleCh <- c:
			default:
			}
		}
	}

	// Builder loop: ticks seal candles on boundary cross, the ticker
	// seals elapsed intervals when the feed goes quiet.
	go func() {
		ticker := time.NewTicker(sealerPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case tick := <-tickCh:
				prom.TicksTotal.Inc()
				health.SetLastTickTime(tick.TickTS)
				if sealed := builder.OnTick(tick); sealed != nil {
					routeCandle(*sealed)
				}
			case <-ticker.C:
				now := clock.Now()
				if markethours.IsMarketOpen(now) {
					prom.MarketState.Set(1)
				} else {
					prom.MarketState.Set(0)
				}
				candles, gaps := builder.SealElapsed(now)
				for _, c := range candles {
					routeCandle(c)
				}
				for _, g := range gaps {
					prom.GapsTotal.Inc()
					select {
					case gapCh <- g:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	// ---- Pipeline ----
	go engine.Run(ctx, candleCh, gapCh)

	// Outcome fan-out: notifications and stores, all best-effort.
	go func() {
		for o := range engine.Outcomes() {
			dispatcher.Enqueue(o)
			select {
			case sqliteOutCh <- o:
			default:
				slog.Warn("sqlite outcome channel full, dropping record")
			}
			if redisOutCh != nil {
				select {
				case redisOutCh <- o:
				default:
				}
			}
			view := sessions.View()
			if view.EntriesHalted {
				prom.EntriesHalted.Set(1)
			} else {
				prom.EntriesHalted.Set(0)
			}
			prom.DailyPnLPaise.Set(float64(view.DailyPnL))
			prom.TradesToday.Set(float64(view.TradeCount))
		}
	}()

	// ---- Broker session loop: preload, feed, trading session ----
	go runTradingSessions(ctx, cfg, instruments, builder, engine, sessions, prom, health, clock, tickCh, routeCandle)

	slog.Info("decision engine ready", slog.String("market", markethours.StatusString(clock.Now())))

	<-sigCh
	slog.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)

	slog.Info("shutdown complete")
}

// runTradingSessions drives the daily lifecycle: wait for market open,
// log in fresh, warm up indicators from broker history, start the trade
// session and the tick feed, then wind everything down at market close.
func runTradingSessions(
	ctx context.Context,
	cfg *config.Config,
	instruments []config.Instrument,
	builder *candlebuilder.Builder,
	engine *pipeline.Engine,
	sessions *session.Manager,
	prom *metrics.Metrics,
	health *metrics.HealthStatus,
	clock markethours.Clock,
	tickCh chan model.Tick,
	routeCandle func(model.Candle),
) {
	warmed := false

	for {
		now := clock.Now()
		if !markethours.IsMarketOpen(now) {
			next := markethours.NextOpen(now)
			slog.Info("market closed, waiting for next open",
				slog.String("status", markethours.StatusString(now)),
				slog.Time("next_open", next))
			health.SetWSConnected(false)
			select {
			case <-ctx.Done():
				return
			case <-time.After(next.Sub(now)):
			}
			continue
		}

		// Fresh login each session day.
		client := smartconnect.NewClient(smartconnect.Config{
			APIKey:     cfg.AngelAPIKey,
			ClientCode: cfg.AngelClientCode,
			Password:   cfg.AngelPassword,
			TOTPSecret: cfg.AngelTOTPSecret,
		})
		sess, err := client.Login(ctx)
		if err != nil {
			slog.Error("broker login failed, retrying",
				slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return
			case <-time.After(loginRetry):
			}
			continue
		}
		slog.Info("broker session established")

		if !warmed {
			preload(ctx, cfg, client, instruments, engine, clock)
			warmed = true
		}

		sessions.StartSession(clock.Now())
		health.SetSessionActive(true)

		// Feed runs until market close or shutdown.
		closeTime := markethours.SessionClose(clock.Now())
		feedCtx, feedCancel := context.WithDeadline(ctx, closeTime)

		feed, err := marketdata.NewFeed(marketdata.FeedConfig{
			AuthToken:   sess.AccessToken,
			APIKey:      cfg.AngelAPIKey,
			ClientCode:  cfg.AngelClientCode,
			FeedToken:   sess.FeedToken,
			Instruments: instruments,
		})
		if err != nil {
			slog.Error("feed init failed", slog.String("error", err.Error()))
			feedCancel()
			sessions.EndSession()
			health.SetSessionActive(false)
			select {
			case <-ctx.Done():
				return
			case <-time.After(loginRetry):
			}
			continue
		}
		feed.OnReconnect = func() { prom.WSReconnects.Inc() }
		feed.OnStateChange = func(connected bool) { health.SetWSConnected(connected) }

		if err := feed.Start(feedCtx, tickCh); err != nil {
			slog.Error("feed terminated", slog.String("error", err.Error()))
		}
		feedCancel()

		// Market close: force-seal any open partials and route them like
		// any other sealed candle so each still gets its one outcome
		// (the validator rejects short partials downstream), then close
		// the trade session and log out.
		for _, c := range builder.ForceSeal(clock.Now()) {
			slog.Info("partial candle force-sealed at close",
				slog.String("symbol", c.Symbol),
				slog.Time("interval_start", c.IntervalStart))
			routeCandle(c)
		}
		finalView := sessions.EndSession()
		health.SetSessionActive(false)
		slog.Info("trading session closed",
			slog.Int64("daily_pnl_paise", finalView.DailyPnL),
			slog.Int("trades", finalView.TradeCount))

		logoutCtx, logoutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := client.Logout(logoutCtx); err != nil {
			slog.Warn("broker logout failed", slog.String("error", err.Error()))
		}
		logoutCancel()

		if ctx.Err() != nil {
			return
		}
	}
}

// preload warms the indicator sets from broker-provided history so the
// engine can produce signals from the first live candle.
func preload(
	ctx context.Context,
	cfg *config.Config,
	client *smartconnect.Client,
	instruments []config.Instrument,
	engine *pipeline.Engine,
	clock markethours.Clock,
) {
	tokens := make(map[string]string, len(instruments))
	exchange := "NSE"
	for _, in := range instruments {
		tokens[in.Symbol] = in.Token
		exchange = in.Exchange
	}
	fetcher := marketdata.NewFetcher(client, exchange, tokens)

	now := clock.Now()
	// Calendar window wide enough to cover PreloadDays trading days.
	from := now.AddDate(0, 0, -(cfg.PreloadDays*2 + 4))

	var all []model.Candle
	for _, in := range instruments {
		candles, err := fetcher.LoadCandles(ctx, in.Symbol, from, now)
		if err != nil {
			slog.Warn("historical preload failed, indicators will warm up live",
				slog.String("symbol", in.Symbol), slog.String("error", err.Error()))
			continue
		}
		all = append(all, candles...)
	}
	engine.WarmUp(all)
}
