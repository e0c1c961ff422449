package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the immutable per-session configuration snapshot loaded
// from environment variables. Required trading values have no defaults:
// startup fails loudly rather than trading on a silently substituted
// number.
type Config struct {
	// Angel One credentials
	AngelAPIKey     string
	AngelClientCode string
	AngelPassword   string
	AngelTOTPSecret string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string

	// Notification (optional; log-only notifier when unset)
	TelegramBotToken string
	TelegramChatID   string

	// Watchlist: comma-separated "symbol:exchange:token" triplets,
	// e.g. "SBIN-EQ:NSE:3045,RELIANCE-EQ:NSE:2885"
	Watchlist string

	// Risk parameters (all required)
	CapitalPaise    int64   // trading capital in paise
	DailyLossLimit  int64   // max daily loss in paise (positive number)
	MaxTradesPerDay int
	Cooldown        time.Duration // per-symbol cooldown after entry
	RiskPerTradePct float64       // % of capital risked per trade
	MinCandleVolume int64         // validator volume floor

	// Sizing derivation
	StopATRMult float64 // stop distance = ATR * mult
	TargetRR    float64 // target distance = stop distance * RR

	// Historical preload window (trading days of 15m candles)
	PreloadDays int
}

// Instrument is one parsed watchlist entry.
type Instrument struct {
	Symbol   string
	Exchange string
	Token    string
}

// Load reads configuration from environment variables. Missing required
// values abort startup.
func Load() *Config {
	return &Config{
		AngelAPIKey:     mustEnv("ANGEL_API_KEY"),
		AngelClientCode: mustEnv("ANGEL_CLIENT_CODE"),
		AngelPassword:   mustEnv("ANGEL_PASSWORD"),
		AngelTOTPSecret: mustEnv("ANGEL_TOTP_SECRET"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/decisions.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		Watchlist: mustEnv("WATCHLIST"),

		CapitalPaise:    mustEnvInt64("CAPITAL_PAISE"),
		DailyLossLimit:  mustEnvInt64("DAILY_LOSS_LIMIT_PAISE"),
		MaxTradesPerDay: int(mustEnvInt64("MAX_TRADES_PER_DAY")),
		Cooldown:        time.Duration(mustEnvInt64("COOLDOWN_MINUTES")) * time.Minute,
		RiskPerTradePct: mustEnvFloat("RISK_PER_TRADE_PCT"),
		MinCandleVolume: mustEnvInt64("MIN_CANDLE_VOLUME"),

		StopATRMult: getEnvFloat("STOP_ATR_MULT", 1.5),
		TargetRR:    getEnvFloat("TARGET_RR", 2.0),

		PreloadDays: int(getEnvInt64("PRELOAD_DAYS", 5)),
	}
}

// Instruments parses the watchlist into instrument entries, skipping
// malformed triplets with a warning.
func (c *Config) Instruments() []Instrument {
	parts := strings.Split(c.Watchlist, ",")
	out := make([]Instrument, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.Split(p, ":")
		if len(fields) != 3 {
			log.Printf("[config] skipping malformed watchlist entry: %q", p)
			continue
		}
		out = append(out, Instrument{Symbol: fields[0], Exchange: fields[1], Token: fields[2]})
	}
	return out
}

// Symbols returns just the symbol names of the watchlist.
func (c *Config) Symbols() []string {
	ins := c.Instruments()
	out := make([]string, 0, len(ins))
	for _, in := range ins {
		out = append(out, in.Symbol)
	}
	return out
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func mustEnvInt64(key string) int64 {
	n, err := strconv.ParseInt(mustEnv(key), 10, 64)
	if err != nil {
		log.Fatalf("[config] env var %s must be an integer: %v", key, err)
	}
	return n
}

func mustEnvFloat(key string) float64 {
	f, err := strconv.ParseFloat(mustEnv(key), 64)
	if err != nil {
		log.Fatalf("[config] env var %s must be a number: %v", key, err)
	}
	return f
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
