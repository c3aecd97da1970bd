package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"trendsignals/internal/model"
)

// Config holds all application configuration loaded from environment
// variables.
type Config struct {
	// Exchange endpoints
	APIBaseURL    string
	StreamBaseURL string

	// Storage
	DataDir    string // per-symbol candle databases
	SignalsDB  string
	UniverseDB string // filtered-symbols db; empty means use Symbols list
	Symbols    string // comma-separated fallback universe

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	MetricsAddr   string

	// Series
	Timeframes   string // comma-separated tags, e.g. "15m,1h,4h"
	BackfillDays int
	PageLimit    int

	// Scheduling
	SyncInterval time.Duration
	EvalInterval time.Duration

	LogLevel string
}

// Load reads configuration from environment variables with sensible
// defaults.
func Load() *Config {
	return &Config{
		APIBaseURL:    getEnv("API_BASE_URL", "https://api.binance.com"),
		StreamBaseURL: getEnv("STREAM_BASE_URL", "wss://stream.binance.com:9443/stream"),

		DataDir:    getEnv("DATA_DIR", "data/candles"),
		SignalsDB:  getEnv("SIGNALS_DB", "data/signals.db"),
		UniverseDB: getEnv("UNIVERSE_DB", ""),
		Symbols:    getEnv("SYMBOLS", "BTCUSDT,ETHUSDT"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		Timeframes:   getEnv("TIMEFRAMES", "15m,1h,4h"),
		BackfillDays: getEnvInt("BACKFILL_DAYS", 60),
		PageLimit:    getEnvInt("PAGE_LIMIT", 1000),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 15*time.Minute),
		EvalInterval: getEnvDuration("EVAL_INTERVAL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ParseTimeframes parses the configured timeframe tags, dying on an
// unknown tag. A misconfigured timeframe is a config-level failure.
func (c *Config) ParseTimeframes() []model.Timeframe {
	tfs, err := model.ParseTimeframes(c.Timeframes)
	if err != nil {
		log.Fatalf("[config] TIMEFRAMES: %v", err)
	}
	if len(tfs) == 0 {
		log.Fatalf("[config] TIMEFRAMES is empty")
	}
	return tfs
}

// ParseSymbols parses the fallback symbol list.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BackfillHorizon returns the configured horizon as a duration.
func (c *Config) BackfillHorizon() time.Duration {
	return time.Duration(c.BackfillDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
