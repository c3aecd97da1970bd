// Package redis keeps the live path's hot state: the latest indicator
// row per (symbol, timeframe) and a pub/sub channel for fresh signals.
// Persistence of candles and signals stays in SQLite; Redis is a cache
// for downstream consumers and is never read back by the core.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trendsignals/internal/model"
)

const (
	defaultLatestTTL = 30 * time.Minute
	signalChannel    = "pub:signals"
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes latest indicator rows and publishes signals.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New connects to Redis and pings the server.
func New(cfg Config) (*Publisher, error) {
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

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// SetLatestRow caches the newest indicator row for one series.
// Key: "ind:latest:{symbol}:{tf}".
func (p *Publisher) SetLatestRow(ctx context.Context, symbol string, tf model.Timeframe, row model.IndicatorRow) error {
	key := "ind:latest:" + symbol + ":" + string(tf)
	if err := p.client.Set(ctx, key, row.JSON(), defaultLatestTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// PublishSignal announces a freshly stored signal on the signal channel.
func (p *Publisher) PublishSignal(ctx context.Context, sig model.Signal) error {
	if err := p.client.Publish(ctx, signalChannel, sig.JSON()).Err(); err != nil {
		return fmt.Errorf("redis publish signal: %w", err)
	}
	return nil
}

// Close closes the connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
