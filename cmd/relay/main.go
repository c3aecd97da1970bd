// cmd/relay keeps the candle stores near-real-time: it consumes the
// combined kline websocket and upserts every closed candle.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trendsignals/config"
	"trendsignals/internal/exchange"
	"trendsignals/internal/logger"
	"trendsignals/internal/marketdata/relay"
	"trendsignals/internal/metrics"
	"trendsignals/internal/model"
	sqlitestore "trendsignals/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	logger.Init("relay", logger.ParseLevel(cfg.LogLevel))
	tfs := cfg.ParseTimeframes()

	store, err := sqlitestore.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("[relay] store init failed: %v", err)
	}
	defer store.Close()

	symbols := resolveSymbols(cfg)
	if len(symbols) == 0 {
		log.Fatalf("[relay] no symbols to subscribe")
	}

	prom := metrics.New()
	health := metrics.NewHealthStatus()
	health.SetSQLiteOK(true)
	metrics.NewServer(cfg.MetricsAddr, health).Start()

	rl := relay.New(store, 0)
	rl.OnUpsert = func(_ string, tf model.Timeframe) {
		prom.RelayUpserts.WithLabelValues(string(tf)).Inc()
	}
	rl.OnDrop = prom.RelayDrops.Inc

	stream := exchange.NewStream(exchange.StreamConfig{
		BaseURL:    cfg.StreamBaseURL,
		Symbols:    symbols,
		Timeframes: tfs,
	})
	stream.OnEvent = func(ev exchange.StreamEvent) {
		health.SetLastEventTime(time.Now())
		rl.Enqueue(ev)
	}
	stream.OnConnect = func() {
		health.SetStreamConnected(true)
	}
	stream.OnDisconnect = func() {
		health.SetStreamConnected(false)
		prom.StreamReconnects.Inc()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[relay] shutdown requested")
		cancel()
	}()

	go rl.Run(ctx)

	log.Printf("[relay] subscribing %d symbols x %d timeframes", len(symbols), len(tfs))
	if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("[relay] stream: %v", err)
	}
	log.Println("[relay] stopped")
}

// resolveSymbols prefers the filtered-symbols database, falling back to
// the static SYMBOLS list.
func resolveSymbols(cfg *config.Config) []string {
	if cfg.UniverseDB == "" {
		return cfg.ParseSymbols()
	}
	u, err := sqlitestore.OpenUniverse(cfg.UniverseDB)
	if err != nil {
		log.Fatalf("[relay] universe db: %v", err)
	}
	defer u.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	symbols, err := u.Symbols(ctx)
	if err != nil {
		log.Fatalf("[relay] universe read: %v", err)
	}
	return symbols
}
