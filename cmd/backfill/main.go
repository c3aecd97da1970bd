// cmd/backfill syncs historical klines for the symbol universe into the
// per-symbol candle stores, advancing each series' watermark until
// caught up.
//
// Usage:
//
//	go run ./cmd/backfill            # one cycle
//	go run ./cmd/backfill -loop      # continuous, SYNC_INTERVAL apart
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trendsignals/config"
	"trendsignals/internal/exchange"
	"trendsignals/internal/logger"
	"trendsignals/internal/marketdata/backfill"
	"trendsignals/internal/metrics"
	"trendsignals/internal/model"
	sqlitestore "trendsignals/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	loop := flag.Bool("loop", false, "Run continuously instead of a single cycle")
	flag.Parse()

	cfg := config.Load()
	logger.Init("backfill", logger.ParseLevel(cfg.LogLevel))
	tfs := cfg.ParseTimeframes()

	store, err := sqlitestore.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("[backfill] store init failed: %v", err)
	}
	defer store.Close()

	universe, closeUniverse := openUniverse(cfg)
	defer closeUniverse()

	client := exchange.NewClient(exchange.ClientConfig{BaseURL: cfg.APIBaseURL})

	prom := metrics.New()
	health := metrics.NewHealthStatus()
	health.SetSQLiteOK(true)
	metrics.NewServer(cfg.MetricsAddr, health).Start()

	sync := backfill.New(store, client, universe, backfill.Config{
		Timeframes: tfs,
		Horizon:    cfg.BackfillHorizon(),
		PageLimit:  cfg.PageLimit,
	})
	sync.OnPage = func(_ string, tf model.Timeframe, n int) {
		prom.BackfillPages.WithLabelValues(string(tf)).Inc()
		prom.BackfillKlines.Add(float64(n))
	}
	sync.OnSeriesError = func(_ string, _ model.Timeframe) {
		prom.BackfillErrors.Inc()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[backfill] shutdown requested")
		cancel()
	}()

	if *loop {
		log.Printf("[backfill] running continuously every %s", cfg.SyncInterval)
		sync.Run(ctx, cfg.SyncInterval)
		return
	}

	start := time.Now()
	if err := sync.RunOnce(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("[backfill] cycle failed: %v", err)
	}
	prom.BackfillCycleDur.Observe(time.Since(start).Seconds())
	log.Printf("[backfill] cycle finished in %v", time.Since(start))
}

// openUniverse selects the filtered-symbols database when configured,
// else the static symbol list.
func openUniverse(cfg *config.Config) (model.UniverseProvider, func()) {
	if cfg.UniverseDB != "" {
		u, err := sqlitestore.OpenUniverse(cfg.UniverseDB)
		if err != nil {
			log.Fatalf("[backfill] universe db: %v", err)
		}
		return u, func() { u.Close() }
	}
	symbols := cfg.ParseSymbols()
	log.Printf("[backfill] using static universe of %d symbols", len(symbols))
	return sqlitestore.StaticUniverse(symbols), func() {}
}
