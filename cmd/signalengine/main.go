// cmd/signalengine evaluates every registered strategy against the
// stored candles for each universe symbol, appends non-HOLD decisions
// to the signal log, and (when Redis is configured) caches the latest
// indicator rows and publishes signals.
//
// Usage:
//
//	go run ./cmd/signalengine            # continuous, EVAL_INTERVAL apart
//	go run ./cmd/signalengine -once      # single cycle
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
	"trendsignals/internal/logger"
	"trendsignals/internal/metrics"
	"trendsignals/internal/model"
	signalengine "trendsignals/internal/signal"
	redisstore "trendsignals/internal/store/redis"
	sqlitestore "trendsignals/internal/store/sqlite"
	"trendsignals/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	once := flag.Bool("once", false, "Run a single evaluation cycle and exit")
	flag.Parse()

	cfg := config.Load()
	logger.Init("signalengine", logger.ParseLevel(cfg.LogLevel))

	store, err := sqlitestore.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("[signal] store init failed: %v", err)
	}
	defer store.Close()

	signals, err := sqlitestore.OpenSignals(cfg.SignalsDB)
	if err != nil {
		log.Fatalf("[signal] signal log init failed: %v", err)
	}
	defer signals.Close()

	universe, closeUniverse := openUniverse(cfg)
	defer closeUniverse()

	prom := metrics.New()
	health := metrics.NewHealthStatus()
	health.SetSQLiteOK(true)
	metrics.NewServer(cfg.MetricsAddr, health).Start()

	var pub signalengine.Publisher
	if cfg.RedisAddr != "" {
		rp, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Fatalf("[signal] redis: %v", err)
		}
		defer rp.Close()
		pub = rp
		health.SetRedisConnected(true)
		log.Printf("[signal] redis connected at %s", cfg.RedisAddr)
	} else {
		log.Printf("[signal] redis not configured, signal log only")
	}

	strats := strategy.Registry()
	eval := signalengine.New(store, signals, universe, strats, pub, signalengine.Config{})
	eval.OnDecision = func(_ string, action model.Action) {
		prom.Decisions.WithLabelValues(string(action)).Inc()
	}
	eval.OnStored = func(_ string) {
		prom.SignalsStored.Inc()
	}
	eval.OnSkip = func(_, _ string) {
		prom.SymbolsSkipped.Inc()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[signal] shutdown requested")
		cancel()
	}()

	if *once {
		start := time.Now()
		if err := eval.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("[signal] cycle failed: %v", err)
		}
		prom.EvalCycleDur.Observe(time.Since(start).Seconds())
		log.Printf("[signal] cycle finished in %v", time.Since(start))
		return
	}

	log.Printf("[signal] evaluating every %s with %d strategies", cfg.EvalInterval, len(strats))
	eval.Run(ctx, cfg.EvalInterval)
	log.Println("[signal] stopped")
}

func openUniverse(cfg *config.Config) (model.UniverseProvider, func()) {
	if cfg.UniverseDB != "" {
		u, err := sqlitestore.OpenUniverse(cfg.UniverseDB)
		if err != nil {
			log.Fatalf("[signal] universe db: %v", err)
		}
		return u, func() { u.Close() }
	}
	return sqlitestore.StaticUniverse(cfg.ParseSymbols()), func() {}
}
