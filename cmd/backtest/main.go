// cmd/backtest replays a symbol's stored candles through a strategy and
// prints the resulting performance report. The candles must already be
// synced (see cmd/backfill).
//
// Usage:
//
//	go run ./cmd/backtest -symbol BTCUSDT
//	go run ./cmd/backtest -symbol ETHUSDT -strategy trend_master -capital 5000 -v
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"trendsignals/config"
	"trendsignals/internal/align"
	"trendsignals/internal/backtest"
	"trendsignals/internal/indicator"
	"trendsignals/internal/logger"
	"trendsignals/internal/model"
	sqlitestore "trendsignals/internal/store/sqlite"
	"trendsignals/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	symbol := flag.String("symbol", "", "Symbol to backtest (required), e.g. BTCUSDT")
	stratName := flag.String("strategy", "trend_master", "Registered strategy name")
	capital := flag.Float64("capital", 1000, "Starting capital in quote currency")
	verbose := flag.Bool("v", false, "Log individual trades")
	flag.Parse()

	if *symbol == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger.Init("backtest", logger.ParseLevel(cfg.LogLevel))

	strat := findStrategy(*stratName)
	if strat == nil {
		log.Fatalf("[backtest] unknown strategy %q", *stratName)
	}

	store, err := sqlitestore.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("[backtest] store init failed: %v", err)
	}
	defer store.Close()

	series := make(map[model.Timeframe][]model.Candle, len(strat.Timeframes()))
	for _, tf := range strat.Timeframes() {
		candles, err := store.Range(*symbol, tf, 0)
		if err != nil {
			log.Fatalf("[backtest] load %s %s: %v", *symbol, tf, err)
		}
		if len(candles) == 0 {
			log.Fatalf("[backtest] no %s candles stored for %s, run cmd/backfill first", tf, *symbol)
		}
		log.Printf("[backtest] %s %s: %d candles loaded", *symbol, tf, len(candles))
		series[tf] = candles
	}

	prepared := strat.Prepare(series)

	baseTF := strat.Timeframes()[0]
	base := indicator.WarmRows(prepared[baseTF])
	if len(base) == 0 {
		log.Fatalf("[backtest] %s %s series too short for indicator warm-up", *symbol, baseTF)
	}
	others := make(map[model.Timeframe][]model.IndicatorRow, len(prepared)-1)
	for tf, rows := range prepared {
		if tf != baseTF {
			others[tf] = rows
		}
	}

	rows := align.AsOf(base, others)
	if len(rows) == 0 {
		log.Fatalf("[backtest] no aligned rows for %s, higher timeframes not warm yet", *symbol)
	}

	sim := backtest.New(strat)
	sim.Log = *verbose
	report := sim.Run(*symbol, rows, decimal.NewFromFloat(*capital))

	fmt.Println(report.String())
}

func findStrategy(name string) strategy.Strategy {
	for _, s := range strategy.Registry() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}
