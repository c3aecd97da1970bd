// Package signal runs the live evaluation cycle: it loads stored candle
// series, computes indicator rows, asks each strategy for a decision,
// and appends non-HOLD decisions to the deduplicated signal log.
package signal

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"trendsignals/internal/model"
	"trendsignals/internal/strategy"
)

const defaultWorkers = 4

// Publisher is the optional hot-state sink: a latest-row cache per
// series plus a channel announcing freshly stored signals. The
// Redis-backed store implements it.
type Publisher interface {
	SetLatestRow(ctx context.Context, symbol string, tf model.Timeframe, row model.IndicatorRow) error
	PublishSignal(ctx context.Context, sig model.Signal) error
}

// Config configures the evaluator.
type Config struct {
	Workers int // parallel symbols per cycle
}

// Evaluator evaluates every registered strategy for every universe
// symbol. Symbols are independent and CPU-bound, so a cycle fans out
// over a worker pool; the stores serialize per series themselves.
type Evaluator struct {
	store    model.CandleStore
	signals  model.SignalStore
	universe model.UniverseProvider
	strats   []strategy.Strategy
	pub      Publisher // optional, nil disables the hot-state sink
	workers  int

	// Optional metrics hooks.
	OnDecision func(symbol string, action model.Action)
	OnStored   func(symbol string)
	OnSkip     func(symbol, strategyName string)
}

// New creates an Evaluator. pub may be nil; the cycle then only writes
// the signal log.
func New(store model.CandleStore, signals model.SignalStore, universe model.UniverseProvider,
	strats []strategy.Strategy, pub Publisher, cfg Config) *Evaluator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Evaluator{
		store:    store,
		signals:  signals,
		universe: universe,
		strats:   strats,
		pub:      pub,
		workers:  workers,
	}
}

// RunOnce evaluates one full cycle. Per-symbol failures are logged and
// skipped; only a universe read failure is returned.
func (e *Evaluator) RunOnce(ctx context.Context) error {
	symbols, err := e.universe.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("signal universe: %w", err)
	}
	if len(symbols) == 0 {
		log.Printf("[signal] universe is empty, nothing to evaluate")
		return nil
	}

	start := time.Now()
	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				e.evaluateSymbol(ctx, symbol)
			}
		}()
	}

	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- symbol:
		}
	}
	close(jobs)
	wg.Wait()

	log.Printf("[signal] cycle done: %d symbols in %v", len(symbols), time.Since(start))
	return nil
}

// Run evaluates continuously at the given interval until ctx ends.
func (e *Evaluator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := e.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[signal] cycle error: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// evaluateSymbol runs every strategy against one symbol's stored series.
func (e *Evaluator) evaluateSymbol(ctx context.Context, symbol string) {
	for _, strat := range e.strats {
		if ctx.Err() != nil {
			return
		}
		if err := e.evaluate(ctx, symbol, strat); err != nil {
			log.Printf("[signal] %s/%s: %v (skipped this cycle)", symbol, strat.Name(), err)
			if e.OnSkip != nil {
				e.OnSkip(symbol, strat.Name())
			}
		}
	}
}

func (e *Evaluator) evaluate(ctx context.Context, symbol string, strat strategy.Strategy) error {
	series := make(map[model.Timeframe][]model.Candle, len(strat.Timeframes()))
	for _, tf := range strat.Timeframes() {
		candles, err := e.store.Range(symbol, tf, 0)
		if err != nil {
			return fmt.Errorf("load %s series: %w", tf, err)
		}
		if len(candles) == 0 {
			// Data absence degrades to a skip, never an error upstream.
			return fmt.Errorf("no %s candles stored", tf)
		}
		series[tf] = candles
	}

	prepared := strat.Prepare(series)

	// The live path indexes each timeframe's latest row independently;
	// no cross-timeframe alignment here (that is the backtest's job).
	latest := make(map[model.Timeframe]model.IndicatorRow, len(prepared))
	for tf, rows := range prepared {
		row := rows[len(rows)-1]
		latest[tf] = row
		// Warm-up rows carry NaN fields and are never published.
		if e.pub != nil && row.Warm() {
			if err := e.pub.SetLatestRow(ctx, symbol, tf, row); err != nil {
				log.Printf("[signal] redis latest %s %s: %v", symbol, tf, err)
			}
		}
	}

	decision := strat.Decide(symbol, latest)
	if e.OnDecision != nil {
		e.OnDecision(symbol, decision.Action)
	}
	if decision.Action == model.ActionHold {
		return nil
	}

	sig := model.Signal{
		Symbol:        symbol,
		Action:        decision.Action,
		Strategy:      strat.Name(),
		Timeframe:     decision.Timeframe,
		KlineOpenTime: decision.KlineOpenTime,
		CreatedAt:     time.Now().UTC(),
	}
	inserted, err := e.signals.Insert(sig)
	if err != nil {
		return fmt.Errorf("store signal: %w", err)
	}
	if !inserted {
		// Same closed candle evaluated again; the log already has it.
		return nil
	}

	log.Printf("[signal] %s %s %s %s kline=%d", sig.Action, symbol, sig.Strategy, sig.Timeframe, sig.KlineOpenTime)
	if e.OnStored != nil {
		e.OnStored(symbol)
	}
	if e.pub != nil {
		if err := e.pub.PublishSignal(ctx, sig); err != nil {
			log.Printf("[signal] redis publish %s: %v", symbol, err)
		}
	}
	return nil
}
