// Package backfill advances per-series watermarks by fetching paginated
// historical klines into the candle store.
package backfill

import (
	"context"
	"fmt"
	"log"
	"time"

	"trendsignals/internal/exchange"
	"trendsignals/internal/model"
)

// DefaultHorizon is how far back an empty series is backfilled.
const DefaultHorizon = 60 * 24 * time.Hour

// Config configures the synchronizer.
type Config struct {
	Timeframes []model.Timeframe
	Horizon    time.Duration // backfill horizon for empty series
	PageLimit  int
}

// Synchronizer catches every (symbol, timeframe) series up to now.
type Synchronizer struct {
	store    model.CandleStore
	fetcher  model.KlineFetcher
	universe model.UniverseProvider
	cfg      Config

	// now is swappable for tests.
	now func() time.Time

	// Optional metrics hooks.
	OnPage        func(symbol string, tf model.Timeframe, n int)
	OnSeriesError func(symbol string, tf model.Timeframe)
}

// New creates a Synchronizer.
func New(store model.CandleStore, fetcher model.KlineFetcher, universe model.UniverseProvider, cfg Config) *Synchronizer {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = exchange.DefaultPageLimit
	}
	return &Synchronizer{
		store:    store,
		fetcher:  fetcher,
		universe: universe,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RunOnce syncs every series of every universe symbol. A failure in one
// series aborts only that series for this cycle; the error is logged and
// the sibling series continue. Only a universe read failure is returned.
func (s *Synchronizer) RunOnce(ctx context.Context) error {
	symbols, err := s.universe.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("backfill universe: %w", err)
	}
	if len(symbols) == 0 {
		log.Printf("[backfill] universe is empty, nothing to sync")
		return nil
	}

	log.Printf("[backfill] syncing %d symbols x %d timeframes", len(symbols), len(s.cfg.Timeframes))
	for _, symbol := range symbols {
		for _, tf := range s.cfg.Timeframes {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.syncSeries(ctx, symbol, tf); err != nil {
				log.Printf("[backfill] %s %s: %v (retried next cycle)", symbol, tf, err)
				if s.OnSeriesError != nil {
					s.OnSeriesError(symbol, tf)
				}
			}
		}
	}
	return nil
}

// Run syncs continuously at the given interval until ctx is cancelled.
func (s *Synchronizer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[backfill] cycle error: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Watermark returns the next open_time to fetch for a series: one past
// the last stored candle, or now minus the backfill horizon for an
// empty series.
func (s *Synchronizer) Watermark(symbol string, tf model.Timeframe) (int64, error) {
	last, ok, err := s.store.Latest(symbol, tf)
	if err != nil {
		return 0, err
	}
	if ok {
		return last.OpenTime + 1, nil
	}
	return s.now().Add(-s.cfg.Horizon).UnixMilli(), nil
}

// syncSeries pages from the watermark until a short or empty page.
// Upserts are idempotent, so a partially synced series simply resumes
// from its watermark on the next cycle.
func (s *Synchronizer) syncSeries(ctx context.Context, symbol string, tf model.Timeframe) error {
	watermark, err := s.Watermark(symbol, tf)
	if err != nil {
		return fmt.Errorf("watermark: %w", err)
	}

	for {
		page, err := s.fetcher.FetchKlines(ctx, symbol, tf, watermark, s.cfg.PageLimit)
		if err != nil {
			return fmt.Errorf("fetch page at %d: %w", watermark, err)
		}
		if len(page) == 0 {
			return nil
		}

		if err := s.store.UpsertBatch(symbol, tf, page); err != nil {
			return fmt.Errorf("store page at %d: %w", watermark, err)
		}
		if s.OnPage != nil {
			s.OnPage(symbol, tf, len(page))
		}
		log.Printf("[backfill] %s %s: stored %d klines", symbol, tf, len(page))

		watermark = page[len(page)-1].OpenTime + 1
		if len(page) < s.cfg.PageLimit {
			return nil // caught up
		}
	}
}
