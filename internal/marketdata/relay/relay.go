// Package relay consumes the kline push stream and upserts closed
// candles into the candle store.
package relay

import (
	"context"
	"log"

	"trendsignals/internal/exchange"
	"trendsignals/internal/model"
)

const defaultQueueSize = 1024

// Relay decouples stream receipt from store writes with a bounded
// drop-oldest queue: a slow write must not back up the socket, and only
// the latest state of a closed candle matters. Forming (not closed)
// events are discarded at the door. Gaps from dropped or missed events
// are healed by the next backfill cycle, not by the relay.
type Relay struct {
	store model.CandleStore
	queue chan exchange.StreamEvent

	// Optional metrics hooks.
	OnUpsert func(symbol string, tf model.Timeframe)
	OnDrop   func()
}

// New creates a Relay writing into store. queueSize <= 0 selects the
// default.
func New(store model.CandleStore, queueSize int) *Relay {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Relay{
		store: store,
		queue: make(chan exchange.StreamEvent, queueSize),
	}
}

// Enqueue accepts a stream event. Only closed candles are queued; when
// the queue is full the oldest pending event is dropped to make room.
// Never blocks, so it is safe to call from the stream read loop.
func (r *Relay) Enqueue(ev exchange.StreamEvent) {
	if !ev.Closed {
		return
	}
	for {
		select {
		case r.queue <- ev:
			return
		default:
		}
		select {
		case old := <-r.queue:
			log.Printf("[relay] queue full, dropping %s %s open_time=%d", old.Symbol, old.Timeframe, old.Candle.OpenTime)
			if r.OnDrop != nil {
				r.OnDrop()
			}
		default:
		}
	}
}

// Run drains the queue and upserts candles until ctx is cancelled.
// Upserts are single-row atomic; a failed write is logged and the event
// discarded (the backfill cycle re-fetches it).
func (r *Relay) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.queue:
			if err := r.store.Upsert(ev.Symbol, ev.Timeframe, ev.Candle); err != nil {
				log.Printf("[relay] upsert %s %s: %v", ev.Symbol, ev.Timeframe, err)
				continue
			}
			if r.OnUpsert != nil {
				r.OnUpsert(ev.Symbol, ev.Timeframe)
			}
		}
	}
}
