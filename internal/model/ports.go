package model

import "context"

// Storage and boundary port interfaces.
// These decouple the sync/relay/evaluation logic from concrete
// implementations (SQLite, the exchange REST API, the push stream).

// CandleStore is the per-(symbol, timeframe) candle series store.
type CandleStore interface {
	// Upsert inserts the candle, or overwrites the row's non-key fields
	// if open_time already exists. Idempotent.
	Upsert(symbol string, tf Timeframe, c Candle) error

	// UpsertBatch applies a page of candles in one transaction.
	UpsertBatch(symbol string, tf Timeframe, cs []Candle) error

	// Latest returns the newest candle, or ok=false for an empty series.
	Latest(symbol string, tf Timeframe) (Candle, bool, error)

	// Range returns candles with open_time >= from, ordered ascending.
	Range(symbol string, tf Timeframe, from int64) ([]Candle, error)

	// Close releases all pooled series handles.
	Close() error
}

// SignalStore is the deduplicated append log of non-HOLD signals.
type SignalStore interface {
	// Insert appends the signal. Returns false (and no error) when a row
	// with the same (symbol, strategy, timeframe, kline_open_time)
	// already exists.
	Insert(sig Signal) (bool, error)

	// BySymbol returns stored signals for a symbol ordered by
	// kline_open_time ascending.
	BySymbol(symbol string) ([]Signal, error)

	Close() error
}

// KlineFetcher is the paginated historical fetch boundary.
// An empty page signals "no more data".
type KlineFetcher interface {
	FetchKlines(ctx context.Context, symbol string, tf Timeframe, startTime int64, limit int) ([]Candle, error)
}

// UniverseProvider yields the ordered symbol universe for a cycle.
// Universe selection itself is an external collaborator.
type UniverseProvider interface {
	Symbols(ctx context.Context) ([]string, error)
}
