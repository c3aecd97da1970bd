package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trendsignals/internal/model"
)

// SignalStore is the deduplicated append log of non-HOLD signals.
// (symbol, strategy, timeframe, kline_open_time) is unique; inserting a
// duplicate is a silent no-op so re-evaluating an already-signaled
// candle cannot create a second row.
type SignalStore struct {
	db *sql.DB
}

// OpenSignals opens (and initializes) the signals database at path.
func OpenSignals(path string) (*SignalStore, error) {
	db, err := sql.Open("sqlite3", path+connParams)
	if err != nil {
		return nil, fmt.Errorf("sqlite open signals %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol          TEXT    NOT NULL,
			signal          TEXT    NOT NULL,
			strategy        TEXT    NOT NULL,
			timeframe       TEXT    NOT NULL,
			kline_open_time INTEGER NOT NULL,
			created_at      INTEGER NOT NULL,
			UNIQUE (symbol, strategy, timeframe, kline_open_time)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite signals schema: %w", err)
	}

	log.Printf("[sqlite] opened signals db at %s", path)
	return &SignalStore{db: db}, nil
}

// Insert appends the signal. Returns false when the dedup key already
// exists; that is not an error.
func (st *SignalStore) Insert(sig model.Signal) (bool, error) {
	created := sig.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := st.db.Exec(`
		INSERT OR IGNORE INTO signals
			(symbol, signal, strategy, timeframe, kline_open_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sig.Symbol, string(sig.Action), sig.Strategy, string(sig.Timeframe),
		sig.KlineOpenTime, created.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("sqlite insert signal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite insert signal rows: %w", err)
	}
	return n > 0, nil
}

// BySymbol returns a symbol's stored signals ordered by kline_open_time.
func (st *SignalStore) BySymbol(symbol string) ([]model.Signal, error) {
	return st.query(`
		SELECT symbol, signal, strategy, timeframe, kline_open_time, created_at
		FROM signals WHERE symbol = ? ORDER BY kline_open_time ASC`, symbol)
}

// ByRange returns signals for (symbol, strategy, timeframe) with
// kline_open_time in [from, to), ordered ascending. This is the read boundary
// consumed by reporting and execution systems.
func (st *SignalStore) ByRange(symbol, strategyName string, tf model.Timeframe, from, to int64) ([]model.Signal, error) {
	return st.query(`
		SELECT symbol, signal, strategy, timeframe, kline_open_time, created_at
		FROM signals
		WHERE symbol = ? AND strategy = ? AND timeframe = ?
		  AND kline_open_time >= ? AND kline_open_time < ?
		ORDER BY kline_open_time ASC`,
		symbol, strategyName, string(tf), from, to)
}

func (st *SignalStore) query(q string, args ...any) ([]model.Signal, error) {
	rows, err := st.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []model.Signal
	for rows.Next() {
		var sig model.Signal
		var action, tf string
		var createdMs int64
		if err := rows.Scan(&sig.Symbol, &action, &sig.Strategy, &tf, &sig.KlineOpenTime, &createdMs); err != nil {
			return nil, fmt.Errorf("sqlite scan signal: %w", err)
		}
		sig.Action = model.Action(action)
		sig.Timeframe = model.Timeframe(tf)
		sig.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, sig)
	}
	return out, rows.Err()
}

// Close closes the signals database.
func (st *SignalStore) Close() error {
	return st.db.Close()
}
