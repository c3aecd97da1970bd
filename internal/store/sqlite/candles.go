// Package sqlite persists candle series and signals in embedded SQLite
// databases: one database file per symbol with one table per timeframe,
// plus a separate signals database.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"trendsignals/internal/model"
)

// connParams mirrors the WAL + busy-timeout settings used across the
// candle and signal databases.
const connParams = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

// Store is the per-(symbol, timeframe) candle store. Symbol database
// handles are opened on first use and pooled; each series has its own
// write lock so concurrent writers to different series never contend.
type Store struct {
	dir string

	mu     sync.Mutex
	dbs    map[string]*sql.DB     // one handle per symbol
	tables map[string]bool        // "symbol/tf" schema ensured
	series map[string]*sync.Mutex // per "symbol/tf" write lock
}

// Open creates a Store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite mkdir %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		dbs:    make(map[string]*sql.DB),
		tables: make(map[string]bool),
		series: make(map[string]*sync.Mutex),
	}, nil
}

func seriesKey(symbol string, tf model.Timeframe) string {
	return symbol + "/" + string(tf)
}

// handle returns the pooled database for a symbol, opening it on first
// use, and ensures the timeframe table exists.
func (s *Store) handle(symbol string, tf model.Timeframe) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, ok := s.dbs[symbol]
	if !ok {
		path := filepath.Join(s.dir, symbol+".db")
		var err error
		db, err = sql.Open("sqlite3", path+connParams)
		if err != nil {
			return nil, fmt.Errorf("sqlite open %s: %w", path, err)
		}
		// Single writer per file; readers share the WAL.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		s.dbs[symbol] = db
		log.Printf("[sqlite] opened %s", path)
	}

	key := seriesKey(symbol, tf)
	if !s.tables[key] {
		if err := createCandleTable(db, tf); err != nil {
			return nil, fmt.Errorf("sqlite schema %s %s: %w", symbol, tf, err)
		}
		s.tables[key] = true
	}
	return db, nil
}

// seriesLock returns the write lock for one (symbol, timeframe) series.
func (s *Store) seriesLock(symbol string, tf model.Timeframe) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := seriesKey(symbol, tf)
	mu, ok := s.series[key]
	if !ok {
		mu = &sync.Mutex{}
		s.series[key] = mu
	}
	return mu
}

func createCandleTable(db *sql.DB, tf model.Timeframe) error {
	_, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			open_time                    INTEGER PRIMARY KEY,
			open                         REAL NOT NULL,
			high                         REAL NOT NULL,
			low                          REAL NOT NULL,
			close                        REAL NOT NULL,
			volume                       REAL NOT NULL,
			close_time                   INTEGER NOT NULL,
			quote_asset_volume           REAL NOT NULL,
			number_of_trades             INTEGER NOT NULL,
			taker_buy_base_asset_volume  REAL NOT NULL,
			taker_buy_quote_asset_volume REAL NOT NULL
		);
	`, tf.TableName()))
	return err
}

const candleColumns = `open_time, open, high, low, close, volume, close_time,
	quote_asset_volume, number_of_trades, taker_buy_base_asset_volume, taker_buy_quote_asset_volume`

// Upsert inserts the candle or overwrites the non-key fields of the row
// with the same open_time. Safe to call repeatedly with the same closed
// candle.
func (s *Store) Upsert(symbol string, tf model.Timeframe, c model.Candle) error {
	db, err := s.handle(symbol, tf)
	if err != nil {
		return err
	}

	mu := s.seriesLock(symbol, tf)
	mu.Lock()
	defer mu.Unlock()

	_, err = db.Exec(fmt.Sprintf(
		`INSERT OR REPLACE INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tf.TableName(), candleColumns),
		c.OpenTime, c.Open, c.High, c.Low, c.Close, c.Volume, c.CloseTime,
		c.QuoteVolume, c.TradeCount, c.TakerBuyBase, c.TakerBuyQuote)
	if err != nil {
		return fmt.Errorf("sqlite upsert %s %s: %w", symbol, tf, err)
	}
	return nil
}

// UpsertBatch applies a fetched page in one transaction.
func (s *Store) UpsertBatch(symbol string, tf model.Timeframe, cs []model.Candle) error {
	if len(cs) == 0 {
		return nil
	}
	db, err := s.handle(symbol, tf)
	if err != nil {
		return err
	}

	mu := s.seriesLock(symbol, tf)
	mu.Lock()
	defer mu.Unlock()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin %s %s: %w", symbol, tf, err)
	}

	stmt, err := tx.Prepare(fmt.Sprintf(
		`INSERT OR REPLACE INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tf.TableName(), candleColumns))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare %s %s: %w", symbol, tf, err)
	}
	defer stmt.Close()

	for _, c := range cs {
		if _, err := stmt.Exec(
			c.OpenTime, c.Open, c.High, c.Low, c.Close, c.Volume, c.CloseTime,
			c.QuoteVolume, c.TradeCount, c.TakerBuyBase, c.TakerBuyQuote); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite batch upsert %s %s: %w", symbol, tf, err)
		}
	}
	return tx.Commit()
}

// Latest returns the newest candle of the series, ok=false when empty.
func (s *Store) Latest(symbol string, tf model.Timeframe) (model.Candle, bool, error) {
	db, err := s.handle(symbol, tf)
	if err != nil {
		return model.Candle{}, false, err
	}

	row := db.QueryRow(fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY open_time DESC LIMIT 1`,
		candleColumns, tf.TableName()))

	c, err := scanCandle(row)
	if err == sql.ErrNoRows {
		return model.Candle{}, false, nil
	}
	if err != nil {
		return model.Candle{}, false, fmt.Errorf("sqlite latest %s %s: %w", symbol, tf, err)
	}
	return c, true, nil
}

// Range returns candles with open_time >= from, open_time ascending.
func (s *Store) Range(symbol string, tf model.Timeframe, from int64) ([]model.Candle, error) {
	db, err := s.handle(symbol, tf)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(fmt.Sprintf(
		`SELECT %s FROM %s WHERE open_time >= ? ORDER BY open_time ASC`,
		candleColumns, tf.TableName()), from)
	if err != nil {
		return nil, fmt.Errorf("sqlite range %s %s: %w", symbol, tf, err)
	}
	defer rows.Close()

	var out []model.Candle
	for rows.Next() {
		c, err := scanCandle(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite scan %s %s: %w", symbol, tf, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandle(r rowScanner) (model.Candle, error) {
	var c model.Candle
	err := r.Scan(&c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
		&c.CloseTime, &c.QuoteVolume, &c.TradeCount, &c.TakerBuyBase, &c.TakerBuyQuote)
	return c, err
}

// Close closes every pooled symbol database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for symbol, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sqlite close %s: %w", symbol, err)
		}
		delete(s.dbs, symbol)
	}
	return firstErr
}
