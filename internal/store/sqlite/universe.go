package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// UniverseReader reads the ordered symbol universe produced by the
// filtering collaborator. The filter itself is external; this side only
// consumes its `symbols` table at the start of each cycle.
type UniverseReader struct {
	db *sql.DB
}

// OpenUniverse opens the filtered-symbols database at path.
func OpenUniverse(path string) (*UniverseReader, error) {
	db, err := sql.Open("sqlite3", path+connParams)
	if err != nil {
		return nil, fmt.Errorf("sqlite open universe %s: %w", path, err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	return &UniverseReader{db: db}, nil
}

// Symbols returns the universe as ordered uppercase ticker strings.
func (u *UniverseReader) Symbols(ctx context.Context) ([]string, error) {
	rows, err := u.db.QueryContext(ctx, `SELECT symbol FROM symbols ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query universe: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("sqlite scan universe: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the universe database.
func (u *UniverseReader) Close() error {
	return u.db.Close()
}

// StaticUniverse is a fixed symbol list satisfying the universe
// boundary, used when no filtered-symbols database is configured.
type StaticUniverse []string

// Symbols returns the configured list.
func (u StaticUniverse) Symbols(ctx context.Context) ([]string, error) {
	return u, nil
}
