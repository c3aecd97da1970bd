package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func TestStaticUniverse(t *testing.T) {
	u := StaticUniverse{"BTCUSDT", "ETHUSDT"}
	got, err := u.Symbols(context.Background())
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}
	if len(got) != 2 || got[0] != "BTCUSDT" || got[1] != "ETHUSDT" {
		t.Errorf("symbols: %v", got)
	}
}

func TestUniverseReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE symbols (symbol TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, sym := range []string{"ETHUSDT", "BTCUSDT", "SOLUSDT"} {
		if _, err := db.Exec(`INSERT INTO symbols (symbol) VALUES (?)`, sym); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	db.Close()

	u, err := OpenUniverse(path)
	if err != nil {
		t.Fatalf("open universe: %v", err)
	}
	defer u.Close()

	got, err := u.Symbols(context.Background())
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("symbol count: got %d, want 3", len(got))
	}
	// Ordered for stable cycles.
	if got[0] != "BTCUSDT" || got[1] != "ETHUSDT" || got[2] != "SOLUSDT" {
		t.Errorf("symbols: %v", got)
	}
}
