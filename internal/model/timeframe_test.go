package model

import (
	"math"
	"testing"
	"time"
)

func TestTimeframe_DurationAndMillis(t *testing.T) {
	if d := TF15m.Duration(); d != 15*time.Minute {
		t.Errorf("15m duration: got %v", d)
	}
	if ms := TF1h.Millis(); ms != 3_600_000 {
		t.Errorf("1h millis: got %d", ms)
	}
	if Timeframe("7x").Valid() {
		t.Error("7x should not be a valid timeframe")
	}
}

func TestTimeframe_TableName(t *testing.T) {
	if got := TF15m.TableName(); got != "klines_15m" {
		t.Errorf("table name: got %q", got)
	}
	// Anything non-alphanumeric is stripped before reaching SQL.
	if got := Timeframe("15m; DROP TABLE x").TableName(); got != "klines_15mDROPTABLEx" {
		t.Errorf("sanitized table name: got %q", got)
	}
}

func TestParseTimeframes(t *testing.T) {
	tfs, err := ParseTimeframes("15m, 1h,4h")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tfs) != 3 || tfs[0] != TF15m || tfs[1] != TF1h || tfs[2] != TF4h {
		t.Errorf("parsed: %v", tfs)
	}

	if _, err := ParseTimeframes("15m,2h"); err == nil {
		t.Error("expected error for unsupported tag 2h")
	}
}

func TestIndicatorRow_Warm(t *testing.T) {
	r := IndicatorRow{EMA9: 1, EMA20: 1, EMA50: 1, RSI14: 50, VWAP20: 1, ATR10: 1, Supertrend: 1}
	if !r.Warm() {
		t.Error("fully defined row should be warm")
	}
	r.EMA50 = math.NaN()
	if r.Warm() {
		t.Error("row with a NaN field should not be warm")
	}
}
