package indicator

import (
	"math"
	"testing"

	"trendsignals/internal/model"
)

func makeCandle(i int, close float64) model.Candle {
	open := int64(i) * 900_000 // 15m spacing
	return model.Candle{
		OpenTime:  open,
		CloseTime: open + 899_999,
		Open:      close,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    5,
	}
}

func constantSeries(n int, close float64) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = makeCandle(i, close)
	}
	return out
}

func TestCompute_ConstantSeries(t *testing.T) {
	rows := Compute(constantSeries(60, 100))
	if len(rows) != 60 {
		t.Fatalf("expected 60 rows, got %d", len(rows))
	}

	// The slow EMA seeds last, at index 49.
	if rows[WarmupLen-2].Warm() {
		t.Errorf("row %d should still be warming up", WarmupLen-2)
	}
	last := rows[len(rows)-1]
	if !last.Warm() {
		t.Fatalf("last row should be warm")
	}

	approx(t, "ema9", last.EMA9, 100)
	approx(t, "ema20", last.EMA20, 100)
	approx(t, "ema50", last.EMA50, 100)
	approx(t, "rsi14", last.RSI14, 100) // no losses at all
	approx(t, "mf20", last.MoneyFlow20, 0)
	approx(t, "vwap20", last.VWAP20, 100)
	approx(t, "atr10", last.ATR10, 2)
	approx(t, "st upper", last.STUpper, 106)
	approx(t, "st lower", last.STLower, 94)
	approx(t, "st value", last.Supertrend, 94)
	if last.STDir != 1 {
		t.Errorf("st dir: got %d, want 1", last.STDir)
	}
}

func TestCompute_PreservesCandleOrder(t *testing.T) {
	series := constantSeries(5, 50)
	rows := Compute(series)
	for i := range rows {
		if rows[i].OpenTime != series[i].OpenTime {
			t.Fatalf("row %d open_time %d != candle %d", i, rows[i].OpenTime, series[i].OpenTime)
		}
	}
}

func TestCompute_ShortSeriesStaysNaN(t *testing.T) {
	rows := Compute(constantSeries(10, 100))
	for i, r := range rows {
		if !math.IsNaN(r.EMA50) {
			t.Errorf("row %d: ema50 should be NaN on a 10-candle series", i)
		}
		if r.Warm() {
			t.Errorf("row %d: should not be warm", i)
		}
	}
	if got := WarmRows(rows); got != nil {
		t.Errorf("WarmRows on cold series: got %d rows, want none", len(got))
	}
}

func TestWarmRows_SuffixOnly(t *testing.T) {
	rows := Compute(constantSeries(60, 100))
	warm := WarmRows(rows)
	if len(warm) != 60-(WarmupLen-1) {
		t.Fatalf("warm suffix: got %d rows, want %d", len(warm), 60-(WarmupLen-1))
	}
	if warm[0].OpenTime != rows[WarmupLen-1].OpenTime {
		t.Errorf("warm suffix starts at %d, want %d", warm[0].OpenTime, rows[WarmupLen-1].OpenTime)
	}
	for i := range warm {
		if !warm[i].Warm() {
			t.Errorf("warm row %d has NaN fields", i)
		}
	}
}

func TestCompute_EmptySeries(t *testing.T) {
	if rows := Compute(nil); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}
