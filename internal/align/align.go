// Package align pairs a base-timeframe indicator series with the
// most-recent-known row of each coarser timeframe (an as-of join).
// It exists for the backtest path; the live path indexes each
// timeframe's latest row independently.
package align

import "trendsignals/internal/model"

// AlignedRow holds the base row at timestamp t plus, per other
// timeframe, the last row with open_time <= t.
type AlignedRow struct {
	Base   model.IndicatorRow
	Others map[model.Timeframe]model.IndicatorRow
}

// AsOf performs a backward as-of join: for every base row (ascending
// open_time) it selects from each other series the last row at or
// before the base timestamp. Base rows for which any series has no
// eligible prior row are dropped; pairing a future row would be
// lookahead. Output preserves base ordering. Works for any set of
// other timeframes.
func AsOf(base []model.IndicatorRow, others map[model.Timeframe][]model.IndicatorRow) []AlignedRow {
	out := make([]AlignedRow, 0, len(base))

	// One cursor per series; both base and others are ascending, so each
	// series is scanned once.
	cursors := make(map[model.Timeframe]int, len(others))
	for tf := range others {
		cursors[tf] = -1
	}

	for _, b := range base {
		t := b.OpenTime
		paired := make(map[model.Timeframe]model.IndicatorRow, len(others))
		ok := true
		for tf, series := range others {
			i := cursors[tf]
			for i+1 < len(series) && series[i+1].OpenTime <= t {
				i++
			}
			cursors[tf] = i
			if i < 0 {
				ok = false
				continue
			}
			paired[tf] = series[i]
		}
		if !ok {
			continue
		}
		out = append(out, AlignedRow{Base: b, Others: paired})
	}
	return out
}

// Latest returns the per-timeframe map a strategy's Decide expects for
// this aligned row, with the base row under its own timeframe.
func (a *AlignedRow) Latest(baseTF model.Timeframe) map[model.Timeframe]model.IndicatorRow {
	m := make(map[model.Timeframe]model.IndicatorRow, len(a.Others)+1)
	m[baseTF] = a.Base
	for tf, row := range a.Others {
		m[tf] = row
	}
	return m
}
