package indicator

import "trendsignals/internal/model"

// Periods used by the trend strategy set. The longest lookback (the
// slow EMA) defines the warm-up length of a computed series.
const (
	EMAFastPeriod   = 9
	EMAMidPeriod    = 20
	EMASlowPeriod   = 50
	RSIPeriod       = 14
	MoneyFlowWindow = 20
	VWAPWindow      = 20
	ATRPeriod       = 10
	STMultiplier    = 3.0

	// WarmupLen is the number of leading rows that may carry NaN
	// indicator fields.
	WarmupLen = EMASlowPeriod
)

// Compute transforms a full candle series into indicator-augmented rows.
// The output has the same length and order as the input. It recomputes
// from scratch on every call and never fails on short series; warm-up
// positions simply stay NaN.
func Compute(series []model.Candle) []model.IndicatorRow {
	n := len(series)
	rows := make([]model.IndicatorRow, n)
	if n == 0 {
		return rows
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	typical := make([]float64, n)
	for i, c := range series {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
		typical[i] = (c.High + c.Low + c.Close) / 3
	}

	emaFast := EMA(closes, EMAFastPeriod)
	emaMid := EMA(closes, EMAMidPeriod)
	emaSlow := EMA(closes, EMASlowPeriod)
	rsi := RSI(closes, RSIPeriod)
	flow := MoneyFlow(highs, lows, closes, volumes, MoneyFlowWindow)
	vwap := RollingMean(typical, VWAPWindow)
	atr := ATR(highs, lows, closes, ATRPeriod)
	st := Supertrend(highs, lows, closes, ATRPeriod, STMultiplier)

	for i := 0; i < n; i++ {
		rows[i] = model.IndicatorRow{
			Candle:       series[i],
			EMA9:         emaFast[i],
			EMA20:        emaMid[i],
			EMA50:        emaSlow[i],
			RSI14:        rsi[i],
			MoneyFlow20:  flow[i],
			TypicalPrice: typical[i],
			VWAP20:       vwap[i],
			ATR10:        atr[i],
			STUpper:      st.Upper[i],
			STLower:      st.Lower[i],
			Supertrend:   st.Value[i],
			STDir:        st.Dir[i],
		}
	}
	return rows
}

// WarmRows returns the suffix of rows for which every indicator field is
// defined. Alignment and backtesting operate on warm rows only.
func WarmRows(rows []model.IndicatorRow) []model.IndicatorRow {
	for i := range rows {
		if rows[i].Warm() {
			return rows[i:]
		}
	}
	return nil
}
