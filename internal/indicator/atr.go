package indicator

import "math"

// TrueRange computes the per-bar true range:
// max(high-low, |high-prevClose|, |low-prevClose|).
// Index 0 has no previous close and falls back to high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		hl := highs[i] - lows[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR computes the average true range over the given period using
// Wilder's smoothing, seeded by the simple average of the first period
// true ranges. Positions before index period-1 are NaN.
func ATR(highs, lows, closes []float64, period int) []float64 {
	out := nans(len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}

	tr := TrueRange(highs, lows, closes)

	var sum float64
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	out[period-1] = sum / float64(period)

	p := float64(period)
	for i := period; i < len(tr); i++ {
		out[i] = (out[i-1]*(p-1) + tr[i]) / p
	}
	return out
}
