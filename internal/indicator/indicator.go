// Package indicator provides technical indicator calculations over candle
// series.
//
// Every function takes a full, open_time-ascending series and returns a
// slice of the same length. Positions inside an indicator's warm-up
// prefix hold NaN; callers check definedness with math.IsNaN (or
// model.IndicatorRow.Warm) instead of handling errors; a short series
// is data absence, not a failure.
package indicator

import "math"

var nan = math.NaN()

// nans returns a slice of n NaN values.
func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = nan
	}
	return out
}

// RollingMean computes the simple moving average of values over the given
// window. The first window-1 positions are NaN.
func RollingMean(values []float64, window int) []float64 {
	out := nans(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}
