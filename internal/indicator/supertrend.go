package indicator

// SupertrendResult holds the band, value, and direction series of the
// supertrend recurrence.
type SupertrendResult struct {
	Upper []float64
	Lower []float64
	Value []float64 // lower band in an uptrend, upper band in a downtrend
	Dir   []int     // +1 up, -1 down; index 0 is defined as up
}

// Supertrend computes the supertrend indicator: volatility bands at
// midpoint ± multiplier*ATR(atrPeriod), with a trend flip when the close
// crosses the previous bar's band.
//
// While the direction carries over, the active band may only tighten
// toward price (the lower band only rises in an uptrend, the upper band
// only falls in a downtrend). Band positions inside the ATR warm-up are
// NaN; direction is still defined everywhere, starting as up.
func Supertrend(highs, lows, closes []float64, atrPeriod int, multiplier float64) SupertrendResult {
	n := len(closes)
	res := SupertrendResult{
		Upper: nans(n),
		Lower: nans(n),
		Value: nans(n),
		Dir:   make([]int, n),
	}
	if n == 0 {
		return res
	}

	atr := ATR(highs, lows, closes, atrPeriod)
	for i := 0; i < n; i++ {
		mid := (highs[i] + lows[i]) / 2
		res.Upper[i] = mid + multiplier*atr[i]
		res.Lower[i] = mid - multiplier*atr[i]
	}

	res.Dir[0] = 1
	for i := 1; i < n; i++ {
		switch {
		case closes[i] > res.Upper[i-1]:
			res.Dir[i] = 1
		case closes[i] < res.Lower[i-1]:
			res.Dir[i] = -1
		default:
			// Carry-over: the active band ratchets toward price only.
			// NaN band comparisons are false, so warm-up rows carry the
			// up direction with NaN bands, matching the warm-up contract.
			res.Dir[i] = res.Dir[i-1]
			if res.Dir[i] == 1 && res.Lower[i] < res.Lower[i-1] {
				res.Lower[i] = res.Lower[i-1]
			}
			if res.Dir[i] == -1 && res.Upper[i] > res.Upper[i-1] {
				res.Upper[i] = res.Upper[i-1]
			}
		}
	}

	for i := 0; i < n; i++ {
		if res.Dir[i] == 1 {
			res.Value[i] = res.Lower[i]
		} else {
			res.Value[i] = res.Upper[i]
		}
	}
	return res
}
