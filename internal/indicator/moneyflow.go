package indicator

// MoneyFlow computes the Chaikin money flow oscillator over the given
// window: sum(multiplier*volume) / sum(volume), where the multiplier is
// ((close-low)-(high-close))/(high-low). Bars with high == low
// contribute zero flow. The first window-1 positions are NaN; output is
// in [-1, 1].
func MoneyFlow(highs, lows, closes, volumes []float64, window int) []float64 {
	out := nans(len(closes))
	if window <= 0 || len(closes) < window {
		return out
	}

	mfv := make([]float64, len(closes))
	for i := range closes {
		span := highs[i] - lows[i]
		if span == 0 {
			continue
		}
		mult := ((closes[i] - lows[i]) - (highs[i] - closes[i])) / span
		mfv[i] = mult * volumes[i]
	}

	var flowSum, volSum float64
	for i := range closes {
		flowSum += mfv[i]
		volSum += volumes[i]
		if i >= window {
			flowSum -= mfv[i-window]
			volSum -= volumes[i-window]
		}
		if i >= window-1 {
			if volSum == 0 {
				out[i] = 0
			} else {
				out[i] = flowSum / volSum
			}
		}
	}
	return out
}
