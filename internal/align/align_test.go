package align

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"trendsignals/internal/model"
)

func row(tf model.Timeframe, openTime int64) model.IndicatorRow {
	var r model.IndicatorRow
	r.OpenTime = openTime
	r.Close = float64(openTime)
	return r
}

func series(tf model.Timeframe, openTimes ...int64) []model.IndicatorRow {
	out := make([]model.IndicatorRow, 0, len(openTimes))
	for _, t := range openTimes {
		out = append(out, row(tf, t))
	}
	return out
}

func TestAsOf_PicksLastRowAtOrBefore(t *testing.T) {
	// 15m base at 0..5400s, hourly rows at 0 and 3600s.
	base := series(model.TF15m, 0, 900_000, 1_800_000, 2_700_000, 3_600_000, 4_500_000, 5_400_000)
	others := map[model.Timeframe][]model.IndicatorRow{
		model.TF1h: series(model.TF1h, 0, 3_600_000),
	}

	out := AsOf(base, others)
	require.Len(t, out, len(base))

	for _, ar := range out {
		want := int64(0)
		if ar.Base.OpenTime >= 3_600_000 {
			want = 3_600_000
		}
		require.Equal(t, want, ar.Others[model.TF1h].OpenTime,
			"base t=%d paired with wrong hourly row", ar.Base.OpenTime)
	}
}

func TestAsOf_NeverPairsFutureRows(t *testing.T) {
	base := series(model.TF15m, 0, 900_000, 1_800_000, 2_700_000, 3_600_000)
	others := map[model.Timeframe][]model.IndicatorRow{
		model.TF1h: series(model.TF1h, 1_800_000, 7_200_000),
		model.TF4h: series(model.TF4h, 900_000),
	}

	out := AsOf(base, others)

	// Base rows before the first 1h row (t=1800s) have no eligible
	// pairing and are dropped rather than matched forward.
	require.Len(t, out, 3)
	require.Equal(t, int64(1_800_000), out[0].Base.OpenTime)

	for _, ar := range out {
		for tf, paired := range ar.Others {
			require.LessOrEqual(t, paired.OpenTime, ar.Base.OpenTime,
				"%s row from the future at base t=%d", tf, ar.Base.OpenTime)
		}
	}
}

func TestAsOf_PreservesBaseOrdering(t *testing.T) {
	base := series(model.TF15m, 100, 200, 300, 400)
	others := map[model.Timeframe][]model.IndicatorRow{
		model.TF1h: series(model.TF1h, 100),
	}

	out := AsOf(base, others)
	require.Len(t, out, 4)
	for i := 1; i < len(out); i++ {
		require.Greater(t, out[i].Base.OpenTime, out[i-1].Base.OpenTime)
	}
}

func TestAsOf_NoOtherSeries(t *testing.T) {
	base := series(model.TF15m, 0, 900_000)
	out := AsOf(base, nil)
	require.Len(t, out, 2)
	require.Empty(t, out[0].Others)
}

func TestLatest_IncludesBaseUnderItsTimeframe(t *testing.T) {
	ar := AlignedRow{
		Base: row(model.TF15m, 900_000),
		Others: map[model.Timeframe]model.IndicatorRow{
			model.TF1h: row(model.TF1h, 0),
		},
	}

	m := ar.Latest(model.TF15m)
	require.Len(t, m, 2)
	require.Equal(t, int64(900_000), m[model.TF15m].OpenTime)
	require.Equal(t, int64(0), m[model.TF1h].OpenTime)
}

func TestAsOf_NoLookaheadOnRandomSparseSeries(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 25; trial++ {
		start := int64(rng.Intn(1_000)) * 60_000
		base := make([]model.IndicatorRow, 0, 200)
		for i := 0; i < 200; i++ {
			base = append(base, row(model.TF15m, start+int64(i)*model.TF15m.Millis()))
		}

		// Sparse coarse series with random gaps. Some trials start the
		// series after the base, so a base prefix gets dropped.
		others := map[model.Timeframe][]model.IndicatorRow{}
		for _, tf := range []model.Timeframe{model.TF1h, model.TF4h} {
			ts := start - int64(rng.Intn(6))*tf.Millis()
			if rng.Intn(3) == 0 {
				ts = start + int64(1+rng.Intn(5))*tf.Millis()
			}
			var s []model.IndicatorRow
			for ts <= base[len(base)-1].OpenTime {
				s = append(s, row(tf, ts))
				ts += int64(1+rng.Intn(4)) * tf.Millis()
			}
			others[tf] = s
		}

		out := AsOf(base, others)
		for i, ar := range out {
			if i > 0 {
				require.Greater(t, ar.Base.OpenTime, out[i-1].Base.OpenTime,
					"trial %d: base ordering broken at %d", trial, i)
			}
			require.Len(t, ar.Others, len(others), "trial %d: base t=%d", trial, ar.Base.OpenTime)
			for tf, paired := range ar.Others {
				require.LessOrEqual(t, paired.OpenTime, ar.Base.OpenTime,
					"trial %d: %s row from the future paired at base t=%d", trial, tf, ar.Base.OpenTime)
				want, ok := lastAtOrBefore(others[tf], ar.Base.OpenTime)
				require.True(t, ok, "trial %d", trial)
				require.Equal(t, want, paired.OpenTime,
					"trial %d: %s pairing at base t=%d is not the most recent prior row",
					trial, tf, ar.Base.OpenTime)
			}
		}
	}
}

// lastAtOrBefore scans linearly, independent of the cursor logic under
// test.
func lastAtOrBefore(series []model.IndicatorRow, t int64) (int64, bool) {
	found := false
	var last int64
	for _, r := range series {
		if r.OpenTime > t {
			break
		}
		last = r.OpenTime
		found = true
	}
	return last, found
}
