package strategy

import (
	"trendsignals/internal/indicator"
	"trendsignals/internal/model"
)

// TrendMaster is the trend-confirmation strategy: EMA stack ordering and
// supertrend agreement on the coarse timeframes gate an entry on the
// base timeframe, filtered by RSI, money flow, and price vs. VWAP.
type TrendMaster struct {
	name string
	tfs  []model.Timeframe
}

// NewTrendMaster creates the reference trend strategy over 15m/1h/4h.
func NewTrendMaster() *TrendMaster {
	return &TrendMaster{
		name: "trend_master",
		tfs:  []model.Timeframe{model.TF15m, model.TF1h, model.TF4h},
	}
}

func (s *TrendMaster) Name() string { return s.name }

func (s *TrendMaster) Timeframes() []model.Timeframe { return s.tfs }

// BaseTimeframe returns the entry timeframe whose candle close triggers
// evaluation and whose open_time is reported on signals.
func (s *TrendMaster) BaseTimeframe() model.Timeframe { return s.tfs[0] }

func (s *TrendMaster) Prepare(series map[model.Timeframe][]model.Candle) map[model.Timeframe][]model.IndicatorRow {
	out := make(map[model.Timeframe][]model.IndicatorRow, len(s.tfs))
	for _, tf := range s.tfs {
		if candles, ok := series[tf]; ok {
			out[tf] = indicator.Compute(candles)
		}
	}
	return out
}

// Decide evaluates the BUY and SELL predicates independently against the
// latest row per timeframe. NaN indicator fields (warm-up rows) fail
// every comparison, so an insufficiently warm series decides HOLD.
func (s *TrendMaster) Decide(symbol string, latest map[model.Timeframe]model.IndicatorRow) model.Decision {
	r4h, ok4h := latest[model.TF4h]
	r1h, ok1h := latest[model.TF1h]
	r15, ok15 := latest[model.TF15m]
	if !ok4h || !ok1h || !ok15 {
		return model.Hold
	}

	emaBullish := r4h.EMA9 > r4h.EMA20 && r4h.EMA20 > r4h.EMA50 &&
		r1h.EMA9 > r1h.EMA20 && r1h.EMA20 > r1h.EMA50
	stBullish := r4h.STDir == 1 && r1h.STDir == 1 && r15.STDir == 1
	rsiOKBuy := r15.RSI14 >= 45 && r15.RSI14 <= 65
	flowOKBuy := r15.MoneyFlow20 > 0.1
	vwapOKBuy := r15.Close > r15.VWAP20

	if emaBullish && stBullish && rsiOKBuy && flowOKBuy && vwapOKBuy {
		return model.Decision{
			Action:        model.ActionBuy,
			Timeframe:     s.BaseTimeframe(),
			KlineOpenTime: r15.OpenTime,
		}
	}

	emaBearish := r4h.EMA9 < r4h.EMA20 && r4h.EMA20 < r4h.EMA50 &&
		r1h.EMA9 < r1h.EMA20 && r1h.EMA20 < r1h.EMA50
	stBearish := r4h.STDir == -1 && r1h.STDir == -1 && r15.STDir == -1
	rsiOKSell := r15.RSI14 >= 35 && r15.RSI14 <= 55
	flowOKSell := r15.MoneyFlow20 < -0.1
	vwapOKSell := r15.Close < r15.VWAP20

	if emaBearish && stBearish && rsiOKSell && flowOKSell && vwapOKSell {
		return model.Decision{
			Action:        model.ActionSell,
			Timeframe:     s.BaseTimeframe(),
			KlineOpenTime: r15.OpenTime,
		}
	}

	return model.Hold
}
