package model

import (
	"encoding/json"
	"math"
	"time"
)

// Candle represents one closed OHLCV kline for a symbol + timeframe.
// Times are epoch milliseconds (exchange wire convention); prices and
// volumes are float64 as delivered by the exchange.
type Candle struct {
	OpenTime      int64   `json:"open_time"` // unique key within a series
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        float64 `json:"volume"`
	CloseTime     int64   `json:"close_time"`
	QuoteVolume   float64 `json:"quote_asset_volume"`
	TradeCount    int64   `json:"number_of_trades"`
	TakerBuyBase  float64 `json:"taker_buy_base_asset_volume"`
	TakerBuyQuote float64 `json:"taker_buy_quote_asset_volume"`
}

// OpenAt returns the candle open time as a UTC time.Time.
func (c *Candle) OpenAt() time.Time {
	return time.Unix(0, c.OpenTime*int64(time.Millisecond)).UTC()
}

// IndicatorRow is a Candle augmented with computed indicator values.
// Indicator fields are NaN inside the warm-up prefix where the lookback
// window is not yet filled.
type IndicatorRow struct {
	Candle

	EMA9  float64 `json:"ema9"`
	EMA20 float64 `json:"ema20"`
	EMA50 float64 `json:"ema50"`

	RSI14        float64 `json:"rsi14"`
	MoneyFlow20  float64 `json:"money_flow20"`
	TypicalPrice float64 `json:"typical_price"`
	VWAP20       float64 `json:"vwap_approx20"`
	ATR10        float64 `json:"atr10"`

	STUpper    float64 `json:"supertrend_upper"`
	STLower    float64 `json:"supertrend_lower"`
	Supertrend float64 `json:"supertrend_value"`
	STDir      int     `json:"supertrend_direction"` // +1 up, -1 down
}

// Warm reports whether every indicator field on the row is defined,
// i.e. the row is past the longest lookback window.
func (r *IndicatorRow) Warm() bool {
	for _, v := range []float64{
		r.EMA9, r.EMA20, r.EMA50,
		r.RSI14, r.MoneyFlow20, r.VWAP20,
		r.ATR10, r.Supertrend,
	} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// JSON returns the JSON-encoded row (ignoring errors for hot-path usage).
// NaN fields are zeroed first since encoding/json rejects NaN; a warm-up
// row is never published.
func (r *IndicatorRow) JSON() []byte {
	cp := *r
	for _, p := range []*float64{
		&cp.EMA9, &cp.EMA20, &cp.EMA50,
		&cp.RSI14, &cp.MoneyFlow20, &cp.TypicalPrice, &cp.VWAP20,
		&cp.ATR10, &cp.STUpper, &cp.STLower, &cp.Supertrend,
	} {
		if math.IsNaN(*p) {
			*p = 0
		}
	}
	b, _ := json.Marshal(&cp)
	return b
}
