package model

import (
	"encoding/json"
	"time"
)

// Action is a trading decision kind.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Decision is the outcome of evaluating a strategy against the latest
// indicator rows. Timeframe and KlineOpenTime are zero for HOLD.
type Decision struct {
	Action        Action
	Timeframe     Timeframe
	KlineOpenTime int64 // open_time of the base-timeframe candle that triggered
}

// Hold is the decision returned when no entry/exit condition is met or a
// required timeframe is missing.
var Hold = Decision{Action: ActionHold}

// Signal is a persisted non-HOLD decision.
// (Symbol, Strategy, Timeframe, KlineOpenTime) is the dedup key: the same
// closed candle evaluated twice must not produce two rows.
type Signal struct {
	Symbol        string    `json:"symbol"`
	Action        Action    `json:"signal"`
	Strategy      string    `json:"strategy"`
	Timeframe     Timeframe `json:"timeframe"`
	KlineOpenTime int64     `json:"kline_open_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// JSON returns the JSON-encoded signal.
func (s *Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
