package exchange

import (
	"strings"
	"testing"

	"trendsignals/internal/model"
)

const closedKlineMsg = `{
	"stream": "btcusdt@kline_15m",
	"data": {
		"e": "kline",
		"s": "BTCUSDT",
		"k": {
			"t": 1700000000000,
			"T": 1700000899999,
			"i": "15m",
			"o": "42000.10",
			"c": "42100.50",
			"h": "42150.00",
			"l": "41950.25",
			"v": "123.456",
			"n": 2500,
			"x": true,
			"q": "5190000.00",
			"V": "61.7",
			"Q": "2595000.00"
		}
	}
}`

func TestParseStreamMessage_ClosedKline(t *testing.T) {
	ev, err := ParseStreamMessage([]byte(closedKlineMsg))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if ev.Symbol != "BTCUSDT" {
		t.Errorf("symbol: got %q", ev.Symbol)
	}
	if ev.Timeframe != model.TF15m {
		t.Errorf("timeframe: got %q", ev.Timeframe)
	}
	if !ev.Closed {
		t.Error("expected a closed candle event")
	}

	c := ev.Candle
	if c.OpenTime != 1700000000000 || c.CloseTime != 1700000899999 {
		t.Errorf("times: open=%d close=%d", c.OpenTime, c.CloseTime)
	}
	if c.Open != 42000.10 || c.Close != 42100.50 || c.High != 42150.00 || c.Low != 41950.25 {
		t.Errorf("prices: %+v", c)
	}
	if c.Volume != 123.456 || c.QuoteVolume != 5190000.00 || c.TradeCount != 2500 {
		t.Errorf("volumes: %+v", c)
	}
	if c.TakerBuyBase != 61.7 || c.TakerBuyQuote != 2595000.00 {
		t.Errorf("taker volumes: %+v", c)
	}
}

func TestParseStreamMessage_FormingKline(t *testing.T) {
	msg := strings.Replace(closedKlineMsg, `"x": true`, `"x": false`, 1)
	ev, err := ParseStreamMessage([]byte(msg))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Closed {
		t.Error("expected a forming (not closed) event")
	}
}

func TestParseStreamMessage_Malformed(t *testing.T) {
	cases := []struct {
		name string
		msg  string
	}{
		{"not json", `{"stream": `},
		{"wrong event type", strings.Replace(closedKlineMsg, `"e": "kline"`, `"e": "trade"`, 1)},
		{"missing symbol", strings.Replace(closedKlineMsg, `"s": "BTCUSDT"`, `"s": ""`, 1)},
		{"unknown interval", strings.Replace(closedKlineMsg, `"i": "15m"`, `"i": "13m"`, 1)},
		{"missing open_time", strings.Replace(closedKlineMsg, `"t": 1700000000000`, `"t": 0`, 1)},
		{"bad price", strings.Replace(closedKlineMsg, `"o": "42000.10"`, `"o": "forty-two"`, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseStreamMessage([]byte(tc.msg)); err == nil {
				t.Error("expected a parse error")
			}
		})
	}
}

func TestNewStream_CombinedURL(t *testing.T) {
	s := NewStream(StreamConfig{
		BaseURL:    "wss://example.test/stream",
		Symbols:    []string{"BTCUSDT", "ETHUSDT"},
		Timeframes: []model.Timeframe{model.TF15m, model.TF1h},
	})

	want := "wss://example.test/stream?streams=" +
		"btcusdt@kline_15m/btcusdt@kline_1h/ethusdt@kline_15m/ethusdt@kline_1h"
	if s.url != want {
		t.Errorf("stream url:\n got %s\nwant %s", s.url, want)
	}
}
