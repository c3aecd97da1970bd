package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"trendsignals/internal/model"
)

const (
	defaultStreamURL = "wss://stream.binance.com:9443/stream"

	// Fixed reconnect backoff; the relay retries forever, gaps are
	// healed by the next backfill cycle.
	reconnectDelay = 5 * time.Second

	readDeadline = 3 * time.Minute
	dialTimeout  = 10 * time.Second
)

// StreamEvent is one kline event off the multiplexed push stream.
// Closed is false while the bar is still forming.
type StreamEvent struct {
	Symbol    string
	Timeframe model.Timeframe
	Closed    bool
	Candle    model.Candle
}

// StreamConfig configures the push-stream consumer.
type StreamConfig struct {
	BaseURL    string // default wss://stream.binance.com:9443/stream
	Symbols    []string
	Timeframes []model.Timeframe
}

// Stream is a single logical consumer of one multiplexed kline
// websocket. Events are delivered through the OnEvent callback;
// connection loss triggers indefinite reconnect with fixed backoff.
type Stream struct {
	url string

	// OnEvent receives every parsed kline event. It must not block
	// longer than its own processing; queueing is the caller's concern.
	OnEvent func(StreamEvent)

	// Optional hooks for health/metrics.
	OnConnect    func()
	OnDisconnect func()
}

// NewStream builds the combined-streams URL for all (symbol, timeframe)
// pairs, e.g. ".../stream?streams=btcusdt@kline_15m/btcusdt@kline_1h".
func NewStream(cfg StreamConfig) *Stream {
	base := cfg.BaseURL
	if base == "" {
		base = defaultStreamURL
	}
	names := make([]string, 0, len(cfg.Symbols)*len(cfg.Timeframes))
	for _, sym := range cfg.Symbols {
		for _, tf := range cfg.Timeframes {
			names = append(names, strings.ToLower(sym)+"@kline_"+string(tf))
		}
	}
	return &Stream{url: base + "?streams=" + strings.Join(names, "/")}
}

// Run connects and consumes events until ctx is cancelled. Errors never
// escape a connection attempt: every failure logs, backs off, and
// redials.
func (s *Stream) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.consumeOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[stream] connection lost: %v (reconnecting in %s)", err, reconnectDelay)
		if s.OnDisconnect != nil {
			s.OnDisconnect()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// consumeOnce dials and reads until the connection drops or ctx ends.
func (s *Stream) consumeOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	log.Printf("[stream] connected")
	if s.OnConnect != nil {
		s.OnConnect()
	}

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	// Unblock ReadMessage on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		ev, err := ParseStreamMessage(msg)
		if err != nil {
			// Malformed payload: discard the event, keep the stream.
			log.Printf("[stream] discarding event: %v", err)
			continue
		}
		if s.OnEvent != nil {
			s.OnEvent(ev)
		}
	}
}

// Wire envelope of the combined kline stream.
type wsEnvelope struct {
	Stream string       `json:"stream"`
	Data   wsKlineEvent `json:"data"`
}

type wsKlineEvent struct {
	Event  string  `json:"e"`
	Symbol string  `json:"s"`
	Kline  wsKline `json:"k"`
}

type wsKline struct {
	OpenTime      int64  `json:"t"`
	CloseTime     int64  `json:"T"`
	Interval      string `json:"i"`
	Open          string `json:"o"`
	Close         string `json:"c"`
	High          string `json:"h"`
	Low           string `json:"l"`
	Volume        string `json:"v"`
	TradeCount    int64  `json:"n"`
	Closed        bool   `json:"x"`
	QuoteVolume   string `json:"q"`
	TakerBuyBase  string `json:"V"`
	TakerBuyQuote string `json:"Q"`
}

// ParseStreamMessage parses one raw websocket message into a
// StreamEvent. Any missing required field is a parse error; the caller
// discards the single event and continues.
func ParseStreamMessage(msg []byte) (StreamEvent, error) {
	var env wsEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return StreamEvent{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Data.Event != "kline" {
		return StreamEvent{}, fmt.Errorf("unexpected event type %q", env.Data.Event)
	}
	if env.Data.Symbol == "" {
		return StreamEvent{}, fmt.Errorf("missing symbol")
	}
	k := env.Data.Kline
	tf := model.Timeframe(k.Interval)
	if !tf.Valid() {
		return StreamEvent{}, fmt.Errorf("unknown interval %q", k.Interval)
	}
	if k.OpenTime <= 0 {
		return StreamEvent{}, fmt.Errorf("missing open_time")
	}

	c := model.Candle{
		OpenTime:   k.OpenTime,
		CloseTime:  k.CloseTime,
		TradeCount: k.TradeCount,
	}
	for _, f := range []struct {
		dst *float64
		src string
	}{
		{&c.Open, k.Open}, {&c.High, k.High}, {&c.Low, k.Low},
		{&c.Close, k.Close}, {&c.Volume, k.Volume},
		{&c.QuoteVolume, k.QuoteVolume},
		{&c.TakerBuyBase, k.TakerBuyBase}, {&c.TakerBuyQuote, k.TakerBuyQuote},
	} {
		v, ok := toFloat64(f.src)
		if !ok {
			return StreamEvent{}, fmt.Errorf("bad numeric field %q", f.src)
		}
		*f.dst = v
	}

	return StreamEvent{
		Symbol:    env.Data.Symbol,
		Timeframe: tf,
		Closed:    k.Closed,
		Candle:    c,
	}, nil
}
