// Package exchange implements the market-data boundary: a paginated
// REST klines client and a multiplexed kline push stream.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"trendsignals/internal/model"
)

const (
	defaultAPIURL  = "https://api.binance.com"
	defaultTimeout = 15 * time.Second

	// DefaultPageLimit is the maximum klines per fetch page.
	DefaultPageLimit = 1000
	// defaultPageEvery paces successive pages within one series sync.
	defaultPageEvery = 500 * time.Millisecond
)

// ClientConfig configures the REST klines client.
type ClientConfig struct {
	BaseURL   string        // default https://api.binance.com
	Timeout   time.Duration // per-request timeout, default 15s
	PageEvery time.Duration // min delay between pages, default 500ms
}

// Client fetches historical klines page by page.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a klines client with a page rate limiter.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageEvery <= 0 {
		cfg.PageEvery = defaultPageEvery
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.PageEvery), 1),
	}
}

// FetchKlines requests one page of klines with open_time >= startTime.
// The response is ordered ascending; an empty slice means no more data.
// A malformed row is skipped without failing the page.
func (c *Client) FetchKlines(ctx context.Context, symbol string, tf model.Timeframe, startTime int64, limit int) ([]model.Candle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(tf))
	q.Set("limit", strconv.Itoa(limit))
	if startTime > 0 {
		q.Set("startTime", strconv.FormatInt(startTime, 10))
	}

	reqURL := c.baseURL + "/api/v3/klines?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("klines request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("klines fetch %s %s: %w", symbol, tf, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("klines read %s %s: %w", symbol, tf, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines fetch %s %s: status %d: %s", symbol, tf, resp.StatusCode, truncate(body, 200))
	}

	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("klines decode %s %s: %w", symbol, tf, err)
	}

	out := make([]model.Candle, 0, len(raw))
	for _, row := range raw {
		c, err := parseKlineRow(row)
		if err != nil {
			log.Printf("[exchange] skipping malformed kline row for %s %s: %v", symbol, tf, err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// parseKlineRow converts one wire-format kline array:
// [open_time, open, high, low, close, volume, close_time, quote_volume,
// trade_count, taker_buy_base, taker_buy_quote, ...].
// Integers arrive as JSON numbers, prices and volumes as numeric strings.
func parseKlineRow(row []any) (model.Candle, error) {
	if len(row) < 11 {
		return model.Candle{}, fmt.Errorf("kline row has %d fields, want 11", len(row))
	}

	openTime, ok := toInt64(row[0])
	if !ok {
		return model.Candle{}, fmt.Errorf("bad open_time %v", row[0])
	}
	closeTime, ok := toInt64(row[6])
	if !ok {
		return model.Candle{}, fmt.Errorf("bad close_time %v", row[6])
	}
	trades, ok := toInt64(row[8])
	if !ok {
		return model.Candle{}, fmt.Errorf("bad trade count %v", row[8])
	}

	c := model.Candle{OpenTime: openTime, CloseTime: closeTime, TradeCount: trades}
	for _, f := range []struct {
		dst *float64
		idx int
	}{
		{&c.Open, 1}, {&c.High, 2}, {&c.Low, 3}, {&c.Close, 4}, {&c.Volume, 5},
		{&c.QuoteVolume, 7}, {&c.TakerBuyBase, 9}, {&c.TakerBuyQuote, 10},
	} {
		v, ok := toFloat64(row[f.idx])
		if !ok {
			return model.Candle{}, fmt.Errorf("bad numeric field at index %d: %v", f.idx, row[f.idx])
		}
		*f.dst = v
	}
	return c, nil
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
