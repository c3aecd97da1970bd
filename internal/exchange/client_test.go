package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trendsignals/internal/model"
)

func testClient(serverURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:   serverURL,
		PageEvery: time.Millisecond,
	})
}

func klineRow(openTime int64, close string) []any {
	return []any{
		openTime, "100.0", "101.0", "99.0", close, "12.5",
		openTime + 899_999, "1250.0", 42, "6.25", "625.0", "0",
	}
}

func TestFetchKlines_ParsesWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "15m" {
			t.Errorf("query: %v", q)
		}
		if q.Get("startTime") != "1000" || q.Get("limit") != "500" {
			t.Errorf("paging query: %v", q)
		}
		json.NewEncoder(w).Encode([][]any{
			klineRow(1_000, "100.5"),
			klineRow(901_000, "101.5"),
		})
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).FetchKlines(context.Background(), "BTCUSDT", model.TF15m, 1_000, 500)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candles: got %d, want 2", len(got))
	}

	c := got[0]
	if c.OpenTime != 1_000 || c.CloseTime != 900_999 {
		t.Errorf("times: %+v", c)
	}
	if c.Open != 100.0 || c.High != 101.0 || c.Low != 99.0 || c.Close != 100.5 {
		t.Errorf("prices: %+v", c)
	}
	if c.Volume != 12.5 || c.QuoteVolume != 1250.0 || c.TradeCount != 42 {
		t.Errorf("volumes: %+v", c)
	}
	if got[1].Close != 101.5 {
		t.Errorf("second candle close: %v", got[1].Close)
	}
}

func TestFetchKlines_SkipsMalformedRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rows := [][]any{
			klineRow(1_000, "100.5"),
			{2_000, "not-enough-fields"},
			klineRow(3_000, "102.5"),
		}
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).FetchKlines(context.Background(), "BTCUSDT", model.TF15m, 0, 500)
	if err != nil {
		t.Fatalf("a malformed row must not fail the page: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candles: got %d, want 2", len(got))
	}
	if got[0].OpenTime != 1_000 || got[1].OpenTime != 3_000 {
		t.Errorf("kept candles: %+v", got)
	}
}

func TestFetchKlines_EmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).FetchKlines(context.Background(), "BTCUSDT", model.TF15m, 0, 500)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("candles: got %d, want 0", len(got))
	}
}

func TestFetchKlines_HTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1003,"msg":"Too many requests."}`, http.StatusTeapot)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).FetchKlines(context.Background(), "BTCUSDT", model.TF15m, 0, 500); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestFetchKlines_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// PageEvery default forces a limiter wait, which must respect ctx.
	c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:0", PageEvery: time.Hour})
	if _, err := c.FetchKlines(ctx, "BTCUSDT", model.TF15m, 0, 500); err == nil {
		t.Fatal("expected context cancellation error")
	}
}
