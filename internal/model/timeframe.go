package model

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe is a kline bar duration tag ("15m", "1h", "4h").
// It doubles as the storage namespace key for a candle series:
// one table per timeframe inside a symbol's database.
type Timeframe string

const (
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
)

// tfDurations maps supported timeframe tags to bar durations.
var tfDurations = map[Timeframe]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// Valid reports whether tf is a supported timeframe tag.
func (tf Timeframe) Valid() bool {
	_, ok := tfDurations[tf]
	return ok
}

// Duration returns the bar duration, or 0 for an unknown tag.
func (tf Timeframe) Duration() time.Duration {
	return tfDurations[tf]
}

// Millis returns the bar duration in milliseconds.
func (tf Timeframe) Millis() int64 {
	return int64(tf.Duration() / time.Millisecond)
}

// TableName returns the per-timeframe candle table name, e.g. "klines_15m".
// The tag is sanitized to alphanumerics only.
func (tf Timeframe) TableName() string {
	var b strings.Builder
	b.WriteString("klines_")
	for _, r := range tf {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseTimeframes parses a comma-separated list of timeframe tags.
func ParseTimeframes(s string) ([]Timeframe, error) {
	var tfs []Timeframe
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tf := Timeframe(p)
		if !tf.Valid() {
			return nil, fmt.Errorf("unknown timeframe %q", p)
		}
		tfs = append(tfs, tf)
	}
	return tfs, nil
}
