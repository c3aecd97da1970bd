// Package strategy provides trading strategies over indicator-augmented
// candle series.
//
// A Strategy declares the timeframes it needs, prepares indicator rows
// from raw candle series, and turns the latest row per timeframe into a
// BUY/SELL/HOLD decision. Strategies are registered statically; there
// is no runtime discovery.
package strategy

import "trendsignals/internal/model"

// Strategy is the interface all trading strategies implement.
type Strategy interface {
	// Name returns the unique strategy name used in signal keys.
	Name() string

	// Timeframes returns the timeframes the strategy requires, base
	// (finest) first.
	Timeframes() []model.Timeframe

	// Prepare computes indicator rows for each required timeframe
	// present in the input. Pure; input series must be open_time
	// ascending.
	Prepare(series map[model.Timeframe][]model.Candle) map[model.Timeframe][]model.IndicatorRow

	// Decide evaluates the latest indicator row per timeframe. A missing
	// required timeframe yields HOLD, a precondition failure, not an
	// error.
	Decide(symbol string, latest map[model.Timeframe]model.IndicatorRow) model.Decision
}

// Registry returns all registered strategies.
func Registry() []Strategy {
	return []Strategy{
		NewTrendMaster(),
	}
}
