package backtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"trendsignals/internal/align"
	"trendsignals/internal/model"
)

// scripted decides from a fixed open_time -> action table, so the
// simulator's accounting can be tested without real indicator data.
type scripted struct {
	actions map[int64]model.Action
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Timeframes() []model.Timeframe { return []model.Timeframe{model.TF15m} }

func (s *scripted) Prepare(series map[model.Timeframe][]model.Candle) map[model.Timeframe][]model.IndicatorRow {
	return nil
}

func (s *scripted) Decide(symbol string, latest map[model.Timeframe]model.IndicatorRow) model.Decision {
	t := latest[model.TF15m].OpenTime
	if a, ok := s.actions[t]; ok {
		return model.Decision{Action: a, Timeframe: model.TF15m, KlineOpenTime: t}
	}
	return model.Hold
}

func alignedRows(closes ...float64) []align.AlignedRow {
	out := make([]align.AlignedRow, len(closes))
	for i, c := range closes {
		var r model.IndicatorRow
		r.OpenTime = int64(i) * 900_000
		r.Close = c
		out[i] = align.AlignedRow{Base: r}
	}
	return out
}

func at(i int) int64 { return int64(i) * 900_000 }

func TestRun_BuyThenSell(t *testing.T) {
	strat := &scripted{actions: map[int64]model.Action{
		at(1): model.ActionBuy,  // close 10
		at(3): model.ActionSell, // close 12
	}}
	rows := alignedRows(9, 10, 11, 12, 11)

	rep := New(strat).Run("BTCUSDT", rows, decimal.NewFromInt(1000))

	require.Len(t, rep.Trades, 2)
	require.Equal(t, model.ActionBuy, rep.Trades[0].Action)
	require.True(t, rep.Trades[0].Amount.Equal(decimal.NewFromInt(100)), "bought %s units", rep.Trades[0].Amount)
	require.Equal(t, model.ActionSell, rep.Trades[1].Action)

	require.True(t, rep.FinalValue.Equal(decimal.NewFromInt(1200)), "final value %s", rep.FinalValue)
	require.True(t, rep.Profit.Equal(decimal.NewFromInt(200)), "profit %s", rep.Profit)
	require.True(t, rep.ProfitPercent.Equal(decimal.NewFromInt(20)), "profit %% %s", rep.ProfitPercent)
	require.False(t, rep.OpenPosition)
	require.Equal(t, 5, rep.RowsEvaluated)
}

func TestRun_RedundantSignalsAreNoOps(t *testing.T) {
	// BUY while IN and SELL while OUT must not trade.
	strat := &scripted{actions: map[int64]model.Action{
		at(0): model.ActionSell, // OUT: ignored
		at(1): model.ActionBuy,
		at(2): model.ActionBuy, // IN: ignored
		at(3): model.ActionSell,
		at(4): model.ActionSell, // OUT: ignored
	}}
	rows := alignedRows(10, 10, 11, 12, 12)

	rep := New(strat).Run("BTCUSDT", rows, decimal.NewFromInt(1000))
	require.Len(t, rep.Trades, 2)
	require.True(t, rep.FinalValue.Equal(decimal.NewFromInt(1200)), "final value %s", rep.FinalValue)
}

func TestRun_OpenPositionMarkedToLastClose(t *testing.T) {
	strat := &scripted{actions: map[int64]model.Action{
		at(0): model.ActionBuy, // close 10
	}}
	rows := alignedRows(10, 11, 12.5)

	rep := New(strat).Run("ETHUSDT", rows, decimal.NewFromInt(1000))
	require.Len(t, rep.Trades, 1)
	require.True(t, rep.OpenPosition)
	// 100 units held, last close 12.5.
	require.True(t, rep.FinalValue.Equal(decimal.NewFromInt(1250)), "final value %s", rep.FinalValue)
	require.True(t, rep.ProfitPercent.Equal(decimal.NewFromInt(25)), "profit %% %s", rep.ProfitPercent)
}

func TestRun_NoSignalsNoTrades(t *testing.T) {
	strat := &scripted{actions: nil}
	rows := alignedRows(10, 11, 12)

	rep := New(strat).Run("BTCUSDT", rows, decimal.NewFromInt(1000))
	require.Empty(t, rep.Trades)
	require.True(t, rep.FinalValue.Equal(decimal.NewFromInt(1000)))
	require.True(t, rep.Profit.IsZero())
	require.True(t, rep.ProfitPercent.IsZero())
}

func TestRun_EmptyRows(t *testing.T) {
	rep := New(&scripted{}).Run("BTCUSDT", nil, decimal.NewFromInt(1000))
	require.Zero(t, rep.RowsEvaluated)
	require.True(t, rep.FinalValue.Equal(decimal.NewFromInt(1000)))
}

func TestRun_Deterministic(t *testing.T) {
	strat := &scripted{actions: map[int64]model.Action{
		at(1): model.ActionBuy,
		at(4): model.ActionSell,
	}}
	rows := alignedRows(9.5, 10.25, 11, 11.75, 12.5, 12)

	a := New(strat).Run("BTCUSDT", rows, decimal.NewFromInt(1000))
	b := New(strat).Run("BTCUSDT", rows, decimal.NewFromInt(1000))
	require.True(t, a.FinalValue.Equal(b.FinalValue))
	require.Equal(t, len(a.Trades), len(b.Trades))
}

func TestRun_BalanceIsAllCashOrAllAsset(t *testing.T) {
	// Two entries and one exit, with redundant signals mixed in; after
	// every evaluated row the balance must sit entirely on one side.
	strat := &scripted{actions: map[int64]model.Action{
		at(0): model.ActionSell, // OUT, no-op
		at(1): model.ActionBuy,
		at(2): model.ActionBuy, // IN, no-op
		at(3): model.ActionSell,
		at(4): model.ActionBuy,
	}}
	rows := alignedRows(10, 10, 11, 12, 11, 13)

	sim := New(strat)
	var steps []Step
	sim.OnStep = func(st Step) { steps = append(steps, st) }

	sim.Run("BTCUSDT", rows, decimal.NewFromInt(1000))

	require.Len(t, steps, len(rows))
	for i, st := range steps {
		cashHeld := st.Cash.IsPositive()
		assetHeld := st.Asset.IsPositive()
		require.NotEqual(t, cashHeld, assetHeld,
			"row %d (t=%d): cash=%s asset=%s", i, st.Time, st.Cash, st.Asset)
		if assetHeld {
			require.Equal(t, PositionIn, st.Position, "row %d", i)
		} else {
			require.Equal(t, PositionOut, st.Position, "row %d", i)
		}
	}
	require.Equal(t, PositionIn, steps[len(steps)-1].Position)
}
