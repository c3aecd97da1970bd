// Package backtest replays a strategy's decision function causally over
// an aligned historical series and simulates a single-position
// all-in/all-out portfolio.
package backtest

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"trendsignals/internal/align"
	"trendsignals/internal/model"
	"trendsignals/internal/strategy"
)

// Position is the portfolio state.
type Position string

const (
	PositionOut Position = "OUT"
	PositionIn  Position = "IN"
)

// Trade is one executed simulated trade.
type Trade struct {
	Time   int64           `json:"time"` // base-timeframe open_time, epoch ms
	Action model.Action    `json:"action"`
	Price  decimal.Decimal `json:"price"`
	// Amount is the asset quantity bought (BUY trades only).
	Amount decimal.Decimal `json:"amount,omitempty"`
	// Proceeds is the cash received (SELL trades only).
	Proceeds decimal.Decimal `json:"proceeds,omitempty"`
}

// Report summarizes a simulation run. Given the same aligned series and
// starting capital the report is byte-for-byte reproducible: no
// randomness, no wall-clock reads.
type Report struct {
	Symbol          string
	Strategy        string
	StartingCapital decimal.Decimal
	FinalValue      decimal.Decimal
	Profit          decimal.Decimal
	ProfitPercent   decimal.Decimal
	Trades          []Trade
	RowsEvaluated   int
	OpenPosition    bool  // still IN at the end; FinalValue is marked to last close
	FirstOpenTime   int64 // first evaluated base row, epoch ms
	LastOpenTime    int64
}

// Step is the portfolio state after one evaluated row. The balance is
// always fully deployed on one side: cash when OUT, asset when IN.
type Step struct {
	Time     int64 // base row open_time, epoch ms
	Position Position
	Cash     decimal.Decimal
	Asset    decimal.Decimal
}

// Simulator replays decisions over aligned rows.
type Simulator struct {
	strat strategy.Strategy

	// Log mirrors executed trades to the process log when set.
	Log bool

	// OnStep observes the portfolio after every evaluated row when set.
	OnStep func(Step)
}

// New creates a simulator for the given strategy.
func New(strat strategy.Strategy) *Simulator {
	return &Simulator{strat: strat}
}

// Run evaluates every aligned row in ascending order, entering on BUY
// when OUT and exiting on SELL when IN, always with the full balance at
// the base-timeframe close. Any other signal/state pair is a no-op.
func (s *Simulator) Run(symbol string, rows []align.AlignedRow, startingCapital decimal.Decimal) Report {
	baseTF := s.strat.Timeframes()[0]

	cash := startingCapital
	asset := decimal.Zero
	position := PositionOut

	rep := Report{
		Symbol:          symbol,
		Strategy:        s.strat.Name(),
		StartingCapital: startingCapital,
		RowsEvaluated:   len(rows),
	}
	if len(rows) > 0 {
		rep.FirstOpenTime = rows[0].Base.OpenTime
		rep.LastOpenTime = rows[len(rows)-1].Base.OpenTime
	}

	for i := range rows {
		row := &rows[i]
		decision := s.strat.Decide(symbol, row.Latest(baseTF))
		price := decimal.NewFromFloat(row.Base.Close)

		switch {
		case decision.Action == model.ActionBuy && position == PositionOut:
			if price.IsZero() {
				break
			}
			asset = cash.Div(price)
			cash = decimal.Zero
			position = PositionIn
			rep.Trades = append(rep.Trades, Trade{
				Time:   row.Base.OpenTime,
				Action: model.ActionBuy,
				Price:  price,
				Amount: asset,
			})
			if s.Log {
				log.Printf("[backtest] %s BUY %s %s at %s",
					msTime(row.Base.OpenTime), asset.StringFixed(6), symbol, price)
			}

		case decision.Action == model.ActionSell && position == PositionIn:
			cash = asset.Mul(price)
			asset = decimal.Zero
			position = PositionOut
			rep.Trades = append(rep.Trades, Trade{
				Time:     row.Base.OpenTime,
				Action:   model.ActionSell,
				Price:    price,
				Proceeds: cash,
			})
			if s.Log {
				log.Printf("[backtest] %s SELL %s at %s for %s",
					msTime(row.Base.OpenTime), symbol, price, cash.StringFixed(2))
			}
		}

		if s.OnStep != nil {
			s.OnStep(Step{
				Time:     row.Base.OpenTime,
				Position: position,
				Cash:     cash,
				Asset:    asset,
			})
		}
	}

	rep.OpenPosition = position == PositionIn
	rep.FinalValue = cash
	if rep.OpenPosition && len(rows) > 0 {
		lastClose := decimal.NewFromFloat(rows[len(rows)-1].Base.Close)
		rep.FinalValue = asset.Mul(lastClose)
	}

	rep.Profit = rep.FinalValue.Sub(startingCapital)
	if !startingCapital.IsZero() {
		rep.ProfitPercent = rep.Profit.Div(startingCapital).Mul(decimal.NewFromInt(100))
	}
	return rep
}

// String renders the performance report.
func (r Report) String() string {
	open := ""
	if r.OpenPosition {
		open = " (open position marked to last close)"
	}
	return fmt.Sprintf(
		"--- Backtest Performance Report ---\n"+
			"Symbol:           %s\n"+
			"Strategy:         %s\n"+
			"Period:           %s to %s\n"+
			"Rows evaluated:   %d\n"+
			"Starting Capital: %s\n"+
			"Ending Capital:   %s%s\n"+
			"Profit/Loss:      %s (%s%%)\n"+
			"Total Trades:     %d",
		r.Symbol, r.Strategy,
		msTime(r.FirstOpenTime), msTime(r.LastOpenTime),
		r.RowsEvaluated,
		r.StartingCapital.StringFixed(2),
		r.FinalValue.StringFixed(2), open,
		r.Profit.StringFixed(2), r.ProfitPercent.StringFixed(2),
		len(r.Trades),
	)
}

func msTime(ms int64) string {
	return time.Unix(0, ms*int64(time.Millisecond)).UTC().Format("2006-01-02 15:04:05")
}
