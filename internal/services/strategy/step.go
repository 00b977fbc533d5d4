package strategy

import (
	"math"
	"time"

	"TrendPull/internal/domain/models"
	"TrendPull/internal/services/features"
)

// Input is what the state machine sees on one bar. Price is the lagged close.
// PrevHistogram is Missing on the first processed bar.
type Input struct {
	Time                time.Time
	Price               float64
	Regime              models.Regime
	Histogram           float64
	PrevHistogram       float64
	BBUpper             float64
	BBLower             float64
	RSI                 float64
	ADX                 float64
	PlusDI              float64
	MinusDI             float64
	SupertrendDirection float64
}

// Decision is the action taken on one bar, to be written one bar forward.
type Decision struct {
	Signal    int
	TradeType models.TradeType
	StopLoss  bool
}

// None reports whether the decision carries no action.
func (d Decision) None() bool { return d.Signal == models.SignalNone }

var noDecision = Decision{Signal: models.SignalNone, TradeType: models.TradeNone}

// Step is the per-bar transition. The trailing stop is checked first whenever a
// position is open; entries are evaluated only when flat, exits only when not.
func Step(state models.PositionState, in Input, p models.StrategyParams) (models.PositionState, Decision) {
	if models.IsMissing(in.Price) {
		return state, noDecision
	}

	switch state.Side {
	case models.SideLong:
		state.ExtremeSinceEntry = extreme(state.ExtremeSinceEntry, in.Price, math.Max)
		if in.Price <= state.ExtremeSinceEntry*(1-p.LongTrailPct) {
			return closePosition(state, true)
		}
		if longExit(in, p) {
			return closePosition(state, false)
		}
		return state, noDecision

	case models.SideShort:
		state.ExtremeSinceEntry = extreme(state.ExtremeSinceEntry, in.Price, math.Min)
		if in.Price >= state.ExtremeSinceEntry*(1+p.ShortTrailPct) {
			return closePosition(state, true)
		}
		if shortExit(in, p) {
			return closePosition(state, false)
		}
		return state, noDecision
	}

	switch {
	case longEntry(in, p):
		return open(models.SideLong, in), Decision{Signal: models.SignalBuy, TradeType: models.TradeLong}
	case shortEntry(in, p):
		return open(models.SideShort, in), Decision{Signal: models.SignalSell, TradeType: models.TradeShort}
	}
	return state, noDecision
}

func extreme(prev, price float64, pick func(a, b float64) float64) float64 {
	if models.IsMissing(prev) {
		return price
	}
	return pick(prev, price)
}

func open(side models.Side, in Input) models.PositionState {
	return models.PositionState{
		Side:              side,
		EntryPrice:        in.Price,
		EntryTime:         in.Time,
		ExtremeSinceEntry: in.Price,
	}
}

// closePosition emits the opposite-sign signal and resets to flat.
func closePosition(state models.PositionState, stop bool) (models.PositionState, Decision) {
	d := Decision{Signal: models.SignalSell, TradeType: models.TradeClose, StopLoss: stop}
	if state.Side == models.SideShort {
		d.Signal = models.SignalBuy
	}
	return models.FlatPosition(), d
}

// Comparisons with a missing operand are false in Go, so missing cells never fire.

func longEntry(in Input, p models.StrategyParams) bool {
	return in.Regime == models.RegimeBullish &&
		in.Histogram > 0 && in.Histogram > in.PrevHistogram &&
		in.Price > in.BBUpper &&
		in.RSI > p.LongEntryRSI
}

func shortEntry(in Input, p models.StrategyParams) bool {
	return in.Regime == models.RegimeBearish &&
		in.Histogram < 0 && in.Histogram < in.PrevHistogram &&
		in.Price < in.BBLower &&
		in.ADX > p.ShortEntryADX && in.PlusDI < in.MinusDI &&
		in.RSI < p.ShortEntryRSI
}

func longExit(in Input, p models.StrategyParams) bool {
	return (in.Regime == models.RegimeBearish &&
		in.SupertrendDirection == features.DirectionUpBreak &&
		in.Price < in.BBLower &&
		in.Histogram < 0) ||
		(in.Histogram < 0 && in.RSI > p.LongExitRSI)
}

func shortExit(in Input, p models.StrategyParams) bool {
	return (in.Regime == models.RegimeBullish &&
		in.SupertrendDirection == features.DirectionDownBreak &&
		in.Price > in.BBUpper &&
		in.Histogram > 0) ||
		(in.Histogram > 0 && in.RSI < p.ShortExitRSI)
}
