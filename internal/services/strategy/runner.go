package strategy

import (
	"fmt"

	"TrendPull/internal/domain/models"
)

// Result summarises one pass over a frame.
type Result struct {
	Final    models.PositionState
	Entries  int
	Closes   int
	Stops    int
	Extended bool
	// Dropped is set when a decision on the final bar was discarded.
	Dropped bool
}

// Runner drives Step over a frame in timestamp order.
type Runner struct {
	params models.StrategyParams
}

func NewRunner(params models.StrategyParams) *Runner {
	return &Runner{params: params}
}

// Run fills the signals and trade_type columns. A decision made on bar i lands on bar
// i+1; for the final bar the terminal policy either appends one synthetic row or drops it.
func (r *Runner) Run(f *models.Frame) (Result, error) {
	for _, name := range []string{models.ColMACDHistogram, models.ColBBUpper, models.ColBBLower, models.ColRSI,
		models.ColADX, models.ColPlusDI, models.ColMinusDI, models.ColSupertrendDirection} {
		if _, ok := f.Column(name); !ok {
			return Result{}, fmt.Errorf("run strategy: column %s not computed", name)
		}
	}
	if len(f.Regime) != f.Len() {
		return Result{}, fmt.Errorf("run strategy: regime not classified")
	}

	n := f.Len()
	f.Signal = make([]int, n)
	f.TradeType = make([]models.TradeType, n)
	for i := range f.TradeType {
		f.TradeType[i] = models.TradeNone
	}

	hist, _ := f.Column(models.ColMACDHistogram)
	upper, _ := f.Column(models.ColBBUpper)
	lower, _ := f.Column(models.ColBBLower)
	rsi, _ := f.Column(models.ColRSI)
	adx, _ := f.Column(models.ColADX)
	plusDI, _ := f.Column(models.ColPlusDI)
	minusDI, _ := f.Column(models.ColMinusDI)
	dir, _ := f.Column(models.ColSupertrendDirection)

	res := Result{}
	state := models.FlatPosition()
	var terminal *Decision
	for i := 0; i < n; i++ {
		prevHist := models.Missing
		if i > 0 {
			prevHist = hist[i-1]
		}
		var d Decision
		state, d = Step(state, Input{
			Time:                f.Time[i],
			Price:               f.PrevClose[i],
			Regime:              f.Regime[i],
			Histogram:           hist[i],
			PrevHistogram:       prevHist,
			BBUpper:             upper[i],
			BBLower:             lower[i],
			RSI:                 rsi[i],
			ADX:                 adx[i],
			PlusDI:              plusDI[i],
			MinusDI:             minusDI[i],
			SupertrendDirection: dir[i],
		}, r.params)
		if d.None() {
			continue
		}
		if i+1 < n {
			f.Signal[i+1] = d.Signal
			f.TradeType[i+1] = d.TradeType
			res.count(d)
			continue
		}
		terminal = &d
	}

	if terminal != nil {
		switch r.params.TerminalPolicy {
		case models.TerminalDrop:
			res.Dropped = true
		default:
			f.AppendSyntheticRow(f.NextTime())
			f.Signal[n] = terminal.Signal
			f.TradeType[n] = terminal.TradeType
			res.count(*terminal)
			res.Extended = true
		}
	}
	res.Final = state
	return res, nil
}

func (r *Result) count(d Decision) {
	switch {
	case d.TradeType != models.TradeClose:
		r.Entries++
	case d.StopLoss:
		r.Stops++
		r.Closes++
	default:
		r.Closes++
	}
}
