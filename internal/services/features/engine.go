package features

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"TrendPull/internal/domain/models"
)

// Report summarises numeric degradation for one Compute call.
type Report struct {
	Missing map[string]int
	Hurst   map[HurstOutcome]int
}

// Engine computes every indicator column of one frame. It holds parameters only,
// so one Engine can serve many runs.
type Engine struct {
	params models.IndicatorParams
}

func NewEngine(params models.IndicatorParams) *Engine {
	return &Engine{params: params}
}

// Compute writes the indicator columns onto f. Independent indicators run in
// parallel; ATR feeds Supertrend and the filtered close feeds CUSUM and FDI.
func (e *Engine) Compute(ctx context.Context, f *models.Frame) (Report, error) {
	p := e.params
	if f.Len() > 0 && len(f.PrevClose) != f.Len() {
		return Report{}, &models.SchemaError{Column: "prev_close", Row: -1, Reason: "frame has not been lagged"}
	}

	var (
		tr, atr, filtered []float64
		bands             Bands
		macd              MACDResult
		rsi               = make([][]float64, len(p.RSILengths))
		st                SupertrendResult
		cusum             CUSUMResult
		hurst, fdi        []float64
		hurstCounts       map[HurstOutcome]int
		dir               DirectionalResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tr = TrueRange(f.PrevHigh, f.PrevLow, f.PrevClose)
		atr = nonNegative(ATR(tr, p.ATRSpan))
		if err := gctx.Err(); err != nil {
			return err
		}
		stATR := atr
		if p.SupertrendATRLength > 0 {
			stATR = SimpleATR(tr, p.SupertrendATRLength)
		}
		st = Supertrend(f.PrevHigh, f.PrevLow, f.PrevClose, stATR, p.SupertrendFactor)
		return nil
	})
	g.Go(func() error {
		bands = Bollinger(f.PrevClose, p.BollingerWindow, p.BollingerStdDev)
		return nil
	})
	g.Go(func() error {
		macd = MACD(f.PrevClose, p.MACDFast, p.MACDSlow, p.MACDSignal)
		return nil
	})
	for i, length := range p.RSILengths {
		i, length := i, length
		g.Go(func() error {
			rsi[i] = RSI(f.PrevClose, length)
			return nil
		})
	}
	g.Go(func() error {
		filtered = FilteredClose(f.PrevClose, p.FilterSpan)
		if err := gctx.Err(); err != nil {
			return err
		}
		cusum = CUSUM(f.PrevClose, filtered, p.CUSUMWindow, p.CUSUMDelta)
		fdi = RollingFDI(filtered, p.FDIWindow)
		return nil
	})
	g.Go(func() error {
		hurst, hurstCounts = RollingHurst(f.PrevClose, p.HurstWindow, p.HurstMinSamples, p.HurstMinSeries)
		return nil
	})
	g.Go(func() error {
		dir = Directional(f.PrevHigh, f.PrevLow, f.PrevClose, p.ADXPeriod)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("compute indicators: %w", err)
	}

	cols := []column{
		{models.ColTR, tr},
		{models.ColATR, atr},
		{models.ColBBMiddle, bands.Middle},
		{models.ColBBUpper, bands.Upper},
		{models.ColBBLower, bands.Lower},
		{models.ColMACD, macd.MACD},
		{models.ColMACDSignal, macd.Signal},
		{models.ColMACDHistogram, macd.Histogram},
		{models.ColSupertrend, st.Line},
		{models.ColSupertrendDirection, st.Direction},
		{models.ColFilteredClose, filtered},
		{models.ColCUSUMHi, cusum.Hi},
		{models.ColCUSUMLo, cusum.Lo},
		{models.ColHurst, hurst},
		{models.ColFDI, fdi},
		{models.ColADX, dir.ADX},
		{models.ColPlusDI, dir.PlusDI},
		{models.ColMinusDI, dir.MinusDI},
	}
	for i, length := range p.RSILengths {
		cols = append(cols, column{models.RSIColumn(length), rsi[i]})
		if length == p.RSIPrimary {
			cols = append(cols, column{models.ColRSI, append([]float64(nil), rsi[i]...)})
		}
	}

	report := Report{Missing: make(map[string]int, len(cols)), Hurst: hurstCounts}
	for _, c := range cols {
		if err := f.SetColumn(c.name, c.values); err != nil {
			return Report{}, err
		}
		report.Missing[c.name] = countMissing(c.values)
	}
	return report, nil
}

type column struct {
	name   string
	values []float64
}

func countMissing(x []float64) int {
	n := 0
	for _, v := range x {
		if models.IsMissing(v) {
			n++
		}
	}
	return n
}
