package models

import (
	"fmt"
	"time"
)

// Indicator column names written by the feature engine.
const (
	ColTR                  = "tr"
	ColATR                 = "atr"
	ColBBMiddle            = "bb_middle"
	ColBBUpper             = "bb_upper"
	ColBBLower             = "bb_lower"
	ColMACD                = "macd"
	ColMACDSignal          = "macd_signal"
	ColMACDHistogram       = "macd_histogram"
	ColRSI                 = "rsi"
	ColSupertrend          = "supertrend"
	ColSupertrendDirection = "supertrend_direction"
	ColFilteredClose       = "filtered_close"
	ColCUSUMHi             = "cusum_hi"
	ColCUSUMLo             = "cusum_lo"
	ColHurst               = "hurst"
	ColFDI                 = "fdi"
	ColADX                 = "adx"
	ColPlusDI              = "plus_di"
	ColMinusDI             = "minus_di"
	ColRollingH            = "rolling_h"
)

// RSIColumn returns the column name for an RSI of the given length.
func RSIColumn(length int) string {
	return fmt.Sprintf("rsi_%d", length)
}

// Frame is the columnar series for a single run. Every slice has Len() entries.
type Frame struct {
	Symbol string
	Time   []time.Time

	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64

	PrevOpen   []float64
	PrevHigh   []float64
	PrevLow    []float64
	PrevClose  []float64
	PrevVolume []float64

	Regime     []Regime
	Signal     []int
	TradeType  []TradeType
	CumReturns []float64

	// SyntheticTail is set when the last row was appended to carry a forward-written signal.
	SyntheticTail bool

	columns map[string][]float64
	names   []string
}

// NewFrame builds a frame from raw bars. Lag columns are left empty.
func NewFrame(symbol string, bars []Bar) *Frame {
	n := len(bars)
	f := &Frame{
		Symbol:  symbol,
		Time:    make([]time.Time, n),
		Open:    make([]float64, n),
		High:    make([]float64, n),
		Low:     make([]float64, n),
		Close:   make([]float64, n),
		Volume:  make([]float64, n),
		columns: make(map[string][]float64),
	}
	for i, b := range bars {
		f.Time[i] = b.Time
		f.Open[i] = b.Open
		f.High[i] = b.High
		f.Low[i] = b.Low
		f.Close[i] = b.Close
		f.Volume[i] = b.Volume
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Time) }

// SetColumn stores an indicator column, replacing any column with the same name.
func (f *Frame) SetColumn(name string, values []float64) error {
	if len(values) != f.Len() {
		return fmt.Errorf("column %s: got %d values, frame has %d rows", name, len(values), f.Len())
	}
	if f.columns == nil {
		f.columns = make(map[string][]float64)
	}
	if _, ok := f.columns[name]; !ok {
		f.names = append(f.names, name)
	}
	f.columns[name] = values
	return nil
}

// Column returns the named indicator column.
func (f *Frame) Column(name string) ([]float64, bool) {
	c, ok := f.columns[name]
	return c, ok
}

// Value returns the cell at row i of the named column, or Missing.
func (f *Frame) Value(name string, i int) float64 {
	c, ok := f.columns[name]
	if !ok || i < 0 || i >= len(c) {
		return Missing
	}
	return c[i]
}

// ColumnNames lists indicator columns in insertion order.
func (f *Frame) ColumnNames() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	c := &Frame{
		Symbol:        f.Symbol,
		Time:          append([]time.Time(nil), f.Time...),
		Open:          cloneFloats(f.Open),
		High:          cloneFloats(f.High),
		Low:           cloneFloats(f.Low),
		Close:         cloneFloats(f.Close),
		Volume:        cloneFloats(f.Volume),
		PrevOpen:      cloneFloats(f.PrevOpen),
		PrevHigh:      cloneFloats(f.PrevHigh),
		PrevLow:       cloneFloats(f.PrevLow),
		PrevClose:     cloneFloats(f.PrevClose),
		PrevVolume:    cloneFloats(f.PrevVolume),
		Regime:        append([]Regime(nil), f.Regime...),
		Signal:        append([]int(nil), f.Signal...),
		TradeType:     append([]TradeType(nil), f.TradeType...),
		CumReturns:    cloneFloats(f.CumReturns),
		SyntheticTail: f.SyntheticTail,
		columns:       make(map[string][]float64, len(f.columns)),
		names:         append([]string(nil), f.names...),
	}
	for k, v := range f.columns {
		c.columns[k] = cloneFloats(v)
	}
	return c
}

// AppendSyntheticRow adds one trailing row at t. Raw fields and indicators are missing;
// the lag fields carry the last real bar since those values are already known.
func (f *Frame) AppendSyntheticRow(t time.Time) {
	last := f.Len() - 1
	f.Time = append(f.Time, t)
	f.Open = append(f.Open, Missing)
	f.High = append(f.High, Missing)
	f.Low = append(f.Low, Missing)
	f.Close = append(f.Close, Missing)
	f.Volume = append(f.Volume, Missing)
	if last >= 0 {
		f.PrevOpen = append(f.PrevOpen, f.Open[last])
		f.PrevHigh = append(f.PrevHigh, f.High[last])
		f.PrevLow = append(f.PrevLow, f.Low[last])
		f.PrevClose = append(f.PrevClose, f.Close[last])
		f.PrevVolume = append(f.PrevVolume, f.Volume[last])
	}
	for _, name := range f.names {
		f.columns[name] = append(f.columns[name], Missing)
	}
	if f.Regime != nil {
		f.Regime = append(f.Regime, RegimeNoTrend)
	}
	if f.Signal != nil {
		f.Signal = append(f.Signal, SignalNone)
	}
	if f.TradeType != nil {
		f.TradeType = append(f.TradeType, TradeNone)
	}
	if f.CumReturns != nil {
		f.CumReturns = append(f.CumReturns, Missing)
	}
	f.SyntheticTail = true
}

// NextTime extrapolates the timestamp after the last row using the last bar spacing.
func (f *Frame) NextTime() time.Time {
	n := f.Len()
	switch {
	case n == 0:
		return time.Time{}
	case n == 1:
		return f.Time[0].Add(time.Minute)
	default:
		return f.Time[n-1].Add(f.Time[n-1].Sub(f.Time[n-2]))
	}
}

func cloneFloats(in []float64) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, len(in))
	copy(out, in)
	return out
}
