package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPull/internal/domain/models"
)

var (
	nan    = models.Missing
	params = models.DefaultParams().Strategy
)

// quiet is an input on which no entry or exit rule can fire.
func quiet(price float64) Input {
	return Input{
		Price:               price,
		Regime:              models.RegimeNoTrend,
		Histogram:           nan,
		PrevHistogram:       nan,
		BBUpper:             nan,
		BBLower:             nan,
		RSI:                 nan,
		ADX:                 nan,
		PlusDI:              nan,
		MinusDI:             nan,
		SupertrendDirection: nan,
	}
}

func longSetup(price float64) Input {
	in := quiet(price)
	in.Regime = models.RegimeBullish
	in.Histogram, in.PrevHistogram = 0.5, 0.1
	in.BBUpper = price - 1
	in.RSI = 80
	return in
}

func shortSetup(price float64) Input {
	in := quiet(price)
	in.Regime = models.RegimeBearish
	in.Histogram, in.PrevHistogram = -0.5, -0.1
	in.BBLower = price + 1
	in.RSI = 40
	in.ADX = 40
	in.PlusDI, in.MinusDI = 10, 30
	return in
}

func long(entry, extreme float64) models.PositionState {
	return models.PositionState{Side: models.SideLong, EntryPrice: entry, ExtremeSinceEntry: extreme}
}

func TestLongTrailingStop(t *testing.T) {
	state, d := Step(long(100, 120), quiet(104), params)
	assert.Equal(t, models.SignalSell, d.Signal)
	assert.Equal(t, models.TradeClose, d.TradeType)
	assert.True(t, d.StopLoss)
	assert.Equal(t, models.SideFlat, state.Side)

	// the trigger price itself closes
	_, d = Step(long(100, 120), quiet(105), params)
	assert.True(t, d.StopLoss)

	state, d = Step(long(100, 120), quiet(106), params)
	assert.True(t, d.None())
	assert.Equal(t, models.SideLong, state.Side)
	assert.Equal(t, 120.0, state.ExtremeSinceEntry)
}

func TestLongExtremeTracksNewHigh(t *testing.T) {
	state, d := Step(long(100, 120), quiet(130), params)
	assert.True(t, d.None())
	assert.Equal(t, 130.0, state.ExtremeSinceEntry)
}

func TestShortTrailingStop(t *testing.T) {
	short := models.PositionState{Side: models.SideShort, EntryPrice: 100, ExtremeSinceEntry: 90}

	state, d := Step(short, quiet(95), params)
	assert.Equal(t, models.SignalBuy, d.Signal)
	assert.Equal(t, models.TradeClose, d.TradeType)
	assert.True(t, d.StopLoss)
	assert.Equal(t, models.SideFlat, state.Side)

	state, d = Step(short, quiet(94), params)
	assert.True(t, d.None())
	assert.Equal(t, models.SideShort, state.Side)
}

func TestEntries(t *testing.T) {
	state, d := Step(models.FlatPosition(), longSetup(100), params)
	assert.Equal(t, Decision{Signal: models.SignalBuy, TradeType: models.TradeLong}, d)
	assert.Equal(t, models.SideLong, state.Side)
	assert.Equal(t, 100.0, state.EntryPrice)
	assert.Equal(t, 100.0, state.ExtremeSinceEntry)

	state, d = Step(models.FlatPosition(), shortSetup(100), params)
	assert.Equal(t, Decision{Signal: models.SignalSell, TradeType: models.TradeShort}, d)
	assert.Equal(t, models.SideShort, state.Side)
}

func TestShortEntryNeedsTrendStrength(t *testing.T) {
	in := shortSetup(100)
	in.ADX = 20
	_, d := Step(models.FlatPosition(), in, params)
	assert.True(t, d.None())

	in = shortSetup(100)
	in.PlusDI = 40
	_, d = Step(models.FlatPosition(), in, params)
	assert.True(t, d.None())
}

func TestEntryOnlyFromFlat(t *testing.T) {
	state, d := Step(long(100, 100), longSetup(101), params)
	assert.True(t, d.None())
	assert.Equal(t, 100.0, state.EntryPrice)
}

func TestMissingPriceNoAction(t *testing.T) {
	state, d := Step(long(100, 120), quiet(nan), params)
	assert.True(t, d.None())
	assert.Equal(t, long(100, 120), state)
}

func TestMissingOperandNeverEnters(t *testing.T) {
	in := longSetup(100)
	in.RSI = nan
	_, d := Step(models.FlatPosition(), in, params)
	assert.True(t, d.None())
}

func TestLongExitOnOverbought(t *testing.T) {
	in := quiet(110)
	in.Histogram = -0.2
	in.RSI = 95
	state, d := Step(long(100, 112), in, params)
	assert.Equal(t, Decision{Signal: models.SignalSell, TradeType: models.TradeClose}, d)
	assert.Equal(t, models.SideFlat, state.Side)
}

func TestShortExitOnBullishBreak(t *testing.T) {
	in := quiet(95)
	in.Regime = models.RegimeBullish
	in.SupertrendDirection = 1
	in.BBUpper = 94
	in.Histogram = 0.3
	_, d := Step(models.PositionState{Side: models.SideShort, EntryPrice: 100, ExtremeSinceEntry: 94}, in, params)
	assert.Equal(t, Decision{Signal: models.SignalBuy, TradeType: models.TradeClose}, d)
}

// runFrame builds a lagged frame of len(prices) rows with every strategy column present
// and missing, regime no-trend.
func runFrame(prices []float64) *models.Frame {
	n := len(prices)
	bars := make([]models.Bar, n)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = models.Bar{Time: t0.Add(time.Duration(i) * time.Hour), Open: prices[i], High: prices[i], Low: prices[i], Close: prices[i]}
	}
	f := models.NewFrame("X", bars)
	f.PrevClose = append([]float64(nil), prices...)
	f.PrevOpen, f.PrevHigh, f.PrevLow, f.PrevVolume = prices, prices, prices, make([]float64, n)
	for _, name := range []string{models.ColMACDHistogram, models.ColBBUpper, models.ColBBLower, models.ColRSI,
		models.ColADX, models.ColPlusDI, models.ColMinusDI, models.ColSupertrendDirection} {
		col := make([]float64, n)
		for i := range col {
			col[i] = nan
		}
		_ = f.SetColumn(name, col)
	}
	f.Regime = make([]models.Regime, n)
	for i := range f.Regime {
		f.Regime[i] = models.RegimeNoTrend
	}
	return f
}

func setLongSetup(f *models.Frame, i int) {
	hist, _ := f.Column(models.ColMACDHistogram)
	upper, _ := f.Column(models.ColBBUpper)
	rsi, _ := f.Column(models.ColRSI)
	if i > 0 {
		hist[i-1] = 0.1
	}
	hist[i] = 0.5
	upper[i] = f.PrevClose[i] - 1
	rsi[i] = 80
	f.Regime[i] = models.RegimeBullish
}

func TestRunnerWritesForward(t *testing.T) {
	f := runFrame([]float64{100, 101, 102, 103})
	setLongSetup(f, 1)

	res, err := NewRunner(params).Run(f)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 1, 0}, f.Signal)
	assert.Equal(t, models.TradeLong, f.TradeType[2])
	assert.Equal(t, models.TradeNone, f.TradeType[1])
	assert.Equal(t, 1, res.Entries)
	assert.Equal(t, models.SideLong, res.Final.Side)
	assert.False(t, f.SyntheticTail)
}

func TestRunnerStopCloseWrittenForward(t *testing.T) {
	f := runFrame([]float64{100, 101, 120, 104, 104, 104})
	setLongSetup(f, 1)

	res, err := NewRunner(params).Run(f)
	require.NoError(t, err)

	// entry at 101 (bar 1), extreme 120, stop at 105 fires on bar 3
	assert.Equal(t, []int{0, 0, 1, 0, -1, 0}, f.Signal)
	assert.Equal(t, models.TradeClose, f.TradeType[4])
	assert.Equal(t, 1, res.Stops)
	assert.Equal(t, 1, res.Closes)
	assert.Equal(t, models.SideFlat, res.Final.Side)
}

func TestRunnerTerminalExtend(t *testing.T) {
	f := runFrame([]float64{100, 101, 102})
	setLongSetup(f, 2)
	last := f.Time[2]

	res, err := NewRunner(params).Run(f)
	require.NoError(t, err)

	require.Equal(t, 4, f.Len())
	assert.True(t, res.Extended)
	assert.True(t, f.SyntheticTail)
	assert.Equal(t, last.Add(time.Hour), f.Time[3])
	assert.Equal(t, models.SignalBuy, f.Signal[3])
	assert.Equal(t, models.TradeLong, f.TradeType[3])
	assert.True(t, models.IsMissing(f.Close[3]))
	assert.Equal(t, 102.0, f.PrevClose[3])
}

func TestRunnerTerminalDrop(t *testing.T) {
	f := runFrame([]float64{100, 101, 102})
	setLongSetup(f, 2)

	p := params
	p.TerminalPolicy = models.TerminalDrop
	res, err := NewRunner(p).Run(f)
	require.NoError(t, err)

	assert.Equal(t, 3, f.Len())
	assert.True(t, res.Dropped)
	assert.False(t, f.SyntheticTail)
	assert.Equal(t, []int{0, 0, 0}, f.Signal)
	assert.Equal(t, 0, res.Entries)
	assert.Equal(t, models.SideLong, res.Final.Side)
}

func TestRunnerNeedsRegime(t *testing.T) {
	f := runFrame([]float64{1, 2})
	f.Regime = nil
	_, err := NewRunner(params).Run(f)
	assert.Error(t, err)
}
