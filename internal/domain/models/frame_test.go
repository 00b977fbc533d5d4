package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleFrame() *Frame {
	bars := []Bar{
		{Time: t0, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{Time: t0.Add(time.Hour), Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 120},
	}
	f := NewFrame("BTC", bars)
	f.PrevOpen = []float64{Missing, 10}
	f.PrevHigh = []float64{Missing, 11}
	f.PrevLow = []float64{Missing, 9}
	f.PrevClose = []float64{Missing, 10.5}
	f.PrevVolume = []float64{Missing, 100}
	f.Regime = []Regime{RegimeNoTrend, RegimeBullish}
	f.Signal = []int{SignalNone, SignalBuy}
	f.TradeType = []TradeType{TradeNone, TradeLong}
	f.CumReturns = []float64{100, 100}
	return f
}

func TestFrameSetColumn(t *testing.T) {
	f := sampleFrame()
	require.NoError(t, f.SetColumn(ColRSI, []float64{Missing, 55}))
	require.NoError(t, f.SetColumn(ColATR, []float64{1, 2}))
	require.NoError(t, f.SetColumn(ColRSI, []float64{Missing, 60}))

	assert.Equal(t, []string{ColRSI, ColATR}, f.ColumnNames())
	assert.Equal(t, 60.0, f.Value(ColRSI, 1))
	assert.True(t, IsMissing(f.Value(ColRSI, 0)))
	assert.True(t, IsMissing(f.Value("absent", 0)))
	assert.True(t, IsMissing(f.Value(ColATR, 5)))

	assert.Error(t, f.SetColumn(ColADX, []float64{1}))
}

func TestFrameAppendSyntheticRow(t *testing.T) {
	f := sampleFrame()
	require.NoError(t, f.SetColumn(ColRSI, []float64{40, 55}))

	next := f.NextTime()
	assert.Equal(t, t0.Add(2*time.Hour), next)

	f.AppendSyntheticRow(next)
	require.Equal(t, 3, f.Len())
	assert.True(t, f.SyntheticTail)
	assert.True(t, IsMissing(f.Close[2]))
	assert.True(t, IsMissing(f.Open[2]))
	assert.Equal(t, 11.5, f.PrevClose[2])
	assert.Equal(t, 12.0, f.PrevHigh[2])
	assert.True(t, IsMissing(f.Value(ColRSI, 2)))
	assert.Equal(t, RegimeNoTrend, f.Regime[2])
	assert.Equal(t, SignalNone, f.Signal[2])
	assert.Equal(t, TradeNone, f.TradeType[2])
	assert.True(t, IsMissing(f.CumReturns[2]))
}

func TestFrameNextTimeShortSeries(t *testing.T) {
	f := NewFrame("X", nil)
	assert.True(t, f.NextTime().IsZero())

	f = NewFrame("X", []Bar{{Time: t0}})
	assert.Equal(t, t0.Add(time.Minute), f.NextTime())
}

func TestFrameCloneIsDeep(t *testing.T) {
	f := sampleFrame()
	require.NoError(t, f.SetColumn(ColATR, []float64{1, 2}))

	c := f.Clone()
	c.Close[0] = 99
	c.Signal[1] = SignalSell
	col, _ := c.Column(ColATR)
	col[0] = 42

	assert.Equal(t, 10.5, f.Close[0])
	assert.Equal(t, SignalBuy, f.Signal[1])
	assert.Equal(t, 1.0, f.Value(ColATR, 0))
	assert.Equal(t, f.ColumnNames(), c.ColumnNames())
}

func TestFrameRowAndEvents(t *testing.T) {
	f := sampleFrame()
	require.NoError(t, f.SetColumn(ColRSI, []float64{Missing, 55}))

	r := f.Row(1)
	assert.Equal(t, Float(10.5), r.PrevClose)
	assert.Equal(t, RegimeBullish, r.Regime)
	assert.Equal(t, SignalBuy, r.Signal)
	assert.Equal(t, TradeLong, r.TradeType)
	assert.Equal(t, Float(55), r.Indicators[ColRSI])

	evs := f.Events("run-1")
	require.Len(t, evs, 1)
	assert.Equal(t, SignalEvent{
		RunID:     "run-1",
		Symbol:    "BTC",
		Time:      t0.Add(time.Hour).UnixMilli(),
		Signal:    SignalBuy,
		TradeType: TradeLong,
		Price:     10.5,
		Regime:    RegimeBullish,
	}, evs[0])
}

func TestFloatJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Float `json:"a"`
		B Float `json:"b"`
	}{A: Float(Missing), B: 1.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":1.5}`, string(b))

	var out struct {
		A Float `json:"a"`
		B Float `json:"b"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, IsMissing(float64(out.A)))
	assert.Equal(t, Float(1.5), out.B)
}

func TestRowJSONMissingIndicatorIsNull(t *testing.T) {
	f := sampleFrame()
	require.NoError(t, f.SetColumn(ColHurst, []float64{Missing, 0.6}))

	b, err := json.Marshal(f.Row(0))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Nil(t, m["prev_close"])
	assert.Nil(t, m["indicators"].(map[string]any)[ColHurst])
	assert.Equal(t, " ", m["trade_type"])
}

func TestSchemaErrorMessage(t *testing.T) {
	assert.Equal(t, `schema: column "close" row 3: not a number`,
		(&SchemaError{Column: "close", Row: 3, Reason: "not a number"}).Error())
	assert.Equal(t, `schema: column "open": missing`,
		(&SchemaError{Column: "open", Row: -1, Reason: "missing"}).Error())
}
