package repository

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPull/internal/domain/models"
)

const sampleCSV = `Timestamp,Open,High,Low,Close,Volume
2024-01-01 00:00:00,100,101,99,100.5,10
2024-01-01 01:00:00,100.5,102,100,101.5,12
`

func TestReadBars(t *testing.T) {
	bars, err := ReadBars(strings.NewReader(sampleCSV), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), bars[1].Time)
	assert.Equal(t, 101.5, bars[1].Close)
	assert.Equal(t, "BTCUSDT", bars[0].Symbol)
}

func TestReadBarsMissingColumn(t *testing.T) {
	in := "timestamp,open,high,low,close\n2024-01-01,1,1,1,1\n"
	_, err := ReadBars(strings.NewReader(in), "X")
	var se *models.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "volume", se.Column)
	assert.Equal(t, -1, se.Row)
}

func TestReadBarsBadNumber(t *testing.T) {
	in := "date,open,high,low,close,volume\n2024-01-01,1,1,abc,1,1\n"
	_, err := ReadBars(strings.NewReader(in), "X")
	var se *models.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "low", se.Column)
	assert.Equal(t, 0, se.Row)
}

func TestReadBarsUnixMillis(t *testing.T) {
	in := "timestamp,open,high,low,close,volume\n1704067200000,1,2,0.5,1.5,3\n"
	bars, err := ReadBars(strings.NewReader(in), "X")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Time)
}

func TestReadBarsEmpty(t *testing.T) {
	for _, in := range []string{"", "timestamp,open,high,low,close,volume\n", "timestamp,open,high,low,close,volume\n\n"} {
		bars, err := ReadBars(strings.NewReader(in), "X")
		var se *models.SchemaError
		require.True(t, errors.As(err, &se), "%q", in)
		assert.Equal(t, "empty input", se.Reason)
		assert.Nil(t, bars)
	}
}

func TestWriteFrameMissingCellsEmpty(t *testing.T) {
	bars, err := ReadBars(strings.NewReader(sampleCSV), "BTCUSDT")
	require.NoError(t, err)
	f := models.NewFrame("BTCUSDT", bars)
	f.PrevClose = []float64{models.Missing, 100.5}
	require.NoError(t, f.SetColumn(models.ColATR, []float64{models.Missing, 1.25}))
	f.Regime = []models.Regime{models.RegimeNoTrend, models.RegimeBullish}
	f.Signal = []int{0, 1}
	f.TradeType = []models.TradeType{models.TradeNone, models.TradeLong}

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, f))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,open,high,low,close,volume,prev_open,prev_high,prev_low,prev_close,prev_volume,atr,regime,signals,trade_type,cumulative_returns", lines[0])
	assert.Equal(t, "2024-01-01T01:00:00Z,100.5,102,100,101.5,12,,,,100.5,,1.25,bullish,1,long,", lines[2])
}

func TestWriteThenReadRoundTripsBars(t *testing.T) {
	bars, err := ReadBars(strings.NewReader(sampleCSV), "BTCUSDT")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, models.NewFrame("BTCUSDT", bars)))
	again, err := ReadBars(&buf, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, bars, again)
}

type fakeRows struct {
	bars []models.Bar
	i    int
}

func (r *fakeRows) Next() bool { r.i++; return r.i <= len(r.bars) }
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Scan(dest ...any) error {
	b := r.bars[r.i-1]
	*dest[0].(*time.Time) = b.Time
	*dest[1].(*string) = b.Symbol
	*dest[2].(*float64) = b.Open
	*dest[3].(*float64) = b.High
	*dest[4].(*float64) = b.Low
	*dest[5].(*float64) = b.Close
	*dest[6].(*float64) = b.Volume
	return nil
}

func TestScanBars(t *testing.T) {
	loc := time.FixedZone("x", 3600)
	in := []models.Bar{{Time: time.Date(2024, 1, 1, 1, 0, 0, 0, loc), Symbol: "A", Close: 2}}
	out, err := scanBars(&fakeRows{bars: in}, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, time.UTC, out[0].Time.Location())
	assert.Equal(t, 2.0, out[0].Close)
}
