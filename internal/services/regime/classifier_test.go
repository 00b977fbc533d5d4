package regime

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPull/internal/domain/models"
)

func newClassifier() *Classifier {
	return NewClassifier(models.DefaultParams().Regime)
}

func TestLabel(t *testing.T) {
	c := newClassifier()
	nan := models.Missing

	tests := []struct {
		name string
		in   Inputs
		want models.Regime
	}{
		{"bullish", Inputs{CUSUMHi: 3, CUSUMLo: 0, Hurst: 0.7, FDI: 1.2, RollingH: 2}, models.RegimeBullish},
		{"bearish", Inputs{CUSUMHi: 0, CUSUMLo: 3, Hurst: 0.7, FDI: 1.2, RollingH: 2}, models.RegimeBearish},
		{"both sides fire, bullish wins", Inputs{CUSUMHi: 3, CUSUMLo: 3, Hurst: 0.7, FDI: 1.2, RollingH: 2}, models.RegimeBullish},
		{"mean reverting", Inputs{CUSUMHi: 3, Hurst: 0.4, FDI: 1.2, RollingH: 2}, models.RegimeNoTrend},
		{"rough path", Inputs{CUSUMHi: 3, Hurst: 0.7, FDI: 1.6, RollingH: 2}, models.RegimeNoTrend},
		{"below threshold", Inputs{CUSUMHi: 2, CUSUMLo: 1, Hurst: 0.7, FDI: 1.2, RollingH: 2}, models.RegimeNoTrend},
		{"missing hurst", Inputs{CUSUMHi: 3, Hurst: nan, FDI: 1.2, RollingH: 2}, models.RegimeNoTrend},
		{"missing fdi", Inputs{CUSUMHi: 3, Hurst: 0.7, FDI: nan, RollingH: 2}, models.RegimeNoTrend},
		{"missing threshold", Inputs{CUSUMHi: 3, Hurst: 0.7, FDI: 1.2, RollingH: nan}, models.RegimeNoTrend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Label(tt.in))
		})
	}
}

func frameWith(prevClose []float64) *models.Frame {
	bars := make([]models.Bar, len(prevClose))
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = models.Bar{Time: t0.Add(time.Duration(i) * time.Hour), Close: prevClose[i]}
	}
	f := models.NewFrame("X", bars)
	f.PrevClose = prevClose
	return f
}

func TestClassify(t *testing.T) {
	f := frameWith([]float64{1, 2, 3, 4, 5, 6})
	n := f.Len()
	fill := func(v float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	require.NoError(t, f.SetColumn(models.ColCUSUMHi, fill(10)))
	require.NoError(t, f.SetColumn(models.ColCUSUMLo, fill(0)))
	require.NoError(t, f.SetColumn(models.ColHurst, fill(0.8)))
	require.NoError(t, f.SetColumn(models.ColFDI, fill(1.1)))

	require.NoError(t, newClassifier().Classify(f))

	rollingH, ok := f.Column(models.ColRollingH)
	require.True(t, ok)
	for i := 0; i < 4; i++ {
		assert.True(t, models.IsMissing(rollingH[i]))
		assert.Equal(t, models.RegimeNoTrend, f.Regime[i], "row %d", i)
	}
	assert.InDelta(t, 1.5*math.Sqrt(2.5), rollingH[4], 1e-12)
	assert.Equal(t, models.RegimeBullish, f.Regime[4])
	assert.Equal(t, models.RegimeBullish, f.Regime[5])
}

func TestClassifyNeedsIndicators(t *testing.T) {
	f := frameWith([]float64{1, 2, 3})
	assert.Error(t, newClassifier().Classify(f))
}
