package accounting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"TrendPull/internal/domain/models"
)

var base = models.AccountingParams{Enabled: true, Base: 100}

func TestShortRoundTripCompounds(t *testing.T) {
	got := CumulativeReturns([]int{0, -1, 0, 1}, []float64{100, 100, 95, 90}, base)
	assert.InDeltaSlice(t, []float64{100, 100, 100, 110}, got, 1e-9)
}

func TestLongRoundTrip(t *testing.T) {
	signals := []int{1, 0, -1}
	closes := []float64{100, 110, 120}

	assert.Equal(t, []float64{100, 100, 100}, CumulativeReturns(signals, closes, base))

	sym := base
	sym.Symmetric = true
	assert.InDeltaSlice(t, []float64{100, 100, 120}, CumulativeReturns(signals, closes, sym), 1e-9)
}

func TestMissingCloseCarries(t *testing.T) {
	got := CumulativeReturns([]int{-1, 1, 1}, []float64{100, 80, models.Missing}, base)
	assert.InDeltaSlice(t, []float64{100, 120, 120}, got, 1e-9)
}

func TestApply(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := models.NewFrame("X", []models.Bar{
		{Time: t0, Close: 10},
		{Time: t0.Add(time.Hour), Close: 8},
	})
	f.Signal = []int{-1, 1}

	Apply(f, models.AccountingParams{Enabled: false, Base: 100})
	assert.Nil(t, f.CumReturns)

	Apply(f, base)
	assert.InDeltaSlice(t, []float64{100, 120}, f.CumReturns, 1e-9)
}
