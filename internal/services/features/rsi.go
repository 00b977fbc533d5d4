package features

import (
	"math"

	"TrendPull/internal/domain/models"
)

// RSI averages gains and losses with a rolling mean of min-periods 1, so it is defined
// from the first available change. No losses with some gain saturates at 100; a window
// with neither is missing.
func RSI(x []float64, length int) []float64 {
	delta := Diff(x)
	gain := missingSeries(len(x))
	loss := missingSeries(len(x))
	for i, d := range delta {
		if models.IsMissing(d) {
			continue
		}
		gain[i] = math.Max(d, 0)
		loss[i] = math.Max(-d, 0)
	}
	avgGain := RollingMean(gain, length, 1)
	avgLoss := RollingMean(loss, length, 1)

	out := missingSeries(len(x))
	for i := range x {
		g, l := avgGain[i], avgLoss[i]
		if !defined(g, l) {
			continue
		}
		switch {
		case l == 0 && g > 0:
			out[i] = 100
		case l == 0:
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}
	return out
}
