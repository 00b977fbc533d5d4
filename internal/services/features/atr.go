package features

import (
	"math"

	"TrendPull/internal/domain/models"
)

// TrueRange is computed on the lagged bar against the lagged close one row earlier.
// Row 0 has no earlier close and is missing.
func TrueRange(prevHigh, prevLow, prevClose []float64) []float64 {
	out := missingSeries(len(prevClose))
	for i := 1; i < len(prevClose); i++ {
		h, l, c := prevHigh[i], prevLow[i], prevClose[i-1]
		if !defined(h, l, c) {
			continue
		}
		out[i] = math.Max(h-l, math.Max(math.Abs(h-c), math.Abs(l-c)))
	}
	return out
}

// ATR is the running EWMA of the true range.
func ATR(tr []float64, span int) []float64 {
	return EMA(tr, span)
}

// SimpleATR is the rolling mean of the true range over n rows, missing until n
// true ranges are defined.
func SimpleATR(tr []float64, n int) []float64 {
	return RollingMean(tr, n, n)
}

// nonNegative clamps tiny negative float noise from the EWMA to zero.
func nonNegative(x []float64) []float64 {
	for i, v := range x {
		if !models.IsMissing(v) && v < 0 {
			x[i] = 0
		}
	}
	return x
}
