package features

import (
	"math"

	"TrendPull/internal/domain/models"
)

// FractalDimension computes ln n / (ln n + ln(d/L)) for one window, where L is the path
// length and d the largest displacement from the first point. Returns Missing when the
// window is degenerate.
func FractalDimension(x []float64) float64 {
	n := len(x)
	if n <= 1 {
		return models.Missing
	}
	var path, disp float64
	for i, v := range x {
		if models.IsMissing(v) {
			return models.Missing
		}
		if i > 0 {
			path += math.Abs(v - x[i-1])
		}
		disp = math.Max(disp, math.Abs(v-x[0]))
	}
	if path == 0 || disp == 0 {
		return models.Missing
	}
	ln := math.Log(float64(n))
	fdi := ln / (ln + math.Log(disp/path))
	if !defined(fdi) {
		return models.Missing
	}
	return fdi
}

// RollingFDI applies FractalDimension to every full window of x.
func RollingFDI(x []float64, window int) []float64 {
	out := missingSeries(len(x))
	for i := window - 1; i < len(x) && window > 0; i++ {
		out[i] = FractalDimension(x[i-window+1 : i+1])
	}
	return out
}
