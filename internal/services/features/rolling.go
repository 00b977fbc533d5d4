package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"TrendPull/internal/domain/models"
)

// missingSeries returns n missing cells.
func missingSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = models.Missing
	}
	return out
}

// windowValues collects the defined values of x[i-w+1 : i+1] into buf.
func windowValues(x []float64, i, w int, buf []float64) []float64 {
	buf = buf[:0]
	start := i - w + 1
	if start < 0 {
		start = 0
	}
	for j := start; j <= i; j++ {
		if !models.IsMissing(x[j]) {
			buf = append(buf, x[j])
		}
	}
	return buf
}

// RollingMean is the mean of the last w defined values. A cell is missing when fewer
// than minPeriods values in its window are defined.
func RollingMean(x []float64, w, minPeriods int) []float64 {
	out := missingSeries(len(x))
	if w <= 0 {
		return out
	}
	if minPeriods <= 0 {
		minPeriods = w
	}
	buf := make([]float64, 0, w)
	for i := range x {
		buf = windowValues(x, i, w, buf)
		if len(buf) < minPeriods || len(buf) == 0 {
			continue
		}
		out[i] = stat.Mean(buf, nil)
	}
	return out
}

// RollingStd is the sample standard deviation (n-1) of the last w defined values.
// Missing when fewer than minPeriods (and fewer than 2) values are defined.
func RollingStd(x []float64, w, minPeriods int) []float64 {
	out := missingSeries(len(x))
	if w <= 0 {
		return out
	}
	if minPeriods <= 0 {
		minPeriods = w
	}
	buf := make([]float64, 0, w)
	for i := range x {
		buf = windowValues(x, i, w, buf)
		if len(buf) < minPeriods || len(buf) < 2 {
			continue
		}
		out[i] = stat.StdDev(buf, nil)
	}
	return out
}

// EMA is a running exponential moving average with alpha = 2/(span+1), seeded by the
// first defined input. Missing inputs carry the previous average forward.
func EMA(x []float64, span int) []float64 {
	out := missingSeries(len(x))
	if span <= 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1)
	prev := models.Missing
	for i, v := range x {
		switch {
		case models.IsMissing(v):
		case models.IsMissing(prev):
			prev = v
		default:
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// Diff returns x[i]-x[i-1], missing at 0 and wherever an operand is missing.
func Diff(x []float64) []float64 {
	out := missingSeries(len(x))
	for i := 1; i < len(x); i++ {
		if models.IsMissing(x[i]) || models.IsMissing(x[i-1]) {
			continue
		}
		out[i] = x[i] - x[i-1]
	}
	return out
}

func defined(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
