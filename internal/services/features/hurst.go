package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"TrendPull/internal/domain/models"
)

// HurstOutcome classifies one estimate.
type HurstOutcome int

const (
	HurstComputed HurstOutcome = iota
	HurstInsufficient
	HurstNumericalFailure
)

func (o HurstOutcome) String() string {
	switch o {
	case HurstComputed:
		return "computed"
	case HurstInsufficient:
		return "insufficient"
	default:
		return "numerical_failure"
	}
}

// HurstResult is the outcome of one rescaled-range estimate. H is Missing unless
// Outcome is HurstComputed.
type HurstResult struct {
	H       float64
	Outcome HurstOutcome
	Reason  string
}

const hurstMinWindow = 10

func hurstFail(o HurstOutcome, reason string) HurstResult {
	return HurstResult{H: models.Missing, Outcome: o, Reason: reason}
}

// EstimateHurst fits log10(R/S) against log10(window size) for a random-walk series.
// R is the range of levels and S the sample std of increments. Window sizes run
// 10^1, 10^1.25, ... below len(x)-1, plus len(x).
func EstimateHurst(x []float64, minSamples, minSeries int) HurstResult {
	if len(x) < minSamples {
		return hurstFail(HurstInsufficient, fmt.Sprintf("%d samples, need %d", len(x), minSamples))
	}
	for _, v := range x {
		if models.IsMissing(v) {
			return hurstFail(HurstInsufficient, "window has missing values")
		}
	}
	if stat.StdDev(x, nil) == 0 {
		return hurstFail(HurstNumericalFailure, "constant series")
	}
	if len(x) < minSeries {
		return hurstFail(HurstInsufficient, fmt.Sprintf("series length %d below estimator minimum %d", len(x), minSeries))
	}

	var sizes []float64
	maxLog := math.Log10(float64(len(x) - 1))
	for e := math.Log10(hurstMinWindow); e < maxLog; e += 0.25 {
		sizes = append(sizes, float64(int(math.Pow(10, e))))
	}
	sizes = append(sizes, float64(len(x)))

	logW := make([]float64, 0, len(sizes))
	logRS := make([]float64, 0, len(sizes))
	for _, size := range sizes {
		w := int(size)
		var rs []float64
		for start := 0; start+w <= len(x); start += w {
			if v := simplifiedRS(x[start : start+w]); v != 0 {
				rs = append(rs, v)
			}
		}
		if len(rs) == 0 {
			return hurstFail(HurstNumericalFailure, fmt.Sprintf("no usable chunks at window %d", w))
		}
		logW = append(logW, math.Log10(size))
		logRS = append(logRS, math.Log10(stat.Mean(rs, nil)))
	}

	_, h := stat.LinearRegression(logW, logRS, nil, false)
	if !defined(h) {
		return hurstFail(HurstNumericalFailure, "non-finite fit")
	}
	if h < 0 || h > 1 {
		return hurstFail(HurstNumericalFailure, fmt.Sprintf("H=%.4f outside [0,1]", h))
	}
	return HurstResult{H: h, Outcome: HurstComputed}
}

// simplifiedRS returns 0 when the chunk has no range or no increment variance.
func simplifiedRS(chunk []float64) float64 {
	lo, hi := chunk[0], chunk[0]
	for _, v := range chunk {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	incs := make([]float64, len(chunk)-1)
	for i := 1; i < len(chunk); i++ {
		incs[i-1] = chunk[i] - chunk[i-1]
	}
	if len(incs) < 2 {
		return 0
	}
	r := hi - lo
	s := stat.StdDev(incs, nil)
	if r == 0 || s == 0 || !defined(s) {
		return 0
	}
	return r / s
}

// RollingHurst estimates H over every full window and counts outcomes.
func RollingHurst(x []float64, window, minSamples, minSeries int) ([]float64, map[HurstOutcome]int) {
	out := missingSeries(len(x))
	counts := make(map[HurstOutcome]int, 3)
	for i := window - 1; i < len(x) && window > 0; i++ {
		r := EstimateHurst(x[i-window+1:i+1], minSamples, minSeries)
		counts[r.Outcome]++
		out[i] = r.H
	}
	return out, counts
}
