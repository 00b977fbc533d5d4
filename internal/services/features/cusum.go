package features

import (
	"math"

	"TrendPull/internal/domain/models"
)

// FilteredClose is the causal EMA of the lagged close used as the CUSUM reference mean
// and as the FDI input.
func FilteredClose(prevClose []float64, span int) []float64 {
	return EMA(prevClose, span)
}

// CUSUMResult holds the two one-sided accumulators.
type CUSUMResult struct {
	Hi []float64
	Lo []float64
}

// CUSUMStep advances both accumulators by one bar given the deviation p-mu and the
// dead zone k. A non-finite increment resets that side to 0.
func CUSUMStep(prevHi, prevLo, deviation, k float64) (hi, lo float64) {
	incHi := deviation - k
	incLo := -deviation - k
	if defined(prevHi, incHi) {
		hi = math.Max(0, prevHi+incHi)
	}
	if defined(prevLo, incLo) {
		lo = math.Max(0, prevLo+incLo)
	}
	return hi, lo
}

// CUSUM runs the change detector over price against the reference mean mu with
// k = delta * rolling_std(price, window). A missing std counts as 0. Both sides start at 0.
func CUSUM(price, mu []float64, window int, delta float64) CUSUMResult {
	n := len(price)
	res := CUSUMResult{Hi: make([]float64, n), Lo: make([]float64, n)}
	std := RollingStd(price, window, window)
	for i := 1; i < n; i++ {
		s := std[i]
		if models.IsMissing(s) {
			s = 0
		}
		res.Hi[i], res.Lo[i] = CUSUMStep(res.Hi[i-1], res.Lo[i-1], price[i]-mu[i], delta*s)
	}
	return res
}
