package features

import "TrendPull/internal/domain/models"

// Bands holds a Bollinger envelope.
type Bands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger computes SMA(w) +- k * sample std(w). Cells before w samples are missing.
func Bollinger(x []float64, w int, k float64) Bands {
	mid := RollingMean(x, w, w)
	std := RollingStd(x, w, w)
	b := Bands{
		Middle: mid,
		Upper:  missingSeries(len(x)),
		Lower:  missingSeries(len(x)),
	}
	for i := range x {
		if models.IsMissing(mid[i]) || models.IsMissing(std[i]) {
			continue
		}
		b.Upper[i] = mid[i] + k*std[i]
		b.Lower[i] = mid[i] - k*std[i]
	}
	return b
}
