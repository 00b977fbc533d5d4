package features

import (
	"github.com/markcheno/go-talib"
)

// DirectionalResult holds ADX and the two directional indices.
type DirectionalResult struct {
	ADX     []float64
	PlusDI  []float64
	MinusDI []float64
}

// Directional computes ADX, +DI and -DI over the lagged bars. Cells before each
// indicator's lookback are missing instead of talib's zero fill. talib indexes its
// warmup without bounds checks, so short series are never handed to it.
func Directional(high, low, close []float64, period int) DirectionalResult {
	n := len(close)
	res := DirectionalResult{ADX: missingSeries(n), PlusDI: missingSeries(n), MinusDI: missingSeries(n)}
	if period < 2 {
		return res
	}
	if n > period+1 {
		res.PlusDI = maskLookback(talib.PlusDI(high, low, close, period), period)
		res.MinusDI = maskLookback(talib.MinusDI(high, low, close, period), period)
	}
	if n > 2*period {
		res.ADX = maskLookback(talib.Adx(high, low, close, period), 2*period-1)
	}
	return res
}

func maskLookback(x []float64, lookback int) []float64 {
	out := missingSeries(len(x))
	for i := lookback; i < len(x); i++ {
		if defined(x[i]) {
			out[i] = x[i]
		}
	}
	return out
}
