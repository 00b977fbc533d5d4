package features

import "TrendPull/internal/domain/models"

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD uses running EMAs seeded by the first value.
func MACD(x []float64, fast, slow, signal int) MACDResult {
	f := EMA(x, fast)
	s := EMA(x, slow)
	line := missingSeries(len(x))
	for i := range x {
		if models.IsMissing(f[i]) || models.IsMissing(s[i]) {
			continue
		}
		line[i] = f[i] - s[i]
	}
	sig := EMA(line, signal)
	hist := missingSeries(len(x))
	for i := range x {
		if models.IsMissing(line[i]) || models.IsMissing(sig[i]) {
			continue
		}
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{MACD: line, Signal: sig, Histogram: hist}
}
