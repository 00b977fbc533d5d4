package features

// Supertrend direction values. A close above the prior upper band records
// DirectionUpBreak (-1); a close below the prior lower band records DirectionDownBreak (+1).
const (
	DirectionUpBreak   = -1.0
	DirectionDownBreak = 1.0
)

// SupertrendResult holds the trailing band and its direction.
type SupertrendResult struct {
	Line      []float64
	Direction []float64
}

// Supertrend walks the ATR bands around the lagged midprice. Row 0 seeds the direction
// at DirectionDownBreak with a missing line; rows whose previous bands are missing carry
// the previous state.
func Supertrend(prevHigh, prevLow, prevClose, atr []float64, factor float64) SupertrendResult {
	n := len(prevClose)
	res := SupertrendResult{
		Line:      missingSeries(n),
		Direction: make([]float64, n),
	}
	if n == 0 {
		return res
	}
	upper := missingSeries(n)
	lower := missingSeries(n)
	for i := 0; i < n; i++ {
		if !defined(prevHigh[i], prevLow[i], atr[i]) {
			continue
		}
		mid := (prevHigh[i] + prevLow[i]) / 2
		upper[i] = mid + factor*atr[i]
		lower[i] = mid - factor*atr[i]
	}

	res.Direction[0] = DirectionDownBreak
	for i := 1; i < n; i++ {
		p := prevClose[i]
		switch {
		case defined(p, upper[i-1]) && p > upper[i-1]:
			res.Line[i] = lower[i]
			res.Direction[i] = DirectionUpBreak
		case defined(p, lower[i-1]) && p < lower[i-1]:
			res.Line[i] = upper[i]
			res.Direction[i] = DirectionDownBreak
		default:
			res.Line[i] = res.Line[i-1]
			res.Direction[i] = res.Direction[i-1]
		}
	}
	return res
}
