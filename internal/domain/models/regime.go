package models

// Regime is the categorical market state assigned to each bar.
type Regime string

const (
	RegimeBullish Regime = "bullish"
	RegimeBearish Regime = "bearish"
	RegimeNoTrend Regime = "no-trend"
)

// Valid reports whether r is one of the three known labels.
func (r Regime) Valid() bool {
	switch r {
	case RegimeBullish, RegimeBearish, RegimeNoTrend:
		return true
	default:
		return false
	}
}
