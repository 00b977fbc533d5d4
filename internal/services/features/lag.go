package features

import (
	"math"

	"TrendPull/internal/domain/models"
)

// ValidateBars enforces the input schema: finite OHLC, finite non-negative volume and
// strictly increasing timestamps.
func ValidateBars(bars []models.Bar) error {
	for i, b := range bars {
		for _, c := range []struct {
			name string
			v    float64
		}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}} {
			if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
				return &models.SchemaError{Column: c.name, Row: i, Reason: "value is not finite"}
			}
		}
		if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
			return &models.SchemaError{Column: "volume", Row: i, Reason: "volume must be finite and non-negative"}
		}
		if b.Time.IsZero() {
			return &models.SchemaError{Column: "timestamp", Row: i, Reason: "timestamp is missing"}
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return &models.SchemaError{Column: "timestamp", Row: i, Reason: "timestamps must be strictly increasing"}
		}
	}
	return nil
}

// Lag validates bars and returns a frame carrying prev_* as a one-bar shift of the raw
// columns. The first bar has no predecessor and is dropped, so every remaining row has
// defined lag fields. Fewer than two bars yield an empty frame.
func Lag(symbol string, bars []models.Bar) (*models.Frame, error) {
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}
	if len(bars) < 2 {
		return models.NewFrame(symbol, nil), nil
	}
	f := models.NewFrame(symbol, bars[1:])
	n := f.Len()
	f.PrevOpen = make([]float64, n)
	f.PrevHigh = make([]float64, n)
	f.PrevLow = make([]float64, n)
	f.PrevClose = make([]float64, n)
	f.PrevVolume = make([]float64, n)
	for i := 0; i < n; i++ {
		p := bars[i]
		f.PrevOpen[i] = p.Open
		f.PrevHigh[i] = p.High
		f.PrevLow[i] = p.Low
		f.PrevClose[i] = p.Close
		f.PrevVolume[i] = p.Volume
	}
	return f, nil
}
