package models

import (
	"encoding/json"
	"math"
	"time"
)

// Bar represents one raw OHLCV row of a single-asset series.
type Bar struct {
	Time   time.Time `json:"t"`
	Symbol string    `json:"symbol,omitempty"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// UnmarshalJSON rejects bars that omit a column instead of zero-filling it.
func (b *Bar) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time   *time.Time `json:"t"`
		Symbol string     `json:"symbol"`
		Open   *float64   `json:"open"`
		High   *float64   `json:"high"`
		Low    *float64   `json:"low"`
		Close  *float64   `json:"close"`
		Volume *float64   `json:"volume"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Time == nil {
		return &SchemaError{Column: "timestamp", Row: -1, Reason: "required column not found"}
	}
	for _, c := range []struct {
		name string
		v    *float64
	}{
		{"open", raw.Open},
		{"high", raw.High},
		{"low", raw.Low},
		{"close", raw.Close},
		{"volume", raw.Volume},
	} {
		if c.v == nil {
			return &SchemaError{Column: c.name, Row: -1, Reason: "required column not found"}
		}
	}
	*b = Bar{
		Time:   *raw.Time,
		Symbol: raw.Symbol,
		Open:   *raw.Open,
		High:   *raw.High,
		Low:    *raw.Low,
		Close:  *raw.Close,
		Volume: *raw.Volume,
	}
	return nil
}

// Missing is the sentinel stored in cells that have no computable value.
var Missing = math.NaN()

// IsMissing reports whether v is the missing sentinel (or otherwise non-finite).
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// Float is a float64 that encodes missing values as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	if IsMissing(float64(f)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Float(Missing)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}
