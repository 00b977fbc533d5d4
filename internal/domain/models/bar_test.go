package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarUnmarshalJSON(t *testing.T) {
	var b Bar
	require.NoError(t, json.Unmarshal([]byte(`{"t":"2024-01-01T00:00:00Z","symbol":"BTC","open":1,"high":2,"low":0.5,"close":1.5,"volume":0}`), &b))
	assert.Equal(t, Bar{Time: t0, Symbol: "BTC", Open: 1, High: 2, Low: 0.5, Close: 1.5}, b)

	tests := []struct {
		name    string
		payload string
		column  string
	}{
		{name: "no close", payload: `{"t":"2024-01-01T00:00:00Z","open":1,"high":2,"low":0.5,"volume":3}`, column: "close"},
		{name: "no volume", payload: `{"t":"2024-01-01T00:00:00Z","open":1,"high":2,"low":0.5,"close":1}`, column: "volume"},
		{name: "no time", payload: `{"open":1,"high":2,"low":0.5,"close":1,"volume":3}`, column: "timestamp"},
		{name: "null open", payload: `{"t":"2024-01-01T00:00:00Z","open":null,"high":2,"low":0.5,"close":1,"volume":3}`, column: "open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Bar
			err := json.Unmarshal([]byte(tt.payload), &b)
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.column, se.Column)
			assert.Equal(t, -1, se.Row)
			assert.Equal(t, "required column not found", se.Reason)
		})
	}
}

func TestBarJSONRoundTripKeepsZeroVolume(t *testing.T) {
	in := []Bar{{Time: t0, Open: 1, High: 1, Low: 1, Close: 1}}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	var out []Bar
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}
