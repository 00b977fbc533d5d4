package models

import (
	"encoding/json"
	"time"
)

// RunIdentity names a run for the backtest service and downstream consumers.
type RunIdentity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RunRequest asks for one single-asset run. Bars come from the bar store
// unless Bars is set.
type RunRequest struct {
	RunID     string          `json:"run_id,omitempty" validate:"omitempty,uuid"`
	Symbol    string          `json:"symbol" validate:"required"`
	Timeframe string          `json:"timeframe" default:"1h"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Limit     int             `json:"limit" default:"5000" validate:"gte=1,lte=100000"`
	Name      string          `json:"name"`
	Params    json.RawMessage `json:"params,omitempty"`
	Bars      []Bar           `json:"bars,omitempty"`
	Submit    bool            `json:"submit"`
	Leverage  float64         `json:"leverage" default:"1" validate:"gt=0"`
}

// RunSummary is what a finished run reports.
type RunSummary struct {
	Run             RunIdentity `json:"run"`
	Symbol          string      `json:"symbol"`
	Bars            int         `json:"bars"`
	Signals         int         `json:"signals"`
	Longs           int         `json:"longs"`
	Shorts          int         `json:"shorts"`
	Closes          int         `json:"closes"`
	FinalReturn     Float       `json:"final_return"`
	SyntheticTail   bool        `json:"synthetic_tail"`
	DurationMs      int64       `json:"duration_ms"`
	BacktestRecords int         `json:"backtest_records,omitempty"`
}

// RunState is the lifecycle state of a queued run.
type RunState string

const (
	RunQueued  RunState = "queued"
	RunRunning RunState = "running"
	RunDone    RunState = "done"
	RunFailed  RunState = "failed"
)

// Terminal reports whether no further transition follows s.
func (s RunState) Terminal() bool { return s == RunDone || s == RunFailed }

// RunStatus tracks an asynchronous run.
type RunStatus struct {
	ID        string      `json:"run_id"`
	State     RunState    `json:"state"`
	Error     string      `json:"error,omitempty"`
	Summary   *RunSummary `json:"summary,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// BacktestRecord is one record streamed back by the backtest service.
type BacktestRecord struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Row is one annotated bar in export form.
type Row struct {
	Time             time.Time        `json:"t"`
	Open             Float            `json:"open"`
	High             Float            `json:"high"`
	Low              Float            `json:"low"`
	Close            Float            `json:"close"`
	Volume           Float            `json:"volume"`
	PrevOpen         Float            `json:"prev_open"`
	PrevHigh         Float            `json:"prev_high"`
	PrevLow          Float            `json:"prev_low"`
	PrevClose        Float            `json:"prev_close"`
	PrevVolume       Float            `json:"prev_volume"`
	Indicators       map[string]Float `json:"indicators"`
	Regime           Regime           `json:"regime"`
	Signal           int              `json:"signals"`
	TradeType        TradeType        `json:"trade_type"`
	CumulativeReturn Float            `json:"cumulative_returns"`
}

// Row returns row i in export form.
func (f *Frame) Row(i int) Row {
	r := Row{
		Time:             f.Time[i],
		Open:             Float(f.Open[i]),
		High:             Float(f.High[i]),
		Low:              Float(f.Low[i]),
		Close:            Float(f.Close[i]),
		Volume:           Float(f.Volume[i]),
		PrevOpen:         Float(at(f.PrevOpen, i)),
		PrevHigh:         Float(at(f.PrevHigh, i)),
		PrevLow:          Float(at(f.PrevLow, i)),
		PrevClose:        Float(at(f.PrevClose, i)),
		PrevVolume:       Float(at(f.PrevVolume, i)),
		Indicators:       make(map[string]Float, len(f.names)),
		Regime:           RegimeNoTrend,
		TradeType:        TradeNone,
		CumulativeReturn: Float(at(f.CumReturns, i)),
	}
	for _, name := range f.names {
		r.Indicators[name] = Float(f.columns[name][i])
	}
	if i < len(f.Regime) {
		r.Regime = f.Regime[i]
	}
	if i < len(f.Signal) {
		r.Signal = f.Signal[i]
	}
	if i < len(f.TradeType) {
		r.TradeType = f.TradeType[i]
	}
	return r
}

// Rows returns every row in export form.
func (f *Frame) Rows() []Row {
	out := make([]Row, f.Len())
	for i := range out {
		out[i] = f.Row(i)
	}
	return out
}

// Events returns one SignalEvent per non-zero signal.
func (f *Frame) Events(runID string) []SignalEvent {
	var out []SignalEvent
	for i, s := range f.Signal {
		if s == SignalNone {
			continue
		}
		out = append(out, SignalEvent{
			RunID:     runID,
			Symbol:    f.Symbol,
			Time:      f.Time[i].UnixMilli(),
			Signal:    s,
			TradeType: f.TradeType[i],
			Price:     Float(at(f.PrevClose, i)),
			Regime:    f.Regime[i],
		})
	}
	return out
}

func at(s []float64, i int) float64 {
	if i < 0 || i >= len(s) {
		return Missing
	}
	return s[i]
}
