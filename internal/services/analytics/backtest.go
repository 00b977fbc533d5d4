package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"TrendPull/internal/domain/models"
	domsvc "TrendPull/internal/domain/service"
)

// HTTPBacktestSubmitter posts a finished frame to a remote backtest service and streams
// its result records back as newline-delimited JSON.
type HTTPBacktestSubmitter struct {
	base     *HTTPServiceBase
	path     string
	attempts int
}

// BacktestOptions configures HTTPBacktestSubmitter.
type BacktestOptions struct {
	URL      string
	Path     string
	Token    string
	Timeout  time.Duration
	Attempts int
	Client   *http.Client
}

func NewHTTPBacktestSubmitter(o BacktestOptions) *HTTPBacktestSubmitter {
	if o.Path == "" {
		o.Path = "/backtest"
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	return &HTTPBacktestSubmitter{
		base:     NewHTTPServiceBase(o.URL, o.Token, o.Timeout, o.Client),
		path:     o.Path,
		attempts: o.Attempts,
	}
}

type backtestRequest struct {
	RunID    string        `json:"run_id"`
	Name     string        `json:"jupyter_id"`
	Symbol   string        `json:"symbol"`
	Leverage float64       `json:"leverage"`
	Rows     []backtestRow `json:"rows"`
}

// backtestRow carries the columns the backtest service reads.
type backtestRow struct {
	Time      time.Time        `json:"datetime"`
	Open      models.Float     `json:"open"`
	High      models.Float     `json:"high"`
	Low       models.Float     `json:"low"`
	Close     models.Float     `json:"close"`
	Volume    models.Float     `json:"volume"`
	Signal    int              `json:"signals"`
	TradeType models.TradeType `json:"trade_type"`
}

// Submit sends the frame. Records are read lazily from the returned stream.
func (s *HTTPBacktestSubmitter) Submit(ctx context.Context, frame *models.Frame, run models.RunIdentity, leverage float64) (domsvc.ResultStream, error) {
	if frame == nil || frame.Len() == 0 {
		return nil, fmt.Errorf("submit backtest: empty frame")
	}
	if len(frame.Signal) != frame.Len() {
		return nil, fmt.Errorf("submit backtest: frame has no signals")
	}
	req := backtestRequest{
		RunID:    run.ID,
		Name:     run.Name,
		Symbol:   frame.Symbol,
		Leverage: leverage,
		Rows:     make([]backtestRow, frame.Len()),
	}
	for i := range req.Rows {
		req.Rows[i] = backtestRow{
			Time:      frame.Time[i],
			Open:      models.Float(frame.Open[i]),
			High:      models.Float(frame.High[i]),
			Low:       models.Float(frame.Low[i]),
			Close:     models.Float(frame.Close[i]),
			Volume:    models.Float(frame.Volume[i]),
			Signal:    frame.Signal[i],
			TradeType: frame.TradeType[i],
		}
	}

	resp, err := s.base.PostStreamWithRetry(ctx, s.path, req, s.attempts)
	if err != nil {
		return nil, err
	}
	return newRecordStream(resp.Body), nil
}

// recordStream decodes one BacktestRecord per JSON value.
type recordStream struct {
	body io.ReadCloser
	dec  *json.Decoder
	cur  models.BacktestRecord
	err  error
	done bool
}

func newRecordStream(body io.ReadCloser) *recordStream {
	return &recordStream{body: body, dec: json.NewDecoder(body)}
}

func (r *recordStream) Next() bool {
	if r.done {
		return false
	}
	var rec models.BacktestRecord
	if err := r.dec.Decode(&rec); err != nil {
		r.done = true
		if err != io.EOF {
			r.err = fmt.Errorf("decode backtest record: %w", err)
		}
		return false
	}
	r.cur = rec
	return true
}

func (r *recordStream) Record() models.BacktestRecord { return r.cur }

func (r *recordStream) Err() error { return r.err }

func (r *recordStream) Close() error {
	r.done = true
	return r.body.Close()
}

var _ domsvc.BacktestSubmitter = (*HTTPBacktestSubmitter)(nil)
