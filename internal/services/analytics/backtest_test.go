package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPull/internal/domain/models"
)

func signalFrame() *models.Frame {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 3)
	for i := range bars {
		bars[i] = models.Bar{Time: t0.Add(time.Duration(i) * time.Hour), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}
	}
	f := models.NewFrame("ETHUSDT", bars)
	f.Signal = []int{0, 1, -1}
	f.TradeType = []models.TradeType{models.TradeNone, models.TradeLong, models.TradeClose}
	return f
}

func TestSubmitStreamsRecords(t *testing.T) {
	var got backtestRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/backtest", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"type":"progress","payload":{"pct":50}}`)
		fmt.Fprintln(w, `{"type":"report","payload":{"return":12.5}}`)
	}))
	defer srv.Close()

	s := NewHTTPBacktestSubmitter(BacktestOptions{URL: srv.URL, Token: "secret", Timeout: time.Second})
	stream, err := s.Submit(context.Background(), signalFrame(), models.RunIdentity{ID: "r1", Name: "team"}, 2)
	require.NoError(t, err)
	defer stream.Close()

	var types []string
	for stream.Next() {
		types = append(types, stream.Record().Type)
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"progress", "report"}, types)

	assert.Equal(t, "team", got.Name)
	assert.Equal(t, 2.0, got.Leverage)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, 1, got.Rows[1].Signal)
	assert.Equal(t, models.TradeClose, got.Rows[2].TradeType)
}

func TestSubmitRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, `{"type":"report","payload":{}}`)
	}))
	defer srv.Close()

	s := NewHTTPBacktestSubmitter(BacktestOptions{URL: srv.URL, Attempts: 3})
	stream, err := s.Submit(context.Background(), signalFrame(), models.RunIdentity{ID: "r1"}, 1)
	require.NoError(t, err)
	defer stream.Close()
	assert.True(t, stream.Next())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSubmitDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad leverage", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewHTTPBacktestSubmitter(BacktestOptions{URL: srv.URL, Attempts: 3})
	_, err := s.Submit(context.Background(), signalFrame(), models.RunIdentity{ID: "r1"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSubmitMalformedRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"type":"report"}`)
		fmt.Fprintln(w, `not json`)
	}))
	defer srv.Close()

	s := NewHTTPBacktestSubmitter(BacktestOptions{URL: srv.URL})
	stream, err := s.Submit(context.Background(), signalFrame(), models.RunIdentity{ID: "r1"}, 1)
	require.NoError(t, err)
	defer stream.Close()
	assert.True(t, stream.Next())
	assert.False(t, stream.Next())
	assert.Error(t, stream.Err())
}

func TestSubmitRejectsFrameWithoutSignals(t *testing.T) {
	s := NewHTTPBacktestSubmitter(BacktestOptions{URL: "http://unused"})
	f := signalFrame()
	f.Signal = nil
	_, err := s.Submit(context.Background(), f, models.RunIdentity{}, 1)
	assert.Error(t, err)
}
