package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPull/internal/domain/models"
	pkgkafka "TrendPull/pkg/kafka"
	"TrendPull/pkg/logger"
)

func TestKafkaRunHandler(t *testing.T) {
	body, err := json.Marshal(models.RunRequest{Symbol: "BTC", Bars: wave(30)})
	require.NoError(t, err)

	tests := []struct {
		name      string
		deps      func(*RunDeps)
		payload   []byte
		wantErr   bool
		permanent bool
	}{
		{name: "ok", payload: body},
		{name: "malformed json", payload: []byte(`{"symbol":`), wantErr: true, permanent: true},
		{name: "missing symbol", payload: []byte(`{"bars":[]}`), wantErr: true, permanent: true},
		{name: "no bar source", payload: []byte(`{"symbol":"BTC"}`), wantErr: true, permanent: true},
		{
			name:    "bar without close",
			payload: []byte(`{"symbol":"BTC","bars":[{"t":"2024-05-01T00:00:00Z","open":1,"high":2,"low":0.5,"volume":3}]}`),
			wantErr: true, permanent: true,
		},
		{
			name:    "bad params",
			payload: []byte(`{"symbol":"BTC","params":{"indicators":{"atr_span":0}}}`),
			wantErr: true, permanent: true,
		},
		{
			name:    "store outage is retried",
			deps:    func(d *RunDeps) { d.Store = &fakeStore{err: errors.New("connection refused")} },
			payload: body,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewKafkaRunHandler("trendpull.runs", newRunUseCase(tt.deps), logger.Nop())
			assert.Equal(t, "trendpull.runs", h.Topic())

			err := h.Handle(context.Background(), tt.payload)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.permanent, pkgkafka.IsPermanent(err))
		})
	}
}

func TestKafkaRunHandlerAppliesDefaults(t *testing.T) {
	src := &fakeBars{bars: wave(30)}
	h := NewKafkaRunHandler("runs", newRunUseCase(func(d *RunDeps) { d.Bars = src }), logger.Nop())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"BTC"}`)))
	assert.Equal(t, 5000, src.latestN)
}
