package service

import (
	"context"

	"TrendPull/internal/domain/models"
)

// BacktestSubmitter hands a finished frame to an external backtest service.
type BacktestSubmitter interface {
	Submit(ctx context.Context, frame *models.Frame, run models.RunIdentity, leverage float64) (ResultStream, error)
}

// ResultStream iterates records returned by the backtest service.
type ResultStream interface {
	Next() bool
	Record() models.BacktestRecord
	Err() error
	Close() error
}
