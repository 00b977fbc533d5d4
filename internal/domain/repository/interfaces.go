package repository

import (
	"context"
	"time"

	"TrendPull/internal/domain/models"
)

// BarSource provides read-only access to raw OHLCV bars.
type BarSource interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Bar, error)
	GetLatestNBars(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Bar, error)
}

// FrameStore persists annotated frames.
type FrameStore interface {
	Init(ctx context.Context) error // ensure tables
	StoreFrame(ctx context.Context, run models.RunIdentity, frame *models.Frame) error
	QuerySignals(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.SignalEvent, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalPublisher emits non-zero signals downstream.
type SignalPublisher interface {
	Publish(ctx context.Context, ev *models.SignalEvent) error
	PublishBatch(ctx context.Context, evs []models.SignalEvent) error
	Close() error
}

// FrameCache caches finished frames by run key.
type FrameCache interface {
	GetRows(ctx context.Context, key string) ([]models.Row, bool, error)
	SetRows(ctx context.Context, key string, rows []models.Row) error
}

// RunStatusStore tracks asynchronous runs.
type RunStatusStore interface {
	SetStatus(ctx context.Context, st models.RunStatus) error
	GetStatus(ctx context.Context, runID string) (*models.RunStatus, bool, error)
}

type Metrics interface {
	RecordRun(symbol, outcome string)
	RecordSignal(symbol string, tt models.TradeType)
	RecordStage(stage string, seconds float64)
	RecordHurstOutcome(outcome string, n int)
	RecordMissing(column string, n int)
}
