package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TrendPull/internal/domain/models"
	domrepo "TrendPull/internal/domain/repository"
)

// ErrNoSignalStore is returned by GetSignals when no frame store is wired.
var ErrNoSignalStore = errors.New("signal store not configured")

// SignalsUseCase serves stored signals and cached run rows.
type SignalsUseCase struct {
	store domrepo.FrameStore
	cache domrepo.FrameCache
}

func NewSignalsUseCase(store domrepo.FrameStore, cache domrepo.FrameCache) *SignalsUseCase {
	return &SignalsUseCase{store: store, cache: cache}
}

type GetSignalsParams struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

type GetSignalsResult struct {
	Symbol  string               `json:"symbol"`
	From    time.Time            `json:"from"`
	To      time.Time            `json:"to"`
	Count   int                  `json:"count"`
	Signals []models.SignalEvent `json:"signals"`
}

func (uc *SignalsUseCase) GetSignals(ctx context.Context, p GetSignalsParams) (*GetSignalsResult, error) {
	if p.Symbol == "" {
		return nil, &models.SchemaError{Column: "symbol", Row: -1, Reason: "symbol required"}
	}
	if p.To.IsZero() {
		p.To = time.Now().UTC()
	}
	if p.From.IsZero() {
		p.From = p.To.AddDate(0, 0, -30)
	}
	if p.From.After(p.To) {
		return nil, &models.SchemaError{Column: "from", Row: -1, Reason: "from must be <= to"}
	}
	if p.Limit <= 0 {
		p.Limit = 1000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}
	if uc.store == nil {
		return nil, ErrNoSignalStore
	}

	signals, err := uc.store.QuerySignals(ctx, p.Symbol, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}

	return &GetSignalsResult{
		Symbol:  p.Symbol,
		From:    p.From,
		To:      p.To,
		Count:   len(signals),
		Signals: signals,
	}, nil
}

// GetRunRows returns the cached annotated rows of a run. ok is false on a miss.
func (uc *SignalsUseCase) GetRunRows(ctx context.Context, runID string) ([]models.Row, bool, error) {
	if uc.cache == nil {
		return nil, false, nil
	}
	rows, ok, err := uc.cache.GetRows(ctx, RowsCacheKey(runID))
	if err != nil {
		return nil, false, fmt.Errorf("get cached rows: %w", err)
	}
	return rows, ok, nil
}
