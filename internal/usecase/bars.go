package usecase

import (
	"context"
	"fmt"
	"time"

	"TrendPull/internal/domain/models"
	domrepo "TrendPull/internal/domain/repository"
	"TrendPull/pkg/util"
)

// BarsUseCase serves raw OHLCV bars from the bar source.
type BarsUseCase struct {
	bars domrepo.BarSource
}

func NewBarsUseCase(bars domrepo.BarSource) *BarsUseCase {
	return &BarsUseCase{bars: bars}
}

type GetBarsParams struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Timeframe domrepo.Timeframe
	Limit     int
}

type GetBarsResult struct {
	Symbol    string       `json:"symbol"`
	Timeframe string       `json:"timeframe"`
	From      time.Time    `json:"from"`
	To        time.Time    `json:"to"`
	Count     int          `json:"count"`
	Bars      []models.Bar `json:"bars"`
}

// GetBars returns the most recent Limit bars of the aligned range, oldest first.
func (uc *BarsUseCase) GetBars(ctx context.Context, p GetBarsParams) (*GetBarsResult, error) {
	if p.Symbol == "" {
		return nil, &models.SchemaError{Column: "symbol", Row: -1, Reason: "symbol required"}
	}
	if uc.bars == nil {
		return nil, ErrNoBarSource
	}
	if p.Timeframe == "" {
		p.Timeframe = domrepo.DefaultTimeframe()
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
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	p.From, p.To = util.AlignFromTo(p.From, p.To, string(p.Timeframe))
	bars, err := uc.bars.GetBars(ctx, p.Symbol, p.From, p.To, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	if len(bars) > p.Limit {
		bars = bars[len(bars)-p.Limit:]
	}

	return &GetBarsResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		From:      p.From,
		To:        p.To,
		Count:     len(bars),
		Bars:      bars,
	}, nil
}
