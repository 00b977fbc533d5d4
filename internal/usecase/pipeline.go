package usecase

import (
	"context"
	"fmt"
	"time"

	"TrendPull/internal/domain/models"
	domrepo "TrendPull/internal/domain/repository"
	"TrendPull/internal/services/accounting"
	"TrendPull/internal/services/features"
	"TrendPull/internal/services/regime"
	"TrendPull/internal/services/strategy"
	"TrendPull/pkg/logger"
)

// Pipeline runs lag -> indicators -> regime -> strategy -> accounting over one series.
// It keeps no per-run state, so concurrent runs may share it.
type Pipeline struct {
	log     *logger.Logger
	metrics domrepo.Metrics
}

func NewPipeline(log *logger.Logger, metrics domrepo.Metrics) *Pipeline {
	return &Pipeline{log: log, metrics: metrics}
}

// PipelineResult is the annotated frame plus what the strategy pass reported.
type PipelineResult struct {
	Frame    *models.Frame
	Strategy strategy.Result
	Report   features.Report
}

// Process runs every stage. Schema and configuration problems are returned as typed
// errors; numeric problems only leave missing cells.
func (p *Pipeline) Process(ctx context.Context, symbol string, bars []models.Bar, params models.Params) (*PipelineResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	frame, err := features.Lag(symbol, bars)
	if err != nil {
		return nil, err
	}
	p.stage("lag", start)

	start = time.Now()
	report, err := features.NewEngine(params.Indicators).Compute(ctx, frame)
	if err != nil {
		return nil, err
	}
	p.stage("indicators", start)
	p.reportDegradation(symbol, report)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline cancelled: %w", err)
	}

	start = time.Now()
	if err := regime.NewClassifier(params.Regime).Classify(frame); err != nil {
		return nil, err
	}
	p.stage("regime", start)

	start = time.Now()
	res, err := strategy.NewRunner(params.Strategy).Run(frame)
	if err != nil {
		return nil, err
	}
	p.stage("strategy", start)
	if res.Dropped {
		p.log.Debug("terminal decision dropped", logger.String("symbol", symbol))
	}

	accounting.Apply(frame, params.Accounting)

	return &PipelineResult{Frame: frame, Strategy: res, Report: report}, nil
}

func (p *Pipeline) stage(name string, start time.Time) {
	p.metrics.RecordStage(name, time.Since(start).Seconds())
}

func (p *Pipeline) reportDegradation(symbol string, r features.Report) {
	fields := []logger.Field{logger.String("symbol", symbol)}
	for col, n := range r.Missing {
		p.metrics.RecordMissing(col, n)
		fields = append(fields, logger.Int("missing_"+col, n))
	}
	for outcome, n := range r.Hurst {
		p.metrics.RecordHurstOutcome(outcome.String(), n)
		fields = append(fields, logger.Int("hurst_"+outcome.String(), n))
	}
	p.log.Debug("indicator degradation", fields...)
}
