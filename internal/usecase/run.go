package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"TrendPull/internal/domain/models"
	domrepo "TrendPull/internal/domain/repository"
	domsvc "TrendPull/internal/domain/service"
	"TrendPull/pkg/logger"
	"TrendPull/pkg/util"
)

// ErrNoBarSource is returned when a request carries no bars and no bar store is wired.
var ErrNoBarSource = errors.New("no bar source configured")

// RunDeps wires the run use case. Only Pipeline, Logger and Metrics are required;
// nil collaborators are skipped.
type RunDeps struct {
	Pipeline  *Pipeline
	Params    models.Params
	Bars      domrepo.BarSource
	Store     domrepo.FrameStore
	Cache     domrepo.FrameCache
	Publisher domrepo.SignalPublisher
	Submitter domsvc.BacktestSubmitter
	Hub       *SignalHub
	Logger    *logger.Logger
	Metrics   domrepo.Metrics
	Timeout   time.Duration

	DefaultLimit    int
	DefaultLeverage float64
}

// RunUseCase executes one run end to end: load, compute, persist, publish, submit.
type RunUseCase struct {
	d RunDeps
}

func NewRunUseCase(d RunDeps) *RunUseCase {
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Minute
	}
	if d.DefaultLimit <= 0 {
		d.DefaultLimit = 5000
	}
	if d.DefaultLeverage <= 0 {
		d.DefaultLeverage = 1
	}
	return &RunUseCase{d: d}
}

// RunOutput is what Execute returns.
type RunOutput struct {
	Summary models.RunSummary
	Frame   *models.Frame
	Records []models.BacktestRecord
}

// RowsCacheKey is the cache key of a run's annotated rows.
func RowsCacheKey(runID string) string { return "run:" + runID + ":rows" }

func (uc *RunUseCase) Execute(ctx context.Context, req models.RunRequest) (*RunOutput, error) {
	if req.Symbol == "" {
		return nil, &models.SchemaError{Column: "symbol", Row: -1, Reason: "symbol required"}
	}
	params, err := uc.d.Params.WithOverrides(req.Params)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, uc.d.Timeout)
	defer cancel()

	start := time.Now()
	run := models.RunIdentity{ID: req.RunID, Name: req.Name}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Name == "" {
		run.Name = req.Symbol
	}
	log := uc.d.Logger.With(logger.String("run_id", run.ID), logger.String("symbol", req.Symbol))
	log.Info("run started", logger.String("name", run.Name), logger.Bool("submit", req.Submit))

	out, err := uc.execute(ctx, log, run, req, params)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.Error("run failed", logger.Error(err), logger.Duration("duration_ms", time.Since(start)))
	}
	uc.d.Metrics.RecordRun(req.Symbol, outcome)
	if err != nil {
		return nil, err
	}

	out.Summary.DurationMs = time.Since(start).Milliseconds()
	log.Info("run finished",
		logger.Int("bars", out.Summary.Bars),
		logger.Int("signals", out.Summary.Signals),
		logger.Int("closes", out.Summary.Closes),
		logger.Bool("synthetic_tail", out.Summary.SyntheticTail),
		logger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

func (uc *RunUseCase) execute(ctx context.Context, log *logger.Logger, run models.RunIdentity, req models.RunRequest, params models.Params) (*RunOutput, error) {
	bars, err := uc.loadBars(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := uc.d.Pipeline.Process(ctx, req.Symbol, bars, params)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run aborted before persistence: %w", err)
	}

	frame := res.Frame
	events := frame.Events(run.ID)
	for _, ev := range events {
		uc.d.Metrics.RecordSignal(ev.Symbol, ev.TradeType)
	}
	if err := uc.persist(ctx, log, run, frame, events); err != nil {
		return nil, err
	}

	out := &RunOutput{Frame: frame, Summary: Summarize(run, frame)}
	if req.Submit && uc.d.Submitter != nil {
		records, err := uc.submit(ctx, run, frame, req.Leverage)
		if err != nil {
			return nil, err
		}
		out.Records = records
		out.Summary.BacktestRecords = len(records)
	}
	return out, nil
}

func (uc *RunUseCase) loadBars(ctx context.Context, req models.RunRequest) ([]models.Bar, error) {
	if len(req.Bars) > 0 {
		return req.Bars, nil
	}
	if uc.d.Bars == nil {
		return nil, ErrNoBarSource
	}
	limit := req.Limit
	if limit <= 0 {
		limit = uc.d.DefaultLimit
	}
	tf := domrepo.NormalizeTimeframe(req.Timeframe)

	start := time.Now()
	defer func() { uc.d.Metrics.RecordStage("load", time.Since(start).Seconds()) }()

	if req.From.IsZero() || req.To.IsZero() {
		bars, err := uc.d.Bars.GetLatestNBars(ctx, req.Symbol, limit, tf)
		if err != nil {
			return nil, fmt.Errorf("load latest bars: %w", err)
		}
		return bars, nil
	}
	if req.From.After(req.To) {
		return nil, &models.SchemaError{Column: "timestamp", Row: -1, Reason: "from must be <= to"}
	}
	from, to := util.AlignFromTo(req.From, req.To, string(tf))
	bars, err := uc.d.Bars.GetBars(ctx, req.Symbol, from, to, tf)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// persist stores, caches and publishes in parallel. Every sink runs even if another fails.
func (uc *RunUseCase) persist(ctx context.Context, log *logger.Logger, run models.RunIdentity, frame *models.Frame, events []models.SignalEvent) error {
	start := time.Now()
	defer func() { uc.d.Metrics.RecordStage("persist", time.Since(start).Seconds()) }()

	type item struct {
		name string
		err  error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	if uc.d.Store != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch <- item{"store", uc.d.Store.StoreFrame(ctx, run, frame)}
		}()
	}
	if uc.d.Cache != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch <- item{"cache", uc.d.Cache.SetRows(ctx, RowsCacheKey(run.ID), frame.Rows())}
		}()
	}
	if uc.d.Publisher != nil && len(events) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch <- item{"publish", uc.d.Publisher.PublishBatch(ctx, events)}
		}()
	}
	go func() { wg.Wait(); close(ch) }()

	var errs []error
	for it := range ch {
		if it.err == nil {
			continue
		}
		// a cache miss later only costs a recompute
		if it.name == "cache" {
			log.Warn("cache rows", logger.Error(it.err))
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", it.name, it.err))
	}
	if uc.d.Hub != nil {
		uc.d.Hub.Broadcast(events)
	}
	return errors.Join(errs...)
}

func (uc *RunUseCase) submit(ctx context.Context, run models.RunIdentity, frame *models.Frame, leverage float64) ([]models.BacktestRecord, error) {
	if leverage <= 0 {
		leverage = uc.d.DefaultLeverage
	}
	start := time.Now()
	defer func() { uc.d.Metrics.RecordStage("submit", time.Since(start).Seconds()) }()

	stream, err := uc.d.Submitter.Submit(ctx, frame, run, leverage)
	if err != nil {
		return nil, fmt.Errorf("submit backtest: %w", err)
	}
	defer stream.Close()

	var records []models.BacktestRecord
	for stream.Next() {
		records = append(records, stream.Record())
	}
	if err := stream.Err(); err != nil {
		return records, fmt.Errorf("read backtest results: %w", err)
	}
	return records, nil
}

// Summarize counts the signals of a finished frame.
func Summarize(run models.RunIdentity, f *models.Frame) models.RunSummary {
	s := models.RunSummary{
		Run:           run,
		Symbol:        f.Symbol,
		Bars:          f.Len(),
		SyntheticTail: f.SyntheticTail,
		FinalReturn:   models.Float(models.Missing),
	}
	for i, sig := range f.Signal {
		if sig == models.SignalNone {
			continue
		}
		s.Signals++
		switch f.TradeType[i] {
		case models.TradeLong:
			s.Longs++
		case models.TradeShort:
			s.Shorts++
		case models.TradeClose:
			s.Closes++
		}
	}
	if n := len(f.CumReturns); n > 0 {
		s.FinalReturn = models.Float(f.CumReturns[n-1])
	}
	return s
}
