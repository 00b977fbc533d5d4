package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"TrendPull/internal/domain/models"
	domrepo "TrendPull/internal/domain/repository"
	domsvc "TrendPull/internal/domain/service"
	"TrendPull/pkg/logger"
	"TrendPull/pkg/metrics"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func wave(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + 8*math.Sin(float64(i)/6) + 0.1*float64(i)
		bars[i] = models.Bar{
			Time:   t0.Add(time.Duration(i) * time.Hour),
			Open:   c - 0.3,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 500,
		}
	}
	return bars
}

// breakout is a seeded random walk with a small upward drift followed by rise bars
// of accelerating gains (0.3 * 1.25^j). With seed 5 and 200 walk bars the only
// setup the strategy takes is a long decided on the third rise bar.
func breakout(seed uint64, walk, rise int) []models.Bar {
	closes := make([]float64, 0, walk+rise)
	x, p := seed, 100.0
	for i := 0; i < walk; i++ {
		x = (x*1103515245 + 12345) % (1 << 31)
		u := float64(x)/float64(1<<31) - 0.5
		p += 0.05 + u
		closes = append(closes, p)
	}
	for j := 1; j <= rise; j++ {
		p += 0.3 * math.Pow(1.25, float64(j))
		closes = append(closes, p)
	}
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Time:   t0.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

type fakeBars struct {
	bars      []models.Bar
	err       error
	latestN   int
	tf        domrepo.Timeframe
	rangeCall bool
}

func (f *fakeBars) GetBars(_ context.Context, _ string, _, _ time.Time, tf domrepo.Timeframe) ([]models.Bar, error) {
	f.rangeCall = true
	f.tf = tf
	return f.bars, f.err
}

func (f *fakeBars) GetLatestNBars(_ context.Context, _ string, n int, tf domrepo.Timeframe) ([]models.Bar, error) {
	f.latestN = n
	f.tf = tf
	return f.bars, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	runs    []models.RunIdentity
	rows    int
	err     error
	signals []models.SignalEvent
}

func (s *fakeStore) Init(context.Context) error { return nil }

func (s *fakeStore) StoreFrame(_ context.Context, run models.RunIdentity, f *models.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	s.rows = f.Len()
	return s.err
}

func (s *fakeStore) QuerySignals(_ context.Context, symbol string, _, _ time.Time, limit int) ([]models.SignalEvent, error) {
	var out []models.SignalEvent
	for _, ev := range s.signals {
		if ev.Symbol == symbol && len(out) < limit {
			out = append(out, ev)
		}
	}
	return out, s.err
}

func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]models.Row
	err  error
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string][]models.Row)} }

func (c *fakeCache) GetRows(_ context.Context, key string) ([]models.Row, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, ok := c.data[key]
	return rows, ok, nil
}

func (c *fakeCache) SetRows(_ context.Context, key string, rows []models.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.data[key] = rows
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.SignalEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, ev *models.SignalEvent) error {
	return p.PublishBatch(ctx, []models.SignalEvent{*ev})
}

func (p *fakePublisher) PublishBatch(_ context.Context, evs []models.SignalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

type fakeSubmitter struct {
	records  []models.BacktestRecord
	err      error
	leverage float64
	run      models.RunIdentity
}

func (s *fakeSubmitter) Submit(_ context.Context, _ *models.Frame, run models.RunIdentity, leverage float64) (domsvc.ResultStream, error) {
	s.run, s.leverage = run, leverage
	if s.err != nil {
		return nil, s.err
	}
	return &sliceStream{records: s.records, i: -1}, nil
}

type sliceStream struct {
	records []models.BacktestRecord
	i       int
}

func (s *sliceStream) Next() bool                    { s.i++; return s.i < len(s.records) }
func (s *sliceStream) Record() models.BacktestRecord { return s.records[s.i] }
func (s *sliceStream) Err() error                    { return nil }
func (s *sliceStream) Close() error                  { return nil }

func newRunUseCase(mod func(*RunDeps)) *RunUseCase {
	log := logger.Nop()
	d := RunDeps{
		Pipeline: NewPipeline(log, metrics.Nop{}),
		Params:   models.DefaultParams(),
		Logger:   log,
		Metrics:  metrics.Nop{},
	}
	if mod != nil {
		mod(&d)
	}
	return NewRunUseCase(d)
}
