package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"TrendPull/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal     *prometheus.CounterVec
	signalsTotal  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	hurstOutcomes *prometheus.CounterVec
	missingCells  *prometheus.CounterVec
}

// New creates a recorder on reg. A nil reg means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpull_runs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"symbol", "outcome"},
		),
		signalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpull_signals_total",
				Help: "Non-zero signals emitted",
			},
			[]string{"symbol", "trade_type"},
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendpull_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		hurstOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpull_hurst_estimates_total",
				Help: "Hurst window estimates by outcome",
			},
			[]string{"outcome"},
		),
		missingCells: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpull_missing_cells_total",
				Help: "Indicator cells left missing",
			},
			[]string{"column"},
		),
	}
}

// RecordRun records a finished run.
func (r *Recorder) RecordRun(symbol, outcome string) {
	r.runsTotal.WithLabelValues(symbol, outcome).Inc()
}

// RecordSignal records one emitted signal.
func (r *Recorder) RecordSignal(symbol string, tt models.TradeType) {
	r.signalsTotal.WithLabelValues(symbol, string(tt)).Inc()
}

// RecordStage records stage latency in seconds.
func (r *Recorder) RecordStage(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordHurstOutcome(outcome string, n int) {
	r.hurstOutcomes.WithLabelValues(outcome).Add(float64(n))
}

func (r *Recorder) RecordMissing(column string, n int) {
	r.missingCells.WithLabelValues(column).Add(float64(n))
}

// Nop discards everything. Used by the CLI and tests.
type Nop struct{}

func (Nop) RecordRun(string, string) {}
func (Nop) RecordSignal(string, models.TradeType) {}
func (Nop) RecordStage(string, float64) {}
func (Nop) RecordHurstOutcome(string, int) {}
func (Nop) RecordMissing(string, int) {}
