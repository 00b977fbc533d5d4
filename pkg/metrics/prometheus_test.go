package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"TrendPull/internal/domain/models"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordRun("BTCUSDT", "ok")
	r.RecordRun("BTCUSDT", "ok")
	r.RecordSignal("BTCUSDT", models.TradeLong)
	r.RecordHurstOutcome("insufficient", 99)
	r.RecordMissing("atr", 3)
	r.RecordStage("indicators", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("BTCUSDT", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.signalsTotal.WithLabelValues("BTCUSDT", "long")))
	assert.Equal(t, 99.0, testutil.ToFloat64(r.hurstOutcomes.WithLabelValues("insufficient")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.missingCells.WithLabelValues("atr")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stageDuration))
}
