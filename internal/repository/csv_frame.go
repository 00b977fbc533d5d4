package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"TrendPull/internal/domain/models"
)

// WriteFrameFile writes f to path with WriteFrame.
func WriteFrameFile(path string, f *models.Frame) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteFrame(out, f)
}

// WriteFrame writes the annotated frame as CSV: raw bar, lagged bar, indicator
// columns in insertion order, then regime, signals, trade_type and
// cumulative_returns. Missing cells are empty.
func WriteFrame(w io.Writer, f *models.Frame) error {
	cw := csv.NewWriter(w)
	names := f.ColumnNames()

	header := []string{
		"timestamp", "open", "high", "low", "close", "volume",
		"prev_open", "prev_high", "prev_low", "prev_close", "prev_volume",
	}
	header = append(header, names...)
	header = append(header, "regime", "signals", "trade_type", "cumulative_returns")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rec := make([]string, len(header))
	for i := 0; i < f.Len(); i++ {
		rec = rec[:0]
		rec = append(rec, f.Time[i].UTC().Format(time.RFC3339))
		for _, col := range [][]float64{
			f.Open, f.High, f.Low, f.Close, f.Volume,
			f.PrevOpen, f.PrevHigh, f.PrevLow, f.PrevClose, f.PrevVolume,
		} {
			rec = append(rec, formatCell(cell(col, i)))
		}
		for _, name := range names {
			rec = append(rec, formatCell(f.Value(name, i)))
		}
		regime, signal, tt := string(models.RegimeNoTrend), models.SignalNone, models.TradeNone
		if i < len(f.Regime) {
			regime = string(f.Regime[i])
		}
		if i < len(f.Signal) {
			signal = f.Signal[i]
		}
		if i < len(f.TradeType) {
			tt = f.TradeType[i]
		}
		rec = append(rec, regime, strconv.Itoa(signal), string(tt), formatCell(cell(f.CumReturns, i)))
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(col []float64, i int) float64 {
	if i >= len(col) {
		return models.Missing
	}
	return col[i]
}

func formatCell(v float64) string {
	if models.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
