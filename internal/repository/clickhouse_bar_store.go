package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TrendPull/internal/domain/models"
	domrepo "TrendPull/internal/domain/repository"
	pkgch "TrendPull/pkg/clickhouse"
	applogger "TrendPull/pkg/logger"
)

// CHBarStore implements BarSource backed by the ClickHouse candle tables.
type CHBarStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, database string) *CHBarStore {
	return &CHBarStore{db: ch.DB(), database: database, l: ch.Logger()}
}

func (s *CHBarStore) table(tf domrepo.Timeframe) string {
	if s.database == "" {
		return tf.Table()
	}
	return s.database + "." + tf.Table()
}

func (s *CHBarStore) GetBars(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Bar, error) {
	start := time.Now()
	table := s.table(tf)
	const qtpl = `
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, table), symbol, from, to)
	if err != nil {
		s.l.Error("clickhouse get_bars query error",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out, err := scanBars(rows, 1024)
	if err != nil {
		s.l.Error("clickhouse get_bars scan error",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, err
	}
	s.l.Info("clickhouse get_bars ok",
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHBarStore) GetLatestNBars(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Bar, error) {
	start := time.Now()
	table := s.table(tf)
	const qtpl = `
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, table), symbol, n)
	if err != nil {
		s.l.Error("clickhouse latest_bars query error",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Int("limit", n),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	defer rows.Close()

	out, err := scanBars(rows, n)
	if err != nil {
		s.l.Error("clickhouse latest_bars scan error",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, err
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.l.Info("clickhouse latest_bars ok",
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.Int("limit", n),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanBars(rows rowScanner, capHint int) ([]models.Bar, error) {
	out := make([]models.Bar, 0, capHint)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Time = b.Time.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var _ domrepo.BarSource = (*CHBarStore)(nil)
