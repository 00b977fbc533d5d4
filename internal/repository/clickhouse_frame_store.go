package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"TrendPull/internal/domain/models"
	domrepo "TrendPull/internal/domain/repository"
	pkgch "TrendPull/pkg/clickhouse"
	applogger "TrendPull/pkg/logger"
)

// CHFrameStore implements FrameStore for ClickHouse. Every row of a run goes to
// the frames table; non-zero signals are duplicated into signal_events for querying.
type CHFrameStore struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHFrameStore(ch *pkgch.Client, database string) *CHFrameStore {
	return &CHFrameStore{ch: ch, db: ch.DB(), database: database, l: ch.Logger()}
}

func (s *CHFrameStore) framesTable() string  { return s.qualify("frames") }
func (s *CHFrameStore) signalsTable() string { return s.qualify("signal_events") }

func (s *CHFrameStore) qualify(t string) string {
	if s.database == "" {
		return t
	}
	return s.database + "." + t
}

func (s *CHFrameStore) Init(ctx context.Context) error {
	var stmts []string
	if s.database != "" {
		stmts = append(stmts, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database))
	}
	stmts = append(stmts,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            run_id String,
            run_name String,
            symbol LowCardinality(String),
            ts DateTime64(3, 'UTC'),
            open Nullable(Float64),
            high Nullable(Float64),
            low Nullable(Float64),
            close Nullable(Float64),
            volume Nullable(Float64),
            prev_close Nullable(Float64),
            indicators String,
            regime LowCardinality(String),
            signal Int8,
            trade_type LowCardinality(String),
            cumulative_return Nullable(Float64),
            synthetic UInt8
        ) ENGINE = MergeTree ORDER BY (symbol, run_id, ts)`, s.framesTable()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            run_id String,
            symbol LowCardinality(String),
            ts DateTime64(3, 'UTC'),
            signal Int8,
            trade_type LowCardinality(String),
            price Nullable(Float64),
            regime LowCardinality(String)
        ) ENGINE = MergeTree ORDER BY (symbol, ts)`, s.signalsTable()),
	)
	return s.ch.InitSchema(ctx, stmts)
}

const frameChunk = 2000

func (s *CHFrameStore) StoreFrame(ctx context.Context, run models.RunIdentity, f *models.Frame) error {
	if f == nil || f.Len() == 0 {
		return nil
	}
	start := time.Now()
	rows := f.Rows()
	last := len(rows) - 1

	// Batch insert using multi-row VALUES.
	for lo := 0; lo < len(rows); lo += frameChunk {
		hi := lo + frameChunk
		if hi > len(rows) {
			hi = len(rows)
		}
		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*16)
		for i := lo; i < hi; i++ {
			r := rows[i]
			ind, err := json.Marshal(r.Indicators)
			if err != nil {
				return fmt.Errorf("encode indicators row %d: %w", i, err)
			}
			synthetic := uint8(0)
			if f.SyntheticTail && i == last {
				synthetic = 1
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				run.ID, run.Name, f.Symbol, r.Time,
				nullable(r.Open), nullable(r.High), nullable(r.Low), nullable(r.Close), nullable(r.Volume),
				nullable(r.PrevClose), string(ind), string(r.Regime), int8(r.Signal), string(r.TradeType),
				nullable(r.CumulativeReturn), synthetic,
			)
		}
		q := fmt.Sprintf(`INSERT INTO %s (run_id, run_name, symbol, ts, open, high, low, close, volume,
            prev_close, indicators, regime, signal, trade_type, cumulative_return, synthetic) VALUES %s`,
			s.framesTable(), strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store_frame error",
				applogger.String("run_id", run.ID),
				applogger.Int("offset", lo),
				applogger.Error(err),
			)
			return fmt.Errorf("insert frame rows: %w", err)
		}
	}

	if err := s.storeEvents(ctx, f.Events(run.ID)); err != nil {
		return err
	}
	s.l.Info("clickhouse store_frame ok",
		applogger.String("run_id", run.ID),
		applogger.String("symbol", f.Symbol),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHFrameStore) storeEvents(ctx context.Context, evs []models.SignalEvent) error {
	if len(evs) == 0 {
		return nil
	}
	values := make([]string, 0, len(evs))
	args := make([]interface{}, 0, len(evs)*7)
	for _, ev := range evs {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, ev.RunID, ev.Symbol, time.UnixMilli(ev.Time).UTC(), int8(ev.Signal),
			string(ev.TradeType), nullable(ev.Price), string(ev.Regime))
	}
	q := fmt.Sprintf("INSERT INTO %s (run_id, symbol, ts, signal, trade_type, price, regime) VALUES %s",
		s.signalsTable(), strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert signal events: %w", err)
	}
	return nil
}

func (s *CHFrameStore) QuerySignals(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.SignalEvent, error) {
	q := fmt.Sprintf(`SELECT run_id, symbol, ts, signal, trade_type, price, regime FROM %s
        WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?`, s.signalsTable())
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []models.SignalEvent
	for rows.Next() {
		var (
			ev     models.SignalEvent
			ts     time.Time
			signal int8
			tt     string
			price  sql.NullFloat64
			regime string
		)
		if err := rows.Scan(&ev.RunID, &ev.Symbol, &ts, &signal, &tt, &price, &regime); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		ev.Time = ts.UnixMilli()
		ev.Signal = int(signal)
		ev.TradeType = models.TradeType(tt)
		ev.Regime = models.Regime(regime)
		ev.Price = models.Float(models.Missing)
		if price.Valid {
			ev.Price = models.Float(price.Float64)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *CHFrameStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHFrameStore) Close() error {
	return nil // pool owned by pkg/clickhouse
}

// nullable maps missing cells to NULL.
func nullable(v models.Float) interface{} {
	if models.IsMissing(float64(v)) {
		return nil
	}
	return float64(v)
}

var _ domrepo.FrameStore = (*CHFrameStore)(nil)
