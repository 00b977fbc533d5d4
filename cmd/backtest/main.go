package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"TrendPull/internal/domain/models"
	domrepo "TrendPull/internal/domain/repository"
	domsvc "TrendPull/internal/domain/service"
	internalrepo "TrendPull/internal/repository"
	"TrendPull/internal/services/analytics"
	"TrendPull/internal/usecase"
	pkgch "TrendPull/pkg/clickhouse"
	"TrendPull/pkg/config"
	"TrendPull/pkg/logger"
	"TrendPull/pkg/metrics"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file path (defaults when empty)")
		outDir     = flag.String("out", ".", "directory for annotated CSV files")
		symbol     = flag.String("symbol", "", "symbol for a single input file (defaults to the file name)")
		name       = flag.String("name", "", "run name sent to the backtest service")
		submit     = flag.Bool("submit", false, "submit each run to the backtest service")
		persist    = flag.Bool("persist", false, "store frames in ClickHouse")
		leverage   = flag.Float64("leverage", 0, "backtest leverage (config default when 0)")
		parallel   = flag.Int("parallel", 4, "files processed concurrently")
	)
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: backtest [flags] bars.csv [more.csv ...]")
		os.Exit(2)
	}
	if *symbol != "" && len(files) > 1 {
		fmt.Fprintln(os.Stderr, "-symbol only applies to a single input file")
		os.Exit(2)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := usecase.RunDeps{
		Pipeline:        usecase.NewPipeline(log, metrics.Nop{}),
		Params:          cfg.Strategy,
		Logger:          log,
		Metrics:         metrics.Nop{},
		Timeout:         cfg.Run.Timeout,
		DefaultLimit:    cfg.Run.DefaultLimit,
		DefaultLeverage: cfg.Backtest.Leverage,
	}
	if *persist {
		store, closeStore, err := openFrameStore(ctx, cfg, log)
		if err != nil {
			log.Error("frame store", logger.Error(err))
			os.Exit(1)
		}
		defer closeStore()
		deps.Store = store
	}
	if *submit {
		sub, err := newSubmitter(cfg)
		if err != nil {
			log.Error("backtest submitter", logger.Error(err))
			os.Exit(1)
		}
		deps.Submitter = sub
	}
	runs := usecase.NewRunUseCase(deps)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Error("create output dir", logger.Error(err))
		os.Exit(1)
	}

	syms := make([]string, len(files))
	for i, path := range files {
		syms[i] = *symbol
		if syms[i] == "" {
			syms[i] = symbolFromPath(path)
		}
	}
	outputs := outputNames(syms)
	log.Info("backtest started",
		logger.Strings("files", files),
		logger.Strings("outputs", outputs),
		logger.Int("parallel", max(*parallel, 1)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*parallel, 1))
	for i, path := range files {
		path, sym, dst := path, syms[i], filepath.Join(*outDir, outputs[i])
		g.Go(func() error {
			return runFile(gctx, log, runs, path, sym, dst, models.RunRequest{
				Name:     *name,
				Submit:   *submit,
				Leverage: *leverage,
			})
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("backtest failed", logger.Error(err))
		os.Exit(1)
	}
}

func runFile(ctx context.Context, log *logger.Logger, runs *usecase.RunUseCase, path, sym, dst string, req models.RunRequest) error {
	bars, err := internalrepo.ReadBarsFile(path, sym)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	req.Symbol = sym
	req.Bars = bars
	if req.Name == "" {
		req.Name = sym
	}

	out, err := runs.Execute(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if err := internalrepo.WriteFrameFile(dst, out.Frame); err != nil {
		return fmt.Errorf("%s: %w", dst, err)
	}
	log.Info("run written",
		logger.String("input", path),
		logger.String("output", dst),
		logger.String("run_id", out.Summary.Run.ID),
		logger.Int("bars", out.Summary.Bars),
		logger.Int("signals", out.Summary.Signals),
		logger.Float64("final_return", float64(out.Summary.FinalReturn)),
		logger.Int("backtest_records", len(out.Records)))
	return nil
}

func openFrameStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (domrepo.FrameStore, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil, fmt.Errorf("-persist needs clickhouse.enabled")
	}
	ch, err := pkgch.NewClient(log, pkgch.FromConfig(cfg.ClickHouse))
	if err != nil {
		return nil, nil, err
	}
	store := internalrepo.NewCHFrameStore(ch, cfg.ClickHouse.Database)
	if err := store.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	return store, func() { _ = ch.Close() }, nil
}

func newSubmitter(cfg *config.Config) (domsvc.BacktestSubmitter, error) {
	if !cfg.Backtest.Enabled {
		return nil, fmt.Errorf("-submit needs backtest.enabled")
	}
	return analytics.NewHTTPBacktestSubmitter(analytics.BacktestOptions{
		URL:      cfg.Backtest.URL,
		Path:     cfg.Backtest.Path,
		Token:    cfg.Backtest.Token,
		Timeout:  cfg.Backtest.Timeout,
		Attempts: cfg.Backtest.Attempts,
	}), nil
}

// symbolFromPath turns "data/BTCUSDT_1h.csv" into "BTCUSDT_1h".
func symbolFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// outputNames maps each symbol to "<sym>_signals.csv". Repeated symbols get a
// numeric suffix so that files with the same base name do not overwrite each other.
func outputNames(syms []string) []string {
	used := make(map[string]bool, len(syms))
	out := make([]string, len(syms))
	for i, sym := range syms {
		name := sym + "_signals.csv"
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d_signals.csv", sym, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
