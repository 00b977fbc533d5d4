package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	domrepo "TrendPull/internal/domain/repository"
	domsvc "TrendPull/internal/domain/service"
	"TrendPull/internal/handler/api"
	internalrepo "TrendPull/internal/repository"
	"TrendPull/internal/services/analytics"
	"TrendPull/internal/usecase"
	"TrendPull/pkg/cache"
	pkgch "TrendPull/pkg/clickhouse"
	"TrendPull/pkg/config"
	xhttp "TrendPull/pkg/http"
	"TrendPull/pkg/http/middleware"
	pkgkafka "TrendPull/pkg/kafka"
	"TrendPull/pkg/logger"
	"TrendPull/pkg/metrics"
	"TrendPull/pkg/queue"
	"TrendPull/pkg/server"
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("service", "trendpull"), logger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the registry served on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.New(reg)
}

// ProvideClickHouseClient connects when clickhouse is enabled; otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config, log *logger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(log, pkgch.FromConfig(cfg.ClickHouse))
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Warn("clickhouse close error", logger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideBarSource returns the ClickHouse candle reader, or nil without ClickHouse.
func ProvideBarSource(ch *pkgch.Client, cfg *config.Config) domrepo.BarSource {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Database)
}

// ProvideFrameStore ensures the frame tables exist.
func ProvideFrameStore(ch *pkgch.Client, cfg *config.Config) (domrepo.FrameStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHFrameStore(ch, cfg.ClickHouse.Database)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates the signal producer when kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.SignalTopic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(p.BatchSize, p.BatchBytes, p.Linger),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.ReadTimeout),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			log.Warn("kafka producer close error", logger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideSignalPublisher returns the Kafka publisher, or nil without Kafka.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.SignalPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalTopic)
}

// ProvideRedisCache connects when redis is enabled; otherwise it returns nil.
func ProvideRedisCache(cfg *config.Config, log *logger.Logger) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(cache.FromConfig(cfg.Redis))
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	cleanup := func() {
		if err := rc.Close(); err != nil {
			log.Warn("redis close error", logger.Error(err))
		}
	}
	return rc, cleanup, nil
}

// ProvideCache uses Redis when connected and an in-process cache otherwise.
func ProvideCache(rc *cache.RedisCache, log *logger.Logger) (cache.Service, func(), error) {
	if rc != nil {
		return rc, func() {}, nil
	}
	mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(256))
	cleanup := func() {
		if err := mc.Close(); err != nil {
			log.Warn("memory cache close error", logger.Error(err))
		}
	}
	return mc, cleanup, nil
}

// ProvideStatusStore keeps queued run states next to the cached rows.
func ProvideStatusStore(svc cache.Service, cfg *config.Config) domrepo.RunStatusStore {
	return internalrepo.NewStatusCache(svc, cfg.Redis.TTL)
}

// ProvideFrameCache stores run rows for the configured TTL.
func ProvideFrameCache(svc cache.Service, cfg *config.Config) domrepo.FrameCache {
	return internalrepo.NewRowsCache(svc, cfg.Redis.TTL)
}

// ProvideBacktestSubmitter returns the HTTP adapter when a backtest service is configured.
func ProvideBacktestSubmitter(cfg *config.Config) domsvc.BacktestSubmitter {
	if !cfg.Backtest.Enabled {
		return nil
	}
	return analytics.NewHTTPBacktestSubmitter(analytics.BacktestOptions{
		URL:      cfg.Backtest.URL,
		Path:     cfg.Backtest.Path,
		Token:    cfg.Backtest.Token,
		Timeout:  cfg.Backtest.Timeout,
		Attempts: cfg.Backtest.Attempts,
	})
}

func ProvideSignalHub() *usecase.SignalHub {
	return usecase.NewSignalHub()
}

func ProvidePipeline(log *logger.Logger, m domrepo.Metrics) *usecase.Pipeline {
	return usecase.NewPipeline(log, m)
}

// ProvideRunUseCase wires every optional collaborator that is configured.
func ProvideRunUseCase(
	cfg *config.Config,
	log *logger.Logger,
	m domrepo.Metrics,
	pipeline *usecase.Pipeline,
	bars domrepo.BarSource,
	store domrepo.FrameStore,
	frameCache domrepo.FrameCache,
	pub domrepo.SignalPublisher,
	submitter domsvc.BacktestSubmitter,
	hub *usecase.SignalHub,
) *usecase.RunUseCase {
	return usecase.NewRunUseCase(usecase.RunDeps{
		Pipeline:  pipeline,
		Params:    cfg.Strategy,
		Bars:      bars,
		Store:     store,
		Cache:     frameCache,
		Publisher: pub,
		Submitter: submitter,
		Hub:       hub,
		Logger:    log,
		Metrics:   m,
		Timeout:   cfg.Run.Timeout,

		DefaultLimit:    cfg.Run.DefaultLimit,
		DefaultLeverage: cfg.Backtest.Leverage,
	})
}

func ProvideSignalsUseCase(store domrepo.FrameStore, frameCache domrepo.FrameCache) *usecase.SignalsUseCase {
	return usecase.NewSignalsUseCase(store, frameCache)
}

func ProvideBarsUseCase(bars domrepo.BarSource) *usecase.BarsUseCase {
	return usecase.NewBarsUseCase(bars)
}

func ProvideRunJob(runs *usecase.RunUseCase, status domrepo.RunStatusStore, log *logger.Logger) *usecase.RunJob {
	return usecase.NewRunJob(runs, status, log)
}

// ProvideRedisQueue builds the run queue on the Redis client when the queue is enabled.
func ProvideRedisQueue(cfg *config.Config, log *logger.Logger, rc *cache.RedisCache, job *usecase.RunJob) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(log, rc.Client(), queue.Config{
		Workers:     cfg.Queue.Workers,
		RetryLimit:  cfg.Queue.RetryLimit,
		RetryDelay:  cfg.Queue.RetryDelay,
		PollTimeout: cfg.Queue.PollTimeout,
		KeyPrefix:   cfg.Queue.KeyPrefix,
	})
	q.Register(job)
	return q
}

// ProvideRunQueue returns nil without a Redis queue so async runs answer 503.
func ProvideRunQueue(q *queue.RedisQueue, status domrepo.RunStatusStore) *usecase.RunQueue {
	if q == nil {
		return nil
	}
	return usecase.NewRunQueue(q, status)
}

// ProvideKafkaConsumer creates the run-request consumer when kafka is enabled.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerBufferSize(c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideKafkaRunHandler(cfg *config.Config, runs *usecase.RunUseCase, log *logger.Logger) *usecase.KafkaRunHandler {
	return usecase.NewKafkaRunHandler(cfg.Kafka.RunTopic, runs, log)
}

// ProvideHandlers lists every HTTP handler. Run creation is limited to 5 bursts
// per caller, refilled at one every 2 seconds.
func ProvideHandlers(
	log *logger.Logger,
	runs *usecase.RunUseCase,
	signals *usecase.SignalsUseCase,
	runQueue *usecase.RunQueue,
	bars *usecase.BarsUseCase,
	hub *usecase.SignalHub,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewRunsEchoHandler(log, runs, signals, runQueue, middleware.NewLimiter(5, 0.5)),
		api.NewSignalsEchoHandler(log, signals, hub),
		api.NewBarsEchoHandler(log, bars),
	}
}

func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, reg *prometheus.Registry, handlers []xhttp.Handler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORSOrigins),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, cfg.Metrics.Path))
	}
	return xhttp.NewServer(log, handlers, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	runHandler *usecase.KafkaRunHandler,
	runQueue *queue.RedisQueue,
) *server.App {
	if consumer == nil {
		return server.New(cfg, log, httpServer, nil, nil, runQueue)
	}
	return server.New(cfg, log, httpServer, consumer, runHandler, runQueue)
}
