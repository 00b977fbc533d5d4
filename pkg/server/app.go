package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TrendPull/pkg/config"
	xhttp "TrendPull/pkg/http"
	pkgkafka "TrendPull/pkg/kafka"
	applogger "TrendPull/pkg/logger"
	"TrendPull/pkg/queue"
)

// App encapsulates the service lifecycle: HTTP API, the optional Kafka run consumer
// and the optional Redis run queue.
// Infrastructure clients are closed by the cleanup func returned from DI.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	runHandler pkgkafka.MessageHandler
	runQueue   *queue.RedisQueue
}

// New creates a new App. consumer, runHandler and runQueue may be nil.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	runHandler pkgkafka.MessageHandler,
	runQueue *queue.RedisQueue,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		consumer:   consumer,
		runHandler: runHandler,
		runQueue:   runQueue,
	}
}

// Run starts every component and blocks until SIGINT/SIGTERM or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.consumer != nil && a.runHandler != nil {
		a.consumer.RegisterHandler(a.runHandler)
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka run consumer started", applogger.String("topic", a.runHandler.Topic()))
	}

	if a.runQueue != nil {
		if err := a.runQueue.Start(); err != nil {
			return err
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("trendpull started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port))

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops HTTP intake, then drains the consumer and the queue.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.runQueue != nil {
		if err := a.runQueue.Stop(ctx); err != nil {
			a.log.Warn("run queue stop error", applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
	return nil
}
