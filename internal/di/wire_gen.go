//go:build !wireinject
// +build !wireinject

package di

import (
	"TrendPull/pkg/config"
	"TrendPull/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application. It is
// maintained by hand and follows the provider order of the injector in wire.go.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, cleanup, err := ProvideClickHouseClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	producer, cleanup2, err := ProvideKafkaProducer(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	redisCache, cleanup3, err := ProvideRedisCache(cfg, logger)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	service, cleanup4, err := ProvideCache(redisCache, logger)
	if err != nil {
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	registry := ProvideRegistry()
	metrics := ProvideMetrics(registry)
	pipeline := ProvidePipeline(logger, metrics)
	barSource := ProvideBarSource(client, cfg)
	frameStore, err := ProvideFrameStore(client, cfg)
	if err != nil {
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	frameCache := ProvideFrameCache(service, cfg)
	signalPublisher := ProvideSignalPublisher(producer, cfg)
	backtestSubmitter := ProvideBacktestSubmitter(cfg)
	signalHub := ProvideSignalHub()
	runUseCase := ProvideRunUseCase(cfg, logger, metrics, pipeline, barSource, frameStore, frameCache, signalPublisher, backtestSubmitter, signalHub)
	signalsUseCase := ProvideSignalsUseCase(frameStore, frameCache)
	runStatusStore := ProvideStatusStore(service, cfg)
	runJob := ProvideRunJob(runUseCase, runStatusStore, logger)
	redisQueue := ProvideRedisQueue(cfg, logger, redisCache, runJob)
	runQueue := ProvideRunQueue(redisQueue, runStatusStore)
	barsUseCase := ProvideBarsUseCase(barSource)
	v := ProvideHandlers(logger, runUseCase, signalsUseCase, runQueue, barsUseCase, signalHub)
	httpServer := ProvideHTTPServer(cfg, logger, registry, v)
	consumer, err := ProvideKafkaConsumer(cfg, logger)
	if err != nil {
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	kafkaRunHandler := ProvideKafkaRunHandler(cfg, runUseCase, logger)
	app := ProvideApp(cfg, logger, httpServer, consumer, kafkaRunHandler, redisQueue)
	return app, func() {
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
	}, nil
}
