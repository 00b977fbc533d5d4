//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"TrendPull/pkg/config"
	"TrendPull/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideCache,

		// Repositories and adapters
		ProvideBarSource,
		ProvideFrameStore,
		ProvideSignalPublisher,
		ProvideFrameCache,
		ProvideStatusStore,
		ProvideBacktestSubmitter,

		// Use cases
		ProvideSignalHub,
		ProvidePipeline,
		ProvideRunUseCase,
		ProvideSignalsUseCase,
		ProvideBarsUseCase,
		ProvideRunJob,
		ProvideRedisQueue,
		ProvideRunQueue,
		ProvideKafkaConsumer,
		ProvideKafkaRunHandler,

		// Transport
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
