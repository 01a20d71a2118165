//go:build wireinject
// +build wireinject

package di

import (
	"SigDerive/pkg/config"
	"SigDerive/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideChannelStore,
		ProvideSampleWriter,
		ProvideSignalRegistry,
		ProvideEventPublisher,
		ProvideSamplePublisher,
		ProvideSampleStream,

		// Use cases
		ProvideEngine,
		ProvideDerivedSignalUseCase,
		ProvideRegistryUseCase,
		ProvideSampleProcessor,
		ProvideSampleCollector,
		ProvideKafkaSamplesHandler,

		// HTTP
		ProvideRateLimiter,
		ProvideHTTPHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
