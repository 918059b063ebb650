//go:build wireinject
// +build wireinject

package di

import (
	"TrendSeg/pkg/config"
	"TrendSeg/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics and logging
		ProvideMetrics,
		ProvideLogger,

		// Strategy configuration
		ProvideStrategyParams,
		ProvideAggregatorConfig,
		ProvideAggregator,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Verdict sinks
		ProvideVerdictStorage,
		ProvideVerdictPublisher,
		ProvideVerdictCache,
		ProvideVerdictProcessor,

		// Intake paths
		ProvideCandleStream,
		ProvideCandleCollector,
		ProvideCandleFeedHandler,

		// Use cases
		ProvideEngine,
		ProvideCandleStore,
		ProvideReplayUseCase,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
