//go:build wireinject
// +build wireinject

package di

import (
	"StockHolo/internal/domain/repository"
	dsvc "StockHolo/internal/domain/service"
	"StockHolo/internal/services/sentiment"
	"StockHolo/pkg/config"
	"StockHolo/pkg/metrics"
	"StockHolo/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),

		// Domain services
		ProvideEncoder,
		ProvideAggregator,
		ProvideCache,
		ProvideSentimentService,
		wire.Bind(new(dsvc.NewsSentiment), new(*sentiment.Service)),

		// Data sources
		ProvideFinnhubClient,
		ProvideMarketDataSource,
		ProvideNewsSource,

		// Use cases
		ProvideMarketStore,
		ProvideQuotePipeline,
		ProvideRefresher,
		ProvideNewsUpdater,
		ProvideStreamCollector,

		// Kafka
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideQuotesHandler,

		// Rendering and HTTP
		ProvideHub,
		ProvideDispatcher,
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
