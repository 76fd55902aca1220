//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	internalrepo "github.com/antonbeski0/Predflux/internal/repository"
	"github.com/antonbeski0/Predflux/internal/usecase"
	"github.com/antonbeski0/Predflux/pkg/config"
	"github.com/antonbeski0/Predflux/pkg/server"
)

var storeSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideKVStore,
	ProvideModelStore,
)

var forecastSet = wire.NewSet(
	storeSet,
	ProvideEventSink,
	ProvideSingleEngine,
	ProvideMultiEngine,
	ProvideSentiment,
	ProvideSeriesBuffers,
	ProvideSeriesSource,
	usecase.NewForecastRunner,
)

// InitializeApp wires the long-running service.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		forecastSet,
		ProvideLiveCollector,
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,
		ProvideRequestHandler,
		server.New,
	)
	return nil, nil, nil
}

// InitializeRunner wires the engines for one-shot CLI forecasts.
func InitializeRunner(cfg *config.Config) (*usecase.ForecastRunner, func(), error) {
	wire.Build(forecastSet)
	return nil, nil, nil
}

// InitializeModelStore wires only the artifact store.
func InitializeModelStore(cfg *config.Config) (*internalrepo.ModelStore, func(), error) {
	wire.Build(storeSet)
	return nil, nil, nil
}
