//go:build wireinject
// +build wireinject

package di

import (
	"TrendLens/internal/usecase"
	"TrendLens/pkg/config"
	"TrendLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideCache,
		ProvideEventPublisher,

		// Market data and inference
		ProvideMarketSource,
		ProvideEngine,

		// Pipeline and use cases
		ProvideFeatureBuilder,
		ProvideEncoder,
		usecase.NewPipeline,
		ProvideRegistry,

		// HTTP and application server
		ProvidePredictionsHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
