//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"rankview/internal"
	"rankview/internal/controllers"
	"rankview/internal/providers"
	"rankview/internal/services"
	"rankview/internal/structures"
	"rankview/internal/warmup"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewZstdCompressor,
		providers.NewInstrumentedCacheProvider,

		services.NewRankingClient,
		services.NewLeaderboardService,
		controllers.NewLeaderboardController,
		controllers.NewHealthController,
		warmup.NewScheduler,
		internal.InitRoutes,
		internal.NewHandler,
		internal.NewApp,
	)

	return nil, nil
}
