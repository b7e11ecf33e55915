package internal

import (
	"net/http"
	"rankview/internal/controllers"
	"rankview/internal/providers"
)

func InitRoutes(leaderboardController *controllers.LeaderboardController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/leaderboard/{"+controllers.KindParam+"}", http.HandlerFunc(leaderboardController.GetLeaderboard))
	routers.Get("/leaderboard/{"+controllers.KindParam+"}/me", http.HandlerFunc(leaderboardController.GetSelfRank))
	return routers
}
