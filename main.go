package main

import (
	"time"

	"github.com/readboostid/readboost-server/config"
	"github.com/readboostid/readboost-server/models"
	"github.com/readboostid/readboost-server/routes"
	"github.com/readboostid/readboost-server/services"
	"github.com/readboostid/readboost-server/store"
	"github.com/readboostid/readboost-server/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	models.SetDefaultDailyTarget(cfg.DefaultDailyTarget)

	db := config.InitDatabase(&models.User{}, &models.Article{}, &models.UserProgress{})

	local := store.NewGormLocal(db)
	remote := store.NewRedisRemote(utils.GetRedis())

	clock := services.SystemClock()
	boards := services.NewLeaderboardService(remote, local, clock, utils.Sugar)
	tracker := services.NewSessionTracker(remote, clock, utils.Sugar)
	manager := services.NewHybridManager(
		local, remote, boards, tracker, clock,
		time.Duration(cfg.StoreTimeoutSeconds)*time.Second,
		utils.Sugar,
	)

	r := routes.SetupRouter(db, manager, boards, tracker)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
