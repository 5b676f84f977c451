package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/readboostid/readboost-server/config"
	"github.com/readboostid/readboost-server/services"
	"github.com/readboostid/readboost-server/utils"
)

// LeaderboardController serves ranked XP standings.
type LeaderboardController struct {
	boards *services.LeaderboardService
}

func NewLeaderboardController(boards *services.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{boards: boards}
}

// GetLeaderboard returns the top entries for a period ("alltime" default,
// "weekly" for the current ISO week). The response degrades rather than
// fails: on remote outage it falls back to the local standings.
func (l *LeaderboardController) GetLeaderboard(ctx *gin.Context) {
	period := strings.TrimSpace(ctx.DefaultQuery("period", services.PeriodAllTime))
	if period != services.PeriodAllTime && period != services.PeriodWeekly {
		utils.Error(ctx, 400, 40060, "period must be alltime or weekly")
		return
	}

	limit := config.Get().LeaderboardLimit
	if v, err := strconv.Atoi(ctx.Query("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	entries := l.boards.Top(ctx.Request.Context(), period, limit)
	utils.Success(ctx, gin.H{
		"period":  period,
		"entries": entries,
	})
}
