package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/readboostid/readboost-server/config"
	"github.com/readboostid/readboost-server/controllers"
	"github.com/readboostid/readboost-server/middleware"
	"github.com/readboostid/readboost-server/services"
	"github.com/readboostid/readboost-server/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, manager *services.HybridManager, boards *services.LeaderboardService, tracker *services.SessionTracker) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	accessLog := utils.NewAccessLogger(cfg.GinPath, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	r.Use(utils.GinLogger(accessLog))
	r.Use(utils.GinRecovery(accessLog))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	articleController := controllers.NewArticleController(db)
	progressController := controllers.NewProgressController(db, manager)
	sessionController := controllers.NewSessionController(tracker)
	leaderboardController := controllers.NewLeaderboardController(boards)
	adminController := controllers.NewAdminController(db, manager)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	articlesGroup := api.Group("/articles")
	articlesGroup.GET("", articleController.ListArticles)
	articlesGroup.GET("/:id", articleController.GetArticle)

	// Public stats and standings
	api.GET("/stats", statsController.GetStats)
	api.GET("/leaderboard", leaderboardController.GetLeaderboard)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.GET("/progress", progressController.GetProgress)
	protected.PUT("/progress/target", progressController.UpdateTarget)
	protected.POST("/progress/complete", progressController.CompleteArticle)

	protected.POST("/sessions", sessionController.StartSession)
	protected.POST("/sessions/heartbeat", sessionController.Heartbeat)
	protected.POST("/sessions/end", sessionController.EndSession)

	adminGroup := protected.Group("/admin")
	adminGroup.POST("/xp", adminController.AddXP)
	adminGroup.POST("/reset", adminController.ResetUser)
	adminGroup.POST("/articles", adminController.CreateArticle)
	adminGroup.DELETE("/articles/:id", adminController.DeleteArticle)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
