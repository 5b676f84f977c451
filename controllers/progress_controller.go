package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/readboostid/readboost-server/middleware"
	"github.com/readboostid/readboost-server/models"
	"github.com/readboostid/readboost-server/services"
	"github.com/readboostid/readboost-server/utils"
)

// ProgressController exposes the authenticated user's reading progress.
type ProgressController struct {
	db      *gorm.DB
	manager *services.HybridManager
}

func NewProgressController(db *gorm.DB, manager *services.HybridManager) *ProgressController {
	return &ProgressController{db: db, manager: manager}
}

// GetProgress returns the caller's progress. The lookup never fails: with
// both stores down the caller still gets a fresh default state.
func (p *ProgressController) GetProgress(ctx *gin.Context) {
	externalID, ok := getExternalID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	progress := p.manager.GetProgress(ctx.Request.Context(), externalID)
	utils.Success(ctx, gin.H{"progress": progress})
}

// UpdateTarget changes the caller's daily reading goal in minutes.
func (p *ProgressController) UpdateTarget(ctx *gin.Context) {
	externalID, ok := getExternalID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		Minutes int `json:"minutes" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	if err := p.manager.UpdateDailyTarget(ctx.Request.Context(), externalID, req.Minutes); err != nil {
		if errors.Is(err, services.ErrInvalidTarget) {
			utils.Error(ctx, http.StatusBadRequest, 40041, "daily target must be positive")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to update daily target")
		return
	}
	utils.Success(ctx, gin.H{"daily_target": req.Minutes})
}

// CompleteArticle records a finished read. XP is computed server side from
// the article's base award, its category and the reported active time; the
// response carries the updated progress for optimistic UI.
func (p *ProgressController) CompleteArticle(ctx *gin.Context) {
	externalID, ok := getExternalID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	username := getUsername(ctx)

	var req struct {
		ArticleID         uint `json:"article_id" binding:"required"`
		ActiveTimeSeconds int  `json:"active_time_seconds"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid request payload")
		return
	}
	if req.ActiveTimeSeconds < 0 {
		utils.Error(ctx, http.StatusBadRequest, 40043, "active time cannot be negative")
		return
	}

	var article models.Article
	if err := p.db.First(&article, req.ArticleID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "article not found")
		return
	}

	activeTime := time.Duration(req.ActiveTimeSeconds) * time.Second
	xp := services.ArticleXP(article.XP, article.Category, activeTime)

	progress := p.manager.ApplyCompletion(ctx.Request.Context(), externalID, username, article.ID, xp, activeTime)
	utils.Success(ctx, gin.H{
		"xp_earned": xp,
		"progress":  progress,
	})
}

func getExternalID(ctx *gin.Context) (string, bool) {
	value, exists := ctx.Get(middleware.ContextExternalIDKey)
	if !exists {
		return "", false
	}
	id, _ := value.(string)
	return id, id != ""
}

func getUsername(ctx *gin.Context) string {
	value, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return ""
	}
	name, _ := value.(string)
	return name
}
