package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/readboostid/readboost-server/middleware"
	"github.com/readboostid/readboost-server/models"
	"github.com/readboostid/readboost-server/services"
	"github.com/readboostid/readboost-server/utils"
)

// AdminController hosts privileged operations: XP grants, progress resets and
// catalog management. Every handler gates on the configured admin usernames.
type AdminController struct {
	db      *gorm.DB
	manager *services.HybridManager
}

func NewAdminController(db *gorm.DB, manager *services.HybridManager) *AdminController {
	return &AdminController{db: db, manager: manager}
}

// AddXP grants raw XP to a user. The amount is validated before any store is
// touched; an unknown user aborts with no writes at all.
func (a *AdminController) AddXP(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40301, "admin access required")
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
		Amount   int    `json:"amount" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	err := a.manager.AdminAddXP(ctx.Request.Context(), user.ExternalID, user.Username, req.Amount)
	switch {
	case errors.Is(err, services.ErrInvalidXPAmount):
		utils.Error(ctx, http.StatusBadRequest, 40071, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		utils.Error(ctx, http.StatusNotFound, 40402, "user progress not found")
	case err != nil:
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to grant xp")
	default:
		utils.Success(ctx, gin.H{"username": user.Username, "amount": req.Amount})
	}
}

// ResetUser wipes a user's progress back to the default state.
func (a *AdminController) ResetUser(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40301, "admin access required")
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40072, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	a.manager.ResetProgress(ctx.Request.Context(), user.ExternalID, user.Username)
	utils.Success(ctx, gin.H{"username": user.Username})
}

// CreateArticle adds a reading item to the catalog. Content passes through
// the HTML sanitizer; title and category are stripped of markup entirely.
func (a *AdminController) CreateArticle(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40301, "admin access required")
		return
	}

	var req struct {
		Title              string `json:"title" binding:"required,max=255"`
		Content            string `json:"content" binding:"required"`
		Category           string `json:"category"`
		XP                 int    `json:"xp"`
		ReadingTimeMinutes int    `json:"reading_time_minutes"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40073, "invalid request payload")
		return
	}

	article := models.Article{
		Title:              utils.SanitizeStrict(strings.TrimSpace(req.Title)),
		Content:            utils.Sanitize(req.Content),
		Category:           utils.SanitizeStrict(strings.ToLower(strings.TrimSpace(req.Category))),
		XP:                 req.XP,
		ReadingTimeMinutes: req.ReadingTimeMinutes,
	}
	if article.Category == "" {
		article.Category = "umum"
	}
	if article.XP <= 0 {
		article.XP = 10
	}
	if article.ReadingTimeMinutes <= 0 {
		article.ReadingTimeMinutes = 5
	}

	if err := a.db.Create(&article).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to create article")
		return
	}

	utils.InvalidateByPrefix("cache:articles:list:")
	utils.Success(ctx, gin.H{"article": article})
}

// DeleteArticle removes a reading item from the catalog.
func (a *AdminController) DeleteArticle(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40301, "admin access required")
		return
	}

	articleID := ctx.Param("id")
	var article models.Article
	if err := a.db.First(&article, articleID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "article not found")
		return
	}

	if err := a.db.Delete(&article).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to delete article")
		return
	}

	utils.InvalidateByPrefix("cache:articles:list:")
	utils.InvalidateByPrefix("cache:article:detail:" + articleID)
	utils.Success(ctx, gin.H{"id": article.ID})
}

func isAdmin(ctx *gin.Context) bool {
	unameVal, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return false
	}
	uname, _ := unameVal.(string)
	return isAdminUsername(uname)
}
