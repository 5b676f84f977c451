package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/readboostid/readboost-server/models"
	"github.com/readboostid/readboost-server/utils"
)

// ArticleController serves the reading catalog.
type ArticleController struct {
	db *gorm.DB
}

func NewArticleController(db *gorm.DB) *ArticleController {
	return &ArticleController{db: db}
}

// ListArticles returns paginated articles, optionally filtered by category or
// a title search term.
func (a *ArticleController) ListArticles(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	category := strings.TrimSpace(ctx.Query("category"))

	// Cache catalog pages when no search term to avoid cache key explosion
	if search == "" {
		cacheKey := fmt.Sprintf("cache:articles:list:cat=%s:page=%d:size=%d", category, page, pageSize)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", b)
			return
		}
	}

	var articles []models.Article
	query := a.db.Model(&models.Article{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if search != "" {
		query = query.Where("title LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to count articles")
		return
	}

	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&articles).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to list articles")
		return
	}

	payload := gin.H{
		"articles": articles,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	if search == "" {
		cacheKey := fmt.Sprintf("cache:articles:list:cat=%s:page=%d:size=%d", category, page, pageSize)
		wrapper := struct {
			Code    int         `json:"code"`
			Message string      `json:"message"`
			Data    interface{} `json:"data"`
		}{Code: 0, Message: "success", Data: payload}
		utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetArticle returns a single article by id.
func (a *ArticleController) GetArticle(ctx *gin.Context) {
	articleID := ctx.Param("id")

	if b, ok := utils.CacheGetBytes("cache:article:detail:" + articleID); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	var article models.Article
	if err := a.db.First(&article, articleID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "article not found")
		return
	}

	payload := gin.H{"article": article}
	wrapper := struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data"`
	}{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON("cache:article:detail:"+articleID, wrapper, time.Hour)
	utils.Success(ctx, payload)
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}
