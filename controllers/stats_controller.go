package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/readboostid/readboost-server/models"
	"github.com/readboostid/readboost-server/utils"
)

// StatsController provides aggregate platform statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate counts for the platform.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var articleCount int64
	var readerCount int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}

	if err := s.db.Model(&models.Article{}).Count(&articleCount).Error; err != nil {
		articleCount = 0
	}

	// Readers with at least one recorded completion
	if err := s.db.Model(&models.UserProgress{}).
		Where("total_xp > 0").
		Count(&readerCount).Error; err != nil {
		readerCount = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":    userCount,
		"article_count": articleCount,
		"reader_count":  readerCount,
	})
}
