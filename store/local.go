package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/readboostid/readboost-server/models"
)

// progressColumns maps remote document field names onto local columns so the
// two stores can share field-level update calls.
var progressColumns = map[string]string{
	"username":            "username",
	"totalXP":             "total_xp",
	"streakDays":          "streak_days",
	"dailyTarget":         "daily_target",
	"dailyXPEarned":       "daily_xp_earned",
	"dailyReadingMinutes": "daily_reading_minutes",
	"lastReadDate":        "last_read_at",
	"lastStreakDate":      "last_streak_at",
}

// GormLocal implements Local on top of the service database. One row per
// user; writes are upserts so the adapter never cares whether the row exists.
type GormLocal struct {
	db *gorm.DB
}

// NewGormLocal creates the relational progress adapter.
func NewGormLocal(db *gorm.DB) *GormLocal {
	return &GormLocal{db: db}
}

func (l *GormLocal) GetProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	var p models.UserProgress
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("local progress read: %w", err)
	}
	return &p, nil
}

func (l *GormLocal) PutProgress(ctx context.Context, p *models.UserProgress) error {
	if p.UserID == "" {
		return fmt.Errorf("local progress write: user id is required")
	}
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "total_xp", "streak_days", "daily_target",
			"daily_xp_earned", "daily_reading_minutes",
			"last_read_at", "last_streak_at", "updated_at",
		}),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("local progress write: %w", err)
	}
	return nil
}

func (l *GormLocal) UpdateField(ctx context.Context, userID, field string, value any) error {
	column, ok := progressColumns[field]
	if !ok {
		return fmt.Errorf("local progress update: unknown field %q", field)
	}
	res := l.db.WithContext(ctx).
		Model(&models.UserProgress{}).
		Where("user_id = ?", userID).
		Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("local progress update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *GormLocal) TopByXP(ctx context.Context, limit int) ([]models.UserProgress, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.UserProgress
	err := l.db.WithContext(ctx).
		Order("total_xp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("local leaderboard read: %w", err)
	}
	return rows, nil
}
