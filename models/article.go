package models

import "time"

// Article is a reading item. XP is the base award for completing it; the
// accrual engine adds time and category bonuses on top.
type Article struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Title              string    `gorm:"size:255;not null" json:"title"`
	Content            string    `gorm:"type:text;not null" json:"content"`
	Category           string    `gorm:"size:32;index;default:'umum'" json:"category"`
	XP                 int       `gorm:"default:10" json:"xp"`
	ReadingTimeMinutes int       `gorm:"default:5" json:"reading_time_minutes"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
