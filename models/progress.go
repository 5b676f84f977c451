package models

import "time"

// UserProgress is the per-user reading gamification state. The MySQL row is
// the offline-safe local copy keyed by UserID; the remote document under the
// same id is authoritative whenever the remote store is reachable. Timestamps
// are unix milliseconds to match the remote document encoding.
type UserProgress struct {
	ID                  uint      `gorm:"primaryKey" json:"-"`
	UserID              string    `gorm:"size:64;uniqueIndex;not null" json:"user_id"`
	Username            string    `gorm:"size:64" json:"username"`
	TotalXP             int       `gorm:"default:0" json:"total_xp"`
	StreakDays          int       `gorm:"default:0" json:"streak_days"`
	DailyTarget         int       `gorm:"default:5" json:"daily_target"`
	DailyXPEarned       int       `gorm:"default:0" json:"daily_xp_earned"`
	DailyReadingMinutes int       `gorm:"default:0" json:"daily_reading_minutes"`
	LastReadAt          int64     `json:"last_read_at"`
	LastStreakAt        int64     `json:"last_streak_at"`
	CreatedAt           time.Time `json:"-"`
	UpdatedAt           time.Time `json:"-"`
}

// defaultDailyTarget is the reading goal assigned to synthesized state, in
// minutes per day. Overridable at boot via SetDefaultDailyTarget.
var defaultDailyTarget = 5

// SetDefaultDailyTarget changes the daily target new users start with.
func SetDefaultDailyTarget(minutes int) {
	if minutes > 0 {
		defaultDailyTarget = minutes
	}
}

// DefaultProgress returns the zero-valued state handed out when neither store
// has a record for the user.
func DefaultProgress(userID string) UserProgress {
	return UserProgress{
		UserID:      userID,
		DailyTarget: defaultDailyTarget,
	}
}

// Document encodes the state as a remote store document.
func (p UserProgress) Document() map[string]any {
	return map[string]any{
		"userId":              p.UserID,
		"username":            p.Username,
		"totalXP":             p.TotalXP,
		"streakDays":          p.StreakDays,
		"dailyTarget":         p.DailyTarget,
		"dailyXPEarned":       p.DailyXPEarned,
		"dailyReadingMinutes": p.DailyReadingMinutes,
		"lastReadDate":        p.LastReadAt,
		"lastStreakDate":      p.LastStreakAt,
		"lastUpdated":         time.Now().UnixMilli(),
	}
}

// ProgressFromDocument decodes a remote document, tolerating missing fields
// the way older documents may lack them.
func ProgressFromDocument(userID string, doc map[string]any) UserProgress {
	p := DefaultProgress(userID)
	p.Username = DocString(doc, "username")
	p.TotalXP = DocInt(doc, "totalXP")
	p.StreakDays = DocInt(doc, "streakDays")
	if v := DocInt(doc, "dailyTarget"); v > 0 {
		p.DailyTarget = v
	}
	p.DailyXPEarned = DocInt(doc, "dailyXPEarned")
	p.DailyReadingMinutes = DocInt(doc, "dailyReadingMinutes")
	p.LastReadAt = DocInt64(doc, "lastReadDate")
	p.LastStreakAt = DocInt64(doc, "lastStreakDate")
	return p
}
