package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/readboostid/readboost-server/models"
)

func day(yearDay int, hour int) time.Time {
	return time.Date(2026, 3, yearDay, hour, 0, 0, 0, time.Local)
}

func TestNextProgressFirstCompletion(t *testing.T) {
	now := day(10, 9)
	next := NextProgress(models.DefaultProgress("u1"), CompletionEvent{XPEarned: 30, ActiveTime: 5 * time.Minute}, now)

	assert.Equal(t, 30, next.TotalXP)
	assert.Equal(t, 1, next.StreakDays)
	assert.Equal(t, 30, next.DailyXPEarned)
	assert.Equal(t, 5, next.DailyReadingMinutes)
	assert.Equal(t, now.UnixMilli(), next.LastReadAt)
}

func TestNextProgressSameDayAccumulates(t *testing.T) {
	first := NextProgress(models.DefaultProgress("u1"), CompletionEvent{XPEarned: 30, ActiveTime: 5 * time.Minute}, day(10, 9))
	second := NextProgress(first, CompletionEvent{XPEarned: 20, ActiveTime: 3 * time.Minute}, day(10, 15))

	assert.Equal(t, 50, second.TotalXP)
	assert.Equal(t, 1, second.StreakDays, "streak only advances once per day")
	assert.Equal(t, 50, second.DailyXPEarned)
	assert.Equal(t, 8, second.DailyReadingMinutes)
}

func TestNextProgressConsecutiveDaysGrowStreak(t *testing.T) {
	p := models.DefaultProgress("u1")
	p = NextProgress(p, CompletionEvent{XPEarned: 10}, day(10, 20))
	p = NextProgress(p, CompletionEvent{XPEarned: 10}, day(11, 8))
	p = NextProgress(p, CompletionEvent{XPEarned: 10}, day(12, 23))

	assert.Equal(t, 3, p.StreakDays)
	assert.Equal(t, 30, p.TotalXP)
}

func TestNextProgressNewDayResetsDailyCounters(t *testing.T) {
	p := NextProgress(models.DefaultProgress("u1"), CompletionEvent{XPEarned: 40, ActiveTime: 12 * time.Minute}, day(10, 9))
	next := NextProgress(p, CompletionEvent{XPEarned: 15, ActiveTime: 4 * time.Minute}, day(11, 9))

	assert.Equal(t, 15, next.DailyXPEarned)
	assert.Equal(t, 4, next.DailyReadingMinutes)
	assert.Equal(t, 55, next.TotalXP)
}

func TestNextProgressGapResetsStreak(t *testing.T) {
	p := models.DefaultProgress("u1")
	p = NextProgress(p, CompletionEvent{XPEarned: 10}, day(8, 12))
	p = NextProgress(p, CompletionEvent{XPEarned: 10}, day(9, 12))
	assert.Equal(t, 2, p.StreakDays)

	// two full days without reading
	p = NextProgress(p, CompletionEvent{XPEarned: 10}, day(12, 12))
	assert.Equal(t, 1, p.StreakDays)
	assert.Equal(t, 30, p.TotalXP, "total XP survives streak resets")
}

func TestNextProgressTotalXPNeverShrinks(t *testing.T) {
	p := models.DefaultProgress("u1")
	previous := 0
	times := []time.Time{day(5, 10), day(5, 11), day(9, 7), day(20, 22)}
	for _, now := range times {
		p = NextProgress(p, CompletionEvent{XPEarned: 25}, now)
		assert.GreaterOrEqual(t, p.TotalXP, previous)
		previous = p.TotalXP
	}
	assert.Equal(t, 100, p.TotalXP)
}

func TestArticleXPTimeAndComplexityBonuses(t *testing.T) {
	cases := []struct {
		name     string
		base     int
		category string
		active   time.Duration
		want     int
	}{
		{"long technical read", 10, "Teknologi", 10 * time.Minute, 45},
		{"medium science read", 10, "sains", 5 * time.Minute, 35},
		{"short business read", 10, "bisnis", 2 * time.Minute, 25},
		{"skim of general topic", 10, "umum", 1 * time.Minute, 15},
		{"english alias", 10, "science", 10 * time.Minute, 45},
		{"unknown category", 10, "puisi", 0, 15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ArticleXP(tc.base, tc.category, tc.active))
		})
	}
}

func TestArticleXPClamped(t *testing.T) {
	assert.Equal(t, MinXPAward, ArticleXP(0, "", 0))
	assert.Equal(t, MaxXPAward, ArticleXP(1000, "teknologi", time.Hour))
}
