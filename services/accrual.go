package services

import (
	"strings"
	"time"

	"github.com/readboostid/readboost-server/models"
)

// XP awards are clamped so one completion can never grant less than the floor
// or more than the admin cap.
const (
	MinXPAward = 5
	MaxXPAward = 500
)

// CompletionEvent is the input to a progress transition: the XP granted for
// one finished article and the active reading time measured by the client.
type CompletionEvent struct {
	XPEarned   int
	ActiveTime time.Duration
}

// NextProgress computes the state following a completion event. It is a pure
// function: the caller injects the wall-clock instant, no I/O happens here.
//
// Rules:
//   - a gap of more than one day since the last read resets the streak to 1;
//   - otherwise the streak grows by one the first time a new calendar day is
//     read, and holds for the rest of that day;
//   - daily XP and minute counters accumulate within a calendar day and
//     restart from the event's own contribution on a new day;
//   - total XP only ever grows.
func NextProgress(current models.UserProgress, ev CompletionEvent, now time.Time) models.UserProgress {
	lastRead := time.UnixMilli(current.LastReadAt)
	lastStreak := time.UnixMilli(current.LastStreakAt)

	daysSinceRead := int(now.Sub(lastRead).Hours() / 24)
	streakReset := daysSinceRead > 1
	streakAdvance := dayStart(now).After(dayStart(lastStreak))

	streak := current.StreakDays
	switch {
	case streakReset:
		streak = 1
	case streakAdvance:
		streak = current.StreakDays + 1
	}
	streakAt := current.LastStreakAt
	if streakAdvance {
		streakAt = dayStart(now).UnixMilli()
	}

	minutes := int(ev.ActiveTime.Minutes())
	isNewDay := daysSinceRead >= 1
	dailyXP := current.DailyXPEarned + ev.XPEarned
	dailyMinutes := current.DailyReadingMinutes + minutes
	if isNewDay {
		dailyXP = ev.XPEarned
		dailyMinutes = minutes
	}

	next := current
	next.TotalXP = current.TotalXP + ev.XPEarned
	next.StreakDays = streak
	next.DailyXPEarned = dailyXP
	next.DailyReadingMinutes = dailyMinutes
	next.LastReadAt = now.UnixMilli()
	next.LastStreakAt = streakAt
	return next
}

// ArticleXP computes the award for finishing an article: base XP plus a time
// bonus for sustained reading plus a complexity bonus by category, clamped to
// [MinXPAward, MaxXPAward]. Never fails; unknown categories get the smallest
// bonus.
func ArticleXP(baseXP int, category string, activeTime time.Duration) int {
	minutes := activeTime.Minutes()

	timeBonus := 0
	switch {
	case minutes >= 10:
		timeBonus = 20
	case minutes >= 5:
		timeBonus = 10
	case minutes >= 2:
		timeBonus = 5
	}

	// Category names come from the original Indonesian catalog; English
	// aliases accepted for imported articles.
	complexityBonus := 5
	switch strings.ToLower(category) {
	case "teknologi", "sains", "programmer", "matematika",
		"technology", "science", "programming", "math":
		complexityBonus = 15
	case "bisnis", "ekonomi", "politik", "kesehatan",
		"business", "economy", "politics", "health":
		complexityBonus = 10
	}

	total := baseXP + timeBonus + complexityBonus
	if total > MaxXPAward {
		return MaxXPAward
	}
	if total < MinXPAward {
		return MinXPAward
	}
	return total
}

// dayStart truncates an instant to its local calendar day.
func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
