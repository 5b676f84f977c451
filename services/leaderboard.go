package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/readboostid/readboost-server/models"
	"github.com/readboostid/readboost-server/store"
)

// Leaderboard partitioning: one all-time collection plus one collection per
// ISO week. Every award increments both, so weekly boards need no roll-over
// job; stale weeks simply stop receiving writes.
const (
	allTimeCollection = "leaderboard_alltime"
	weeklyPrefix      = "leaderboard_weekly_"

	PeriodAllTime = "alltime"
	PeriodWeekly  = "weekly"
)

// LeaderboardService maintains the denormalized XP ranking documents in the
// remote store and serves ranked reads with a local fallback, so the board
// always shows some value even when the remote store is down.
type LeaderboardService struct {
	remote store.Remote
	local  store.Local
	clock  Clock
	log    *zap.SugaredLogger
}

// NewLeaderboardService creates the leaderboard service.
func NewLeaderboardService(remote store.Remote, local store.Local, clock Clock, log *zap.SugaredLogger) *LeaderboardService {
	return &LeaderboardService{remote: remote, local: local, clock: clock, log: log}
}

// AddXP transactionally increments a user's score on the all-time board and
// the current week's board. The increment is a read-modify-write transaction
// because several devices of the same user may award XP concurrently; a blind
// overwrite would lose updates.
func (s *LeaderboardService) AddXP(ctx context.Context, userID, username string, xp int) error {
	now := s.clock.Now()
	week := weekKey(now)

	errAllTime := s.increment(ctx, allTimeCollection, userID, username, xp, now, "")
	errWeekly := s.increment(ctx, weeklyPrefix+week, userID, username, xp, now, week)
	return errors.Join(errAllTime, errWeekly)
}

func (s *LeaderboardService) increment(ctx context.Context, collection, userID, username string, xp int, now time.Time, week string) error {
	return s.remote.RunTransaction(ctx, collection, userID, func(doc map[string]any) map[string]any {
		current := models.DocInt(doc, "totalXP")
		next := map[string]any{
			"userId":      userID,
			"username":    username,
			"totalXP":     current + xp,
			"lastUpdated": now.UnixMilli(),
		}
		if week != "" {
			next["weekKey"] = week
		}
		return next
	})
}

// Top returns up to limit entries for the given period, ranked 1-based by
// descending total XP. Reads degrade in order: current collection, previous
// week (weekly only), then the local progress table.
func (s *LeaderboardService) Top(ctx context.Context, period string, limit int) []models.LeaderboardEntry {
	if limit <= 0 {
		limit = 10
	}

	collection := allTimeCollection
	if period == PeriodWeekly {
		collection = weeklyPrefix + weekKey(s.clock.Now())
	}

	docs, err := s.remote.Query(ctx, collection, "totalXP", limit)
	if err != nil {
		s.log.Warnf("leaderboard read failed collection=%s err=%v", collection, err)
		return s.localTop(ctx, limit)
	}

	if len(docs) == 0 && period == PeriodWeekly {
		// A fresh week has no writes yet; show last week instead of a blank
		// board, like the original client did.
		prev := weeklyPrefix + weekKey(s.clock.Now().AddDate(0, 0, -7))
		if prevDocs, prevErr := s.remote.Query(ctx, prev, "totalXP", limit); prevErr == nil {
			docs = prevDocs
		}
	}
	if len(docs) == 0 {
		return s.localTop(ctx, limit)
	}

	entries := make([]models.LeaderboardEntry, 0, len(docs))
	for i, doc := range docs {
		entries = append(entries, models.EntryFromDocument(doc, i+1))
	}
	return entries
}

// localTop builds a board from the local progress table. Possibly stale, but
// the board never errors out to the caller.
func (s *LeaderboardService) localTop(ctx context.Context, limit int) []models.LeaderboardEntry {
	rows, err := s.local.TopByXP(ctx, limit)
	if err != nil {
		s.log.Warnf("leaderboard local fallback failed err=%v", err)
		return []models.LeaderboardEntry{}
	}
	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		username := row.Username
		if username == "" {
			username = "Unknown"
		}
		entries = append(entries, models.LeaderboardEntry{
			UserID:   row.UserID,
			Username: username,
			TotalXP:  row.TotalXP,
			Rank:     i + 1,
		})
	}
	return entries
}

// weekKey formats an instant as YYYY_WW using ISO week numbering.
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d_%02d", year, week)
}
