package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/readboostid/readboost-server/models"
	"github.com/readboostid/readboost-server/store"
)

func newTestBoards(remote *store.MemoryRemote, local *store.MemoryLocal, clock *fakeClock) *LeaderboardService {
	return NewLeaderboardService(remote, local, clock, zap.NewNop().Sugar())
}

func TestLeaderboardRanksByXP(t *testing.T) {
	remote := store.NewMemoryRemote()
	local := store.NewMemoryLocal()
	boards := newTestBoards(remote, local, &fakeClock{now: day(10, 9)})

	require.NoError(t, boards.AddXP(context.Background(), "u1", "budi", 50))
	require.NoError(t, boards.AddXP(context.Background(), "u2", "sari", 120))
	require.NoError(t, boards.AddXP(context.Background(), "u3", "agus", 80))
	require.NoError(t, boards.AddXP(context.Background(), "u1", "budi", 20))

	top := boards.Top(context.Background(), PeriodAllTime, 10)
	require.Len(t, top, 3)
	assert.Equal(t, "sari", top[0].Username)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "agus", top[1].Username)
	assert.Equal(t, "budi", top[2].Username)
	assert.Equal(t, 70, top[2].TotalXP)
	assert.Equal(t, 3, top[2].Rank)
}

func TestLeaderboardLimit(t *testing.T) {
	remote := store.NewMemoryRemote()
	local := store.NewMemoryLocal()
	boards := newTestBoards(remote, local, &fakeClock{now: day(10, 9)})

	for i, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, boards.AddXP(context.Background(), name, name, (i+1)*10))
	}
	top := boards.Top(context.Background(), PeriodAllTime, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "d", top[0].Username)
}

func TestWeeklyBoardIsIsolatedPerWeek(t *testing.T) {
	remote := store.NewMemoryRemote()
	local := store.NewMemoryLocal()
	clock := &fakeClock{now: day(2, 9)}
	boards := newTestBoards(remote, local, clock)

	require.NoError(t, boards.AddXP(context.Background(), "u1", "budi", 40))

	// move two weeks ahead and award again
	clock.now = day(16, 9)
	require.NoError(t, boards.AddXP(context.Background(), "u1", "budi", 10))

	weekly := boards.Top(context.Background(), PeriodWeekly, 10)
	require.Len(t, weekly, 1)
	assert.Equal(t, 10, weekly[0].TotalXP, "weekly board only counts the current week")

	allTime := boards.Top(context.Background(), PeriodAllTime, 10)
	require.Len(t, allTime, 1)
	assert.Equal(t, 50, allTime[0].TotalXP)
}

func TestWeeklyBoardFallsBackToPreviousWeek(t *testing.T) {
	remote := store.NewMemoryRemote()
	local := store.NewMemoryLocal()
	clock := &fakeClock{now: day(2, 9)}
	boards := newTestBoards(remote, local, clock)

	require.NoError(t, boards.AddXP(context.Background(), "u1", "budi", 40))

	// one week later, before anyone has read
	clock.now = clock.now.AddDate(0, 0, 7)
	weekly := boards.Top(context.Background(), PeriodWeekly, 10)
	require.Len(t, weekly, 1)
	assert.Equal(t, 40, weekly[0].TotalXP, "empty week shows last week's standings")
}

func TestLeaderboardFallsBackToLocal(t *testing.T) {
	remote := store.NewMemoryRemote()
	local := store.NewMemoryLocal()
	boards := newTestBoards(remote, local, &fakeClock{now: day(10, 9)})

	require.NoError(t, local.PutProgress(context.Background(), &models.UserProgress{UserID: "u1", Username: "budi", TotalXP: 90}))
	require.NoError(t, local.PutProgress(context.Background(), &models.UserProgress{UserID: "u2", TotalXP: 150}))

	remote.ReadErr = errors.New("remote down")
	top := boards.Top(context.Background(), PeriodAllTime, 10)
	require.Len(t, top, 2)
	assert.Equal(t, "Unknown", top[0].Username, "missing usernames fall back to a placeholder")
	assert.Equal(t, 150, top[0].TotalXP)
	assert.Equal(t, "budi", top[1].Username)
}

func TestLeaderboardNeverErrors(t *testing.T) {
	remote := store.NewMemoryRemote()
	local := store.NewMemoryLocal()
	remote.ReadErr = errors.New("remote down")
	local.ReadErr = errors.New("db down")
	boards := newTestBoards(remote, local, &fakeClock{now: day(10, 9)})

	top := boards.Top(context.Background(), PeriodAllTime, 10)
	assert.Empty(t, top)
	assert.NotNil(t, top)
}

func TestWeekKeyFormat(t *testing.T) {
	assert.Equal(t, "2026_11", weekKey(day(10, 9)))
	// ISO week of Jan 1 2027 belongs to week 53 of 2026
	assert.Equal(t, "2026_53", weekKey(time.Date(2027, 1, 1, 0, 0, 0, 0, time.Local)))
}
