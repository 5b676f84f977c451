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

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func newTestManager(local *store.MemoryLocal, remote *store.MemoryRemote, clock *fakeClock) *HybridManager {
	log := zap.NewNop().Sugar()
	boards := NewLeaderboardService(remote, local, clock, log)
	tracker := NewSessionTracker(remote, clock, log)
	return NewHybridManager(local, remote, boards, tracker, clock, time.Second, log)
}

func TestGetProgressSynthesizesDefault(t *testing.T) {
	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	m := newTestManager(local, remote, &fakeClock{now: day(10, 9)})

	p := m.GetProgress(context.Background(), "u1")
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, 0, p.TotalXP)
	assert.Equal(t, 5, p.DailyTarget)

	// default was persisted to both stores
	_, err := local.GetProgress(context.Background(), "u1")
	assert.NoError(t, err)
	_, err = remote.GetDocument(context.Background(), "user_progress", "u1")
	assert.NoError(t, err)

	// a second read resolves the stored default, not a fresh synthesis
	again := m.GetProgress(context.Background(), "u1")
	assert.Equal(t, p.UserID, again.UserID)
	assert.Equal(t, p.TotalXP, again.TotalXP)
}

func TestGetProgressPrefersRemote(t *testing.T) {
	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	m := newTestManager(local, remote, &fakeClock{now: day(10, 9)})

	require.NoError(t, remote.SetDocument(context.Background(), "user_progress", "u1", map[string]any{
		"userId":   "u1",
		"username": "budi",
		"totalXP":  120,
	}))

	p := m.GetProgress(context.Background(), "u1")
	assert.Equal(t, 120, p.TotalXP)
	assert.Equal(t, "budi", p.Username)

	// remote value propagated into the local row
	row, err := local.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 120, row.TotalXP)
}

func TestGetProgressFallsBackToLocal(t *testing.T) {
	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	m := newTestManager(local, remote, &fakeClock{now: day(10, 9)})

	seed := m.GetProgress(context.Background(), "u1")
	require.Equal(t, 0, seed.TotalXP)
	require.NoError(t, local.UpdateField(context.Background(), "u1", "totalXP", 77))

	remote.ReadErr = errors.New("remote down")
	remote.WriteErr = errors.New("remote down")

	p := m.GetProgress(context.Background(), "u1")
	assert.Equal(t, 77, p.TotalXP, "local row serves the read during remote outage")
}

func TestGetProgressNeverFails(t *testing.T) {
	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	local.ReadErr = errors.New("db down")
	local.WriteErr = errors.New("db down")
	remote.ReadErr = errors.New("remote down")
	remote.WriteErr = errors.New("remote down")
	m := newTestManager(local, remote, &fakeClock{now: day(10, 9)})

	p := m.GetProgress(context.Background(), "u1")
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, 5, p.DailyTarget)
}

func TestApplyCompletionAccumulatesTotals(t *testing.T) {
	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	clock := &fakeClock{now: day(10, 9)}
	m := newTestManager(local, remote, clock)

	m.ApplyCompletion(context.Background(), "u1", "budi", 1, 30, 5*time.Minute)
	clock.now = day(10, 15)
	p := m.ApplyCompletion(context.Background(), "u1", "budi", 2, 45, 11*time.Minute)

	assert.Equal(t, 75, p.TotalXP)
	assert.Equal(t, 75, p.DailyXPEarned)
	assert.Equal(t, 16, p.DailyReadingMinutes)
	assert.Equal(t, 1, p.StreakDays)
	assert.Equal(t, "budi", p.Username)

	// both stores carry the new state
	row, err := local.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 75, row.TotalXP)
	doc, err := remote.GetDocument(context.Background(), "user_progress", "u1")
	require.NoError(t, err)
	assert.Equal(t, 75, models.DocInt(doc, "totalXP"))

	// leaderboard got both increments
	boards := NewLeaderboardService(remote, local, clock, zap.NewNop().Sugar())
	top := boards.Top(context.Background(), PeriodAllTime, 10)
	require.Len(t, top, 1)
	assert.Equal(t, 75, top[0].TotalXP)
}

func TestApplyCompletionSurvivesTotalOutage(t *testing.T) {
	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	local.ReadErr = errors.New("db down")
	local.WriteErr = errors.New("db down")
	remote.ReadErr = errors.New("remote down")
	remote.WriteErr = errors.New("remote down")
	m := newTestManager(local, remote, &fakeClock{now: day(10, 9)})

	p := m.ApplyCompletion(context.Background(), "u1", "budi", 1, 30, 5*time.Minute)
	assert.Equal(t, 30, p.TotalXP, "caller still sees the computed state")
	assert.Equal(t, 1, p.StreakDays)
}

func TestAdminAddXPValidatesBeforeWriting(t *testing.T) {
	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	m := newTestManager(local, remote, &fakeClock{now: day(10, 9)})

	for _, amount := range []int{0, -10, 501} {
		err := m.AdminAddXP(context.Background(), "u1", "budi", amount)
		assert.ErrorIs(t, err, ErrInvalidXPAmount)
	}
	assert.Zero(t, local.Writes, "invalid amounts must not touch the local store")
	assert.Zero(t, remote.Writes, "invalid amounts must not touch the remote store")
}

func TestAdminAddXPUnknownUser(t *testing.T) {
	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	m := newTestManager(local, remote, &fakeClock{now: day(10, 9)})

	err := m.AdminAddXP(context.Background(), "ghost", "ghost", 50)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Zero(t, local.Writes)
	assert.Zero(t, remote.Writes)
}

func TestAdminAddXPGrantsWithoutTouchingStreak(t *testing.T) {
	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	clock := &fakeClock{now: day(10, 9)}
	m := newTestManager(local, remote, clock)

	m.ApplyCompletion(context.Background(), "u1", "budi", 1, 30, 5*time.Minute)
	require.NoError(t, m.AdminAddXP(context.Background(), "u1", "budi", 100))

	p := m.GetProgress(context.Background(), "u1")
	assert.Equal(t, 130, p.TotalXP)
	assert.Equal(t, 1, p.StreakDays)
	assert.Equal(t, 30, p.DailyXPEarned, "grants do not count as daily reading")
}

func TestUpdateDailyTarget(t *testing.T) {
	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	m := newTestManager(local, remote, &fakeClock{now: day(10, 9)})

	assert.ErrorIs(t, m.UpdateDailyTarget(context.Background(), "u1", 0), ErrInvalidTarget)
	assert.ErrorIs(t, m.UpdateDailyTarget(context.Background(), "u1", -3), ErrInvalidTarget)

	require.NoError(t, m.UpdateDailyTarget(context.Background(), "u1", 15))
	p := m.GetProgress(context.Background(), "u1")
	assert.Equal(t, 15, p.DailyTarget)
}

func TestResetProgress(t *testing.T) {
	local := store.NewMemoryLocal()
	remote := store.NewMemoryRemote()
	m := newTestManager(local, remote, &fakeClock{now: day(10, 9)})

	m.ApplyCompletion(context.Background(), "u1", "budi", 1, 30, 5*time.Minute)
	m.ResetProgress(context.Background(), "u1", "budi")

	p := m.GetProgress(context.Background(), "u1")
	assert.Equal(t, 0, p.TotalXP)
	assert.Equal(t, 0, p.StreakDays)
	assert.Equal(t, 5, p.DailyTarget)
	assert.Equal(t, "budi", p.Username)
}
