package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/readboostid/readboost-server/store"
)

func newTestTracker(remote *store.MemoryRemote, clock *fakeClock) *SessionTracker {
	return NewSessionTracker(remote, clock, zap.NewNop().Sugar())
}

func TestSessionStartAndGet(t *testing.T) {
	remote := store.NewMemoryRemote()
	clock := &fakeClock{now: day(10, 9)}
	tracker := newTestTracker(remote, clock)

	id := tracker.Start(context.Background(), "u1", 42)
	assert.Equal(t, fmt.Sprintf("u1_42_%d", clock.now.UnixMilli()), id)

	s, err := tracker.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, s.IsActive)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, uint(42), s.ArticleID)
	assert.Zero(t, s.TotalActiveTime)
}

func TestSessionStartSurvivesRemoteOutage(t *testing.T) {
	remote := store.NewMemoryRemote()
	remote.WriteErr = errors.New("remote down")
	tracker := newTestTracker(remote, &fakeClock{now: day(10, 9)})

	id := tracker.Start(context.Background(), "u1", 42)
	assert.NotEmpty(t, id, "reading proceeds even when the record could not be stored")
}

func TestSessionAccumulate(t *testing.T) {
	remote := store.NewMemoryRemote()
	clock := &fakeClock{now: day(10, 9)}
	tracker := newTestTracker(remote, clock)

	id := tracker.Start(context.Background(), "u1", 42)
	require.NoError(t, tracker.Accumulate(context.Background(), id, 30*time.Second))
	require.NoError(t, tracker.Accumulate(context.Background(), id, 45*time.Second))

	s, err := tracker.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, (75 * time.Second).Milliseconds(), s.TotalActiveTime)
}

func TestSessionAccumulateIgnoresNonPositive(t *testing.T) {
	remote := store.NewMemoryRemote()
	tracker := newTestTracker(remote, &fakeClock{now: day(10, 9)})

	id := tracker.Start(context.Background(), "u1", 42)
	require.NoError(t, tracker.Accumulate(context.Background(), id, 0))
	require.NoError(t, tracker.Accumulate(context.Background(), id, -time.Second))

	s, err := tracker.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, s.TotalActiveTime)
}

func TestSessionEndIsTerminal(t *testing.T) {
	remote := store.NewMemoryRemote()
	clock := &fakeClock{now: day(10, 9)}
	tracker := newTestTracker(remote, clock)

	id := tracker.Start(context.Background(), "u1", 42)
	require.NoError(t, tracker.Accumulate(context.Background(), id, time.Minute))
	require.NoError(t, tracker.End(context.Background(), id, 35))

	s, err := tracker.Get(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, s.IsActive)
	assert.Equal(t, 35, s.XPEarned)
	assert.Equal(t, clock.now.UnixMilli(), s.EndTime)

	assert.ErrorIs(t, tracker.Accumulate(context.Background(), id, time.Minute), ErrSessionClosed)
	assert.ErrorIs(t, tracker.End(context.Background(), id, 10), ErrSessionClosed)

	// closed session kept its accumulated time
	s, err = tracker.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, time.Minute.Milliseconds(), s.TotalActiveTime)
}

func TestSessionUnknownID(t *testing.T) {
	remote := store.NewMemoryRemote()
	tracker := newTestTracker(remote, &fakeClock{now: day(10, 9)})

	assert.ErrorIs(t, tracker.Accumulate(context.Background(), "nope", time.Second), ErrSessionNotFound)
	assert.ErrorIs(t, tracker.End(context.Background(), "nope", 5), ErrSessionNotFound)
	_, err := tracker.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionIDsDifferPerAttempt(t *testing.T) {
	remote := store.NewMemoryRemote()
	clock := &fakeClock{now: day(10, 9)}
	tracker := newTestTracker(remote, clock)

	first := tracker.Start(context.Background(), "u1", 42)
	clock.now = clock.now.Add(time.Second)
	second := tracker.Start(context.Background(), "u1", 42)
	assert.NotEqual(t, first, second)
}
