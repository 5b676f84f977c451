package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/readboostid/readboost-server/models"
	"github.com/readboostid/readboost-server/store"
)

const progressCollection = "user_progress"

var (
	// ErrInvalidXPAmount rejects admin XP grants outside [1, MaxXPAward]
	// before any write happens.
	ErrInvalidXPAmount = errors.New("xp amount must be between 1 and 500")
	// ErrUserNotFound is returned by admin operations when the target user
	// has no resolvable progress in either store.
	ErrUserNotFound = errors.New("user progress not found")
	// ErrInvalidTarget rejects non-positive daily reading targets.
	ErrInvalidTarget = errors.New("daily target must be positive")
)

// resolveState drives the read path: remote first, local on failure, a
// synthesized default when both are empty. Making the precedence an explicit
// state machine keeps the fallback order testable on its own.
type resolveState int

const (
	tryRemote resolveState = iota
	fallbackLocal
	synthesize
)

// HybridManager is the single source of truth for reading and mutating
// progress state across the two stores. The remote document wins whenever it
// is reachable; the local row is the offline copy. Writes fan out to both
// with per-step failure tolerance: a failed branch is logged and skipped,
// never surfaced, so the caller always sees the locally-computed next state.
type HybridManager struct {
	local    store.Local
	remote   store.Remote
	boards   *LeaderboardService
	sessions *SessionTracker
	clock    Clock
	timeout  time.Duration
	log      *zap.SugaredLogger
}

// NewHybridManager wires the reconciliation manager. timeout bounds every
// individual store call so no operation can hang on a dead backend.
func NewHybridManager(
	local store.Local,
	remote store.Remote,
	boards *LeaderboardService,
	sessions *SessionTracker,
	clock Clock,
	timeout time.Duration,
	log *zap.SugaredLogger,
) *HybridManager {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HybridManager{
		local:    local,
		remote:   remote,
		boards:   boards,
		sessions: sessions,
		clock:    clock,
		timeout:  timeout,
		log:      log,
	}
}

// GetProgress resolves the current progress for a user. It never fails: on
// total store failure the caller gets a synthesized default. Whichever store
// answered, the value is propagated best-effort to the other one so both
// converge again after an outage.
func (m *HybridManager) GetProgress(ctx context.Context, userID string) models.UserProgress {
	state := tryRemote
	for {
		switch state {
		case tryRemote:
			doc, err := m.readRemote(ctx, progressCollection, userID)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					m.log.Warnf("remote progress read failed user=%s err=%v", userID, err)
				}
				state = fallbackLocal
				continue
			}
			p := models.ProgressFromDocument(userID, doc)
			m.bestEffort(ctx, "propagate progress to local", userID, func(ctx context.Context) error {
				return m.local.PutProgress(ctx, &p)
			})
			return p

		case fallbackLocal:
			p, err := m.readLocal(ctx, userID)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					m.log.Warnf("local progress read failed user=%s err=%v", userID, err)
				}
				state = synthesize
				continue
			}
			m.bestEffort(ctx, "propagate progress to remote", userID, func(ctx context.Context) error {
				return m.remote.SetDocument(ctx, progressCollection, userID, p.Document())
			})
			return *p

		default: // synthesize
			p := models.DefaultProgress(userID)
			m.bestEffort(ctx, "persist default progress to local", userID, func(ctx context.Context) error {
				return m.local.PutProgress(ctx, &p)
			})
			m.bestEffort(ctx, "persist default progress to remote", userID, func(ctx context.Context) error {
				return m.remote.SetDocument(ctx, progressCollection, userID, p.Document())
			})
			return p
		}
	}
}

// ApplyCompletion applies one finished article to the user's progress. The
// accrual computation is pure; the resulting state fans out to the
// leaderboard (transactional XP increment), the remote progress document,
// the local row and an already-closed session record. Each step is
// best-effort and independent: partial failure degrades durability, never
// the returned state.
func (m *HybridManager) ApplyCompletion(ctx context.Context, userID, username string, articleID uint, xpEarned int, activeTime time.Duration) models.UserProgress {
	current := m.GetProgress(ctx, userID)
	next := NextProgress(current, CompletionEvent{XPEarned: xpEarned, ActiveTime: activeTime}, m.clock.Now())
	next.Username = username

	m.bestEffort(ctx, "leaderboard xp increment", userID, func(ctx context.Context) error {
		return m.boards.AddXP(ctx, userID, username, xpEarned)
	})
	m.bestEffort(ctx, "save remote progress", userID, func(ctx context.Context) error {
		return m.remote.SetDocument(ctx, progressCollection, userID, next.Document())
	})
	m.bestEffort(ctx, "save local progress", userID, func(ctx context.Context) error {
		return m.local.PutProgress(ctx, &next)
	})
	m.bestEffort(ctx, "record completion session", userID, func(ctx context.Context) error {
		id := m.sessions.Start(ctx, userID, articleID)
		return m.sessions.End(ctx, id, xpEarned)
	})

	return next
}

// UpdateDailyTarget stores a new minutes-per-day goal in both stores. Store
// failures are tolerated independently; only an invalid target is an error.
func (m *HybridManager) UpdateDailyTarget(ctx context.Context, userID string, minutes int) error {
	if minutes <= 0 {
		return ErrInvalidTarget
	}
	m.bestEffort(ctx, "update remote daily target", userID, func(ctx context.Context) error {
		err := m.remote.UpdateFields(ctx, progressCollection, userID, map[string]any{"dailyTarget": minutes})
		if errors.Is(err, store.ErrNotFound) {
			p := m.GetProgress(ctx, userID)
			p.DailyTarget = minutes
			return m.remote.SetDocument(ctx, progressCollection, userID, p.Document())
		}
		return err
	})
	m.bestEffort(ctx, "update local daily target", userID, func(ctx context.Context) error {
		err := m.local.UpdateField(ctx, userID, "dailyTarget", minutes)
		if errors.Is(err, store.ErrNotFound) {
			p := models.DefaultProgress(userID)
			p.DailyTarget = minutes
			return m.local.PutProgress(ctx, &p)
		}
		return err
	})
	return nil
}

// AdminAddXP grants raw XP to a user without touching streaks or daily
// counters. Unlike GetProgress it refuses to synthesize: granting XP to a
// user that has never read anything is a caller mistake, not a fallback
// case.
func (m *HybridManager) AdminAddXP(ctx context.Context, userID, username string, amount int) error {
	if amount < 1 || amount > MaxXPAward {
		return ErrInvalidXPAmount
	}

	current, ok := m.resolveExisting(ctx, userID)
	if !ok {
		return ErrUserNotFound
	}

	next := current
	next.TotalXP = current.TotalXP + amount

	m.bestEffort(ctx, "admin leaderboard xp increment", userID, func(ctx context.Context) error {
		return m.boards.AddXP(ctx, userID, username, amount)
	})
	m.bestEffort(ctx, "admin save remote progress", userID, func(ctx context.Context) error {
		return m.remote.SetDocument(ctx, progressCollection, userID, next.Document())
	})
	m.bestEffort(ctx, "admin save local progress", userID, func(ctx context.Context) error {
		return m.local.PutProgress(ctx, &next)
	})
	return nil
}

// ResetProgress writes a default state for the user to both stores. The
// leaderboard document is refreshed (zero increment) so the display name
// stays current without erasing earned ranking.
func (m *HybridManager) ResetProgress(ctx context.Context, userID, username string) {
	p := models.DefaultProgress(userID)
	p.Username = username
	m.bestEffort(ctx, "reset remote progress", userID, func(ctx context.Context) error {
		return m.remote.SetDocument(ctx, progressCollection, userID, p.Document())
	})
	m.bestEffort(ctx, "reset local progress", userID, func(ctx context.Context) error {
		return m.local.PutProgress(ctx, &p)
	})
	m.bestEffort(ctx, "refresh leaderboard entry", userID, func(ctx context.Context) error {
		return m.boards.AddXP(ctx, userID, username, 0)
	})
}

// resolveExisting reads progress without the synthesize fallback: remote
// first, then local, then reports absence.
func (m *HybridManager) resolveExisting(ctx context.Context, userID string) (models.UserProgress, bool) {
	if doc, err := m.readRemote(ctx, progressCollection, userID); err == nil {
		return models.ProgressFromDocument(userID, doc), true
	} else if !errors.Is(err, store.ErrNotFound) {
		m.log.Warnf("remote progress read failed user=%s err=%v", userID, err)
	}
	if p, err := m.readLocal(ctx, userID); err == nil {
		return *p, true
	} else if !errors.Is(err, store.ErrNotFound) {
		m.log.Warnf("local progress read failed user=%s err=%v", userID, err)
	}
	return models.UserProgress{}, false
}

func (m *HybridManager) readRemote(ctx context.Context, collection, id string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.remote.GetDocument(ctx, collection, id)
}

func (m *HybridManager) readLocal(ctx context.Context, userID string) (*models.UserProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.local.GetProgress(ctx, userID)
}

// bestEffort runs a store write whose failure must not reach the caller. The
// failure is logged with operation and key so partial fan-out is diagnosable
// per step.
func (m *HybridManager) bestEffort(ctx context.Context, op, key string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		m.log.Warnf("%s failed key=%s err=%v", op, key, err)
	}
}
